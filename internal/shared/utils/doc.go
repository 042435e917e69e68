// Package utils holds input validation shared by the transports and the
// blueprint loader, and content fingerprints for change detection.
package utils
