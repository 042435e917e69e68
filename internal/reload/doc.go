// Package reload watches configuration files and reloads them when their
// content changes.
//
// Editors save in different ways (in place, or through a temp file and a
// rename), so the watcher follows the parent directory of every file,
// debounces bursts of events and compares content fingerprints before
// reloading. After any file reloaded, the OnReload hooks run; the server
// uses one to reset the engine so sessions pick up new titles and
// permissions.
package reload
