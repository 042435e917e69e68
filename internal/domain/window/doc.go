// Package window implements a single navigable screen: a fixed layout, the
// buttons bound to its slots and the per-session views it renders.
//
// Each (session, window) pair moves through Unrendered, Rendering, Rendered
// and Stale. Render regenerates the view for one session; the caller is
// expected to hold that session's lock.
package window
