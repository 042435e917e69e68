// Package engine is the context object of the windowing system.
//
// An Engine owns the cluster and session registries, drives navigation and
// runs the deferred render cycle. One Engine is built per application
// instance and handed to every component that needs registry access; there
// is no global state.
//
// Locking: public methods taking an identity lock that session for the whole
// operation. The Navigator returned by Navigator expects its caller to hold
// the session lock already, which the router does while a button executes.
// ResetAll and RemoveSession must not be called from inside a button.
package engine
