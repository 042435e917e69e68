// Package router dispatches host interaction events to buttons.
//
// Every event is resolved against the identity's session and the view it is
// currently shown. Events from unknown identities pass through untouched;
// events aimed at a surface the session no longer shows are ignored. Button
// failures are contained per slot: they are logged, counted and turn into a
// cancelled interaction. Each handled interaction schedules a non-forced
// render, and the next interaction from the same identity first waits for
// that render to complete.
package router
