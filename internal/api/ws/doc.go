// Package ws is the WebSocket host of the windowing engine.
//
// A Hub implements engine.Host: surfaces are pushed to the connected client
// of an identity as JSON frames, and frames read from the client are turned
// into click, drag and chat events for the router.
//
// Connection:
//
//	GET /stream?identity=<uuid>
//
// A second connection for the same identity replaces the first. Closing the
// current connection removes the identity's session from the engine.
//
// Client frames:
//
//	{"type":"click","event":"e1","surface":"srf_...","region":"managed","slot":4,"action":"pickup"}
//	{"type":"drag","surface":"srf_...","slots":{"3":{"key":"stone","amount":1}}}
//	{"type":"chat","message":"hello"}
//	{"type":"open","cluster":"shop","window":"items"}
//	{"type":"back"} {"type":"close"} {"type":"ping"}
//
// Server frames carry the types surface_open, surface_close, message, chat,
// result, pong and error.
package ws
