// Package types provides shared data structures for the windowing engine.
//
// This package defines the value types passed between the session, window,
// button and router layers so none of them has to import another just to
// name an identity, a window key or an inventory item.
//
// Core Types:
//   - Identity: Opaque user id (a UUID)
//   - Key: (cluster, window) pair addressing one window
//   - Scope: Registration scope for buttons (cluster-global or window)
//   - Layout: Fixed size/kind of a window's surface
//   - Item: Slot content shown on a surface
//   - SurfaceHandle: Host-issued id of one materialized surface
//
// Event Types:
//   - ClickEvent, DragEvent, ChatEvent: Raw interaction events from the host
//
// Example Usage:
//
//	key := types.Key{Cluster: "shop", Window: "home"}
//	ev := &types.ClickEvent{
//	    Identity: id,
//	    Surface:  view.Handle(),
//	    Region:   types.RegionManaged,
//	    Slot:     4,
//	    Action:   types.ActionPickup,
//	}
package types
