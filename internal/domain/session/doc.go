// Package session tracks the per-identity navigation state.
//
// A Session records the current cluster and window, a back-stack of previously
// open windows, the chat capture slot and the pending render request. Sessions
// are created lazily by the Registry and torn down on disconnect or reset.
//
// Locking:
//   - Registry shards its map by an xxhash of the identity bytes.
//   - Each Session carries an operation lock. Clicks, navigation, rendering
//     and teardown all hold it, so at most one of them touches a session at a
//     time.
//   - A closed session stays closed; work that was already queued for it finds
//     nothing to do.
//
// Example Usage:
//
//	reg := session.NewRegistry(caches, nil)
//	s := reg.GetOrCreate(identity)
//	s.Lock()
//	s.Navigate(types.Key{Cluster: "shop", Window: "home"})
//	s.Unlock()
package session
