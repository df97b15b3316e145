// Package cmap provides a concurrent map split into independently locked shards.
//
// Usage:
//
//	m := cmap.New[domain.NodeID, session.State]()
//	m.Set("!a1b2c3d4", st)
//	st, ok := m.Get("!a1b2c3d4")
//
// Read operations (Get, Has, Range) take a shard read lock; writes take the
// shard write lock. Range visits shards one at a time, so it does not observe
// a single consistent snapshot of the whole map.
package cmap
