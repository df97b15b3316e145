// Package domain defines the core domain models for MeshBBS.
//
// Domain models are plain values without IO dependencies. This package contains:
//
//   - Bulletin: a post on a named board
//   - Mail: a private message between two nodes
//   - Channel: a channel directory entry
//   - NodeInfo: what the radio knows about another node
//   - Errors: domain error codes
//
// Bulletins and mail carry a unique_id that is generated once on the node where
// the row was first created and travels unchanged to every peer.
package domain
