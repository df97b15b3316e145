// Package memory provides an in-memory service.Repository.
//
// Rows live in sharded concurrent maps and are lost on restart. It backs
// tests and the "memory" storage engine.
package memory
