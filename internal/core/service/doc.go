// Package service provides domain services for MeshBBS.
//
// Domain services hold the business rules for bulletins, mail and the
// channel directory. They define the storage interfaces they need, so any
// engine in internal/storage can back them, and they report changes to an
// optional Publisher (replication) and Announcer (radio notifications).
//
// This package contains:
//
//   - BulletinService: posting, listing and deleting bulletins
//   - MailService: sending, reading and deleting mail scoped to its recipient
//   - ChannelService: the channel directory
//
// Every write takes an Origin. Writes that arrived from a peer are stored and
// never published again, which keeps replication to a single hop.
package service
