// Package bbs implements the text dialogues a mesh user has with the board.
//
// A Router receives every inbound message. Sync traffic from trusted peers
// goes to the replication engine, quick commands run in one turn, and
// everything else either continues the sender's current dialogue or opens
// the main menu. Each dialogue is a Handler registered under a session tag;
// handlers advance a session.State one step per message and record their
// replies on a Turn. The Router commits the new state and then sends the
// replies through the chunker.
//
// Handlers never fail: every branch ends in a reply plus a state transition
// or a reset.
package bbs
