// Package replication copies bulletins, mail and deletes to trusted peer
// BBS nodes over the radio.
//
// Each change is one pipe-delimited text line sent to every configured peer
// (one hop, no acknowledgement). Lines longer than a radio payload arrive in
// several chunks and are reassembled per peer before they are applied. Rows
// applied from a peer are never published again.
package replication
