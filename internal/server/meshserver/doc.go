// Package meshserver runs a BBS node on a radio transport.
//
// A Server reads inbound messages from the transport and dispatches them to
// a fixed number of worker lanes. The lane is chosen by hashing the sender
// id, so messages from one sender are always handled in arrival order while
// different senders may proceed in parallel. With one lane (the default)
// exactly one message is handled at a time.
//
// The Server owns the wiring between the domain services, the replication
// engine, the chunked sender and the command router.
package meshserver
