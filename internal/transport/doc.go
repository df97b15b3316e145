// Package transport connects the BBS to a mesh radio.
//
// A Transport delivers inbound text messages and sends text to a node or to
// the broadcast address. Radio payloads are small, so every outbound message
// goes through a Chunker, which splits text into payload-sized pieces and
// spaces them out with a shared Pacer.
//
// Concrete transports live in subpackages: wsgateway talks to a radio bridge
// daemon over websocket and loopback is an in-process mesh for tests.
package transport
