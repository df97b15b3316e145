// Package tlsroots builds the client TLS configuration for a wss:// radio
// bridge: system roots plus an optional private CA, and an optional client
// certificate for bridges that require mutual TLS.
package tlsroots
