// Package session keeps the per-sender dialogue state of the BBS.
//
// A sender has at most one State. Handlers read it, compute the next value
// and hand it back whole; a State is never patched in place. Nothing expires:
// a sender who walks away mid-dialogue resumes at the same step next time.
package session
