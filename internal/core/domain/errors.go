package domain

import (
	"errors"
	"strings"
)

// DomainError is an error carrying a stable BBS-* code.
//
// Codes follow BBS-<AREA>-<NNNN>; the first digit of the number mirrors the
// HTTP status class the admin API reports for it.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(e.Code)
	b.WriteString("] ")
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString(": ")
		b.WriteString(e.Details)
	}
	return b.String()
}

func (e *DomainError) Unwrap() error { return e.Cause }

// Is matches any DomainError with the same code, so sentinels compare equal to
// copies made by WithDetails and WithCause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// HTTPStatus maps the code to the status the admin API answers with.
func (e *DomainError) HTTPStatus() int {
	i := strings.LastIndexByte(e.Code, '-')
	n := e.Code[i+1:]
	if len(n) < 3 {
		return 500
	}
	status := 0
	for _, c := range n[:3] {
		if c < '0' || c > '9' {
			return 500
		}
		status = status*10 + int(c-'0')
	}
	if status < 400 || status > 599 {
		return 500
	}
	return status
}

// NewDomainError returns a sentinel with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WithDetails copies e and attaches details. The sentinel is left untouched.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause copies e and wraps cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// IsDomainError reports whether err wraps a DomainError, optionally with the
// given code.
func IsDomainError(err error, code string) bool {
	got := GetErrorCode(err)
	return got != "" && (code == "" || got == code)
}

// GetErrorCode returns the code of the first DomainError in err's chain.
func GetErrorCode(err error) string {
	var de *DomainError
	if !errors.As(err, &de) {
		return ""
	}
	return de.Code
}

// Lookup failures.
var (
	// ErrMailNotFound covers both a missing mail and one addressed to someone
	// else; callers cannot tell the two apart.
	ErrMailNotFound     = NewDomainError("BBS-MAIL-4040", "mail not found")
	ErrBulletinNotFound = NewDomainError("BBS-BULL-4040", "bulletin not found")
	ErrChannelNotFound  = NewDomainError("BBS-CHAN-4040", "channel not found")
	ErrNodeNotFound     = NewDomainError("BBS-NODE-4040", "node not found")
	ErrNodeAmbiguous    = NewDomainError("BBS-NODE-4090", "short name matches multiple nodes")
)

// Rejected input.
var (
	// ErrPermissionDenied is returned for posts to a restricted board.
	ErrPermissionDenied = NewDomainError("BBS-AUTH-4030", "permission denied")
	ErrInvalidArgument  = NewDomainError("BBS-ARG-4000", "invalid argument")
	ErrMalformedSync    = NewDomainError("BBS-SYNC-4000", "malformed sync line")
)

// Node faults.
var (
	ErrStorageError   = NewDomainError("BBS-SYS-5001", "storage error")
	ErrTransportError = NewDomainError("BBS-SYS-5002", "transport error")
)
