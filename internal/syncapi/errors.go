package syncapi

import (
	"errors"
	"fmt"
)

// Kind classifies a transport client failure.
type Kind int

const (
	// KindTransport: the request never produced an HTTP response
	// (connection refused, DNS, TLS, timeout, bad request body).
	KindTransport Kind = iota + 1

	// KindServer: the server answered with a non-2xx status.
	KindServer

	// KindDecode: a 2xx body did not match the expected shape.
	KindDecode

	// KindMissingLink: the operation needs a remote id the record does not
	// have. A programmer error, not a network condition.
	KindMissingLink
)

// decodeStatus is the fixed sentinel distinguishing an unparseable 2xx body
// from a real HTTP error status.
const decodeStatus = "418"

// Error is the single failure taxonomy every transport call normalizes to.
// Status is the HTTP status text, "0" when no response was ever received,
// or the decode sentinel.
type Error struct {
	Kind    Kind
	Status  string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Error %s %s", e.Status, e.Message)
}

// ErrMissingExternalID is returned when a record-scoped call is made for a
// record that has no remote identity.
var ErrMissingExternalID = &Error{Kind: KindMissingLink, Status: "400", Message: "missing external id"}

// IsKind reports whether err is a transport client Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func transportError(message string) *Error {
	return &Error{Kind: KindTransport, Status: "0", Message: message}
}

func serverError(status string) *Error {
	return &Error{Kind: KindServer, Status: status, Message: "error from server"}
}

func decodeError() *Error {
	return &Error{Kind: KindDecode, Status: decodeStatus, Message: "could not parse server response"}
}
