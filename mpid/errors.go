package mpid

import "errors"

var (
	// ErrNameDerivation indicates the content address of a header or message
	// could not be computed.
	ErrNameDerivation = errors.New("mpid: name derivation failed")

	// ErrMalformedWrapper indicates bytes that do not decode to a known wrapper.
	ErrMalformedWrapper = errors.New("mpid: malformed wrapper")

	// ErrUnknownKind indicates a wrapper tag outside the catalog.
	ErrUnknownKind = errors.New("mpid: unknown wrapper kind")

	// ErrBadSignature indicates a header or message signature that does not verify.
	ErrBadSignature = errors.New("mpid: signature verification failed")
)
