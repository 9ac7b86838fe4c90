package routing

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/opd-ai/mpid/identity"
)

// Verb is the request method.
type Verb uint8

const (
	Put Verb = iota + 1
	Post
)

// String returns the human-readable name of a verb.
func (v Verb) String() string {
	switch v {
	case Put:
		return "Put"
	case Post:
		return "Post"
	default:
		return fmt.Sprintf("unknown(%d)", v)
	}
}

// MessageID correlates a request with the requests and responses it causes.
type MessageID uuid.UUID

// NewMessageID returns a random correlation id. Only clients mint ids;
// managers reuse the id of the request they are handling.
func NewMessageID() MessageID {
	return MessageID(uuid.New())
}

// String returns the canonical UUID form.
func (id MessageID) String() string {
	return uuid.UUID(id).String()
}

// Data is a named blob: Value is an encoded wrapper and Name its content
// address (or the addressed account for wrappers without one).
type Data struct {
	_     struct{} `cbor:",toarray"`
	Name  identity.ID
	Value []byte
}

// PayloadSize is the number of bytes the data occupies in a mailbox quota.
func (d Data) PayloadSize() uint64 {
	return uint64(len(d.Value))
}

// Request is a Put or Post travelling between two authorities.
type Request struct {
	_         struct{} `cbor:",toarray"`
	Src       Authority
	Dst       Authority
	Verb      Verb
	Data      Data
	MessageID MessageID
}

// ResponseKind distinguishes failure responses.
type ResponseKind uint8

const (
	PutFailure ResponseKind = iota + 1
	PostFailure
)

// String returns the human-readable name of a response kind.
func (k ResponseKind) String() string {
	switch k {
	case PutFailure:
		return "PutFailure"
	case PostFailure:
		return "PostFailure"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Response reports the failure of a request back to its source.
type Response struct {
	_             struct{} `cbor:",toarray"`
	Kind          ResponseKind
	Src           Authority
	Dst           Authority
	Request       Request
	ExternalError []byte
	MessageID     MessageID
}
