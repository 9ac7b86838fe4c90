package mpid

import (
	"fmt"

	"github.com/opd-ai/mpid/codec"
	"github.com/opd-ai/mpid/identity"
	"github.com/opd-ai/mpid/limits"
)

// Kind tags a wrapper variant on the wire. Values are protocol constants.
type Kind uint8

const (
	KindPutHeader Kind = iota + 1
	KindPutMessage
	KindOnline
	KindGetMessage
	KindOutboxHas
	KindOutboxHasResponse
	KindGetOutboxHeaders
	KindGetOutboxHeadersResponse
)

// String returns the human-readable name of a kind.
func (k Kind) String() string {
	switch k {
	case KindPutHeader:
		return "PutHeader"
	case KindPutMessage:
		return "PutMessage"
	case KindOnline:
		return "Online"
	case KindGetMessage:
		return "GetMessage"
	case KindOutboxHas:
		return "OutboxHas"
	case KindOutboxHasResponse:
		return "OutboxHasResponse"
	case KindGetOutboxHeaders:
		return "GetOutboxHeaders"
	case KindGetOutboxHeadersResponse:
		return "GetOutboxHeadersResponse"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Wrapper is the closed set of payloads a request may carry. Only the types in
// this package implement it.
type Wrapper interface {
	Kind() Kind
	isWrapper()
}

// PutHeader notifies a recipient's manager of a new message.
type PutHeader struct {
	Header Header
}

// PutMessage deposits a full message, or relays one to a client.
type PutMessage struct {
	Message Message
}

// Online announces a client session to its account's manager.
type Online struct{}

// GetMessage asks the sender's manager for the message named by Header.
type GetMessage struct {
	Header Header
}

// OutboxHas asks which of Names are still held in the requester's outbox.
type OutboxHas struct {
	Names []identity.ID
}

// OutboxHasResponse lists the headers of the outbox entries that were present.
type OutboxHasResponse struct {
	Headers []Header
}

// GetOutboxHeaders asks for every header held in the requester's outbox.
type GetOutboxHeaders struct{}

// GetOutboxHeadersResponse answers GetOutboxHeaders.
type GetOutboxHeadersResponse struct {
	Headers []Header
}

func (PutHeader) Kind() Kind                { return KindPutHeader }
func (PutMessage) Kind() Kind               { return KindPutMessage }
func (Online) Kind() Kind                   { return KindOnline }
func (GetMessage) Kind() Kind               { return KindGetMessage }
func (OutboxHas) Kind() Kind                { return KindOutboxHas }
func (OutboxHasResponse) Kind() Kind        { return KindOutboxHasResponse }
func (GetOutboxHeaders) Kind() Kind         { return KindGetOutboxHeaders }
func (GetOutboxHeadersResponse) Kind() Kind { return KindGetOutboxHeadersResponse }

func (PutHeader) isWrapper()                {}
func (PutMessage) isWrapper()               {}
func (Online) isWrapper()                   {}
func (GetMessage) isWrapper()               {}
func (OutboxHas) isWrapper()                {}
func (OutboxHasResponse) isWrapper()        {}
func (GetOutboxHeaders) isWrapper()         {}
func (GetOutboxHeadersResponse) isWrapper() {}

// envelope is the on-wire form: the kind tag followed by the variant body.
type envelope struct {
	_    struct{} `cbor:",toarray"`
	Kind Kind
	Body codec.RawMessage
}

// Encode serializes a wrapper.
func Encode(w Wrapper) ([]byte, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil wrapper", ErrMalformedWrapper)
	}
	body, err := codec.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encoding %s body: %w", w.Kind(), err)
	}
	return codec.Marshal(envelope{Kind: w.Kind(), Body: body})
}

// Decode parses bytes produced by Encode. Input larger than
// limits.MaxProcessingBuffer is rejected before decoding, and decoded headers
// and messages must respect their size limits.
func Decode(data []byte) (Wrapper, error) {
	if err := limits.ValidateProcessingBuffer(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedWrapper, err)
	}

	var env envelope
	if err := codec.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWrapper, err)
	}

	var (
		w   Wrapper
		err error
	)
	switch env.Kind {
	case KindPutHeader:
		var v PutHeader
		err = codec.Unmarshal(env.Body, &v)
		w = v
	case KindPutMessage:
		var v PutMessage
		err = codec.Unmarshal(env.Body, &v)
		w = v
	case KindOnline:
		w = Online{}
	case KindGetMessage:
		var v GetMessage
		err = codec.Unmarshal(env.Body, &v)
		w = v
	case KindOutboxHas:
		var v OutboxHas
		err = codec.Unmarshal(env.Body, &v)
		w = v
	case KindOutboxHasResponse:
		var v OutboxHasResponse
		err = codec.Unmarshal(env.Body, &v)
		w = v
	case KindGetOutboxHeaders:
		w = GetOutboxHeaders{}
	case KindGetOutboxHeadersResponse:
		var v GetOutboxHeadersResponse
		err = codec.Unmarshal(env.Body, &v)
		w = v
	default:
		return nil, fmt.Errorf("%w: %w", ErrMalformedWrapper, ErrUnknownKind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s body: %v", ErrMalformedWrapper, env.Kind, err)
	}
	if err := validate(w); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedWrapper, env.Kind, err)
	}
	return w, nil
}

func validate(w Wrapper) error {
	switch v := w.(type) {
	case PutHeader:
		return v.Header.Validate()
	case PutMessage:
		return v.Message.Validate()
	case GetMessage:
		return v.Header.Validate()
	case OutboxHasResponse:
		return validateHeaders(v.Headers)
	case GetOutboxHeadersResponse:
		return validateHeaders(v.Headers)
	}
	return nil
}

func validateHeaders(headers []Header) error {
	for _, h := range headers {
		if err := h.Validate(); err != nil {
			return err
		}
	}
	return nil
}
