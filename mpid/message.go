package mpid

import (
	"fmt"

	"github.com/opd-ai/mpid/codec"
	"github.com/opd-ai/mpid/crypto"
	"github.com/opd-ai/mpid/identity"
	"github.com/opd-ai/mpid/limits"
)

// Message is the full payload stored in the sender's outbox.
type Message struct {
	_         struct{} `cbor:",toarray"`
	Header    Header
	Recipient identity.ID
	Body      []byte
	Signature []byte
}

type signedMessage struct {
	_         struct{} `cbor:",toarray"`
	Header    Header
	Recipient identity.ID
	Body      []byte
}

// NewMessage builds and signs a message with a freshly generated header.
func NewMessage(sender *crypto.KeyPair, metadata []byte, recipient identity.ID, body []byte) (Message, error) {
	header, err := NewHeader(sender, metadata)
	if err != nil {
		return Message{}, err
	}
	return NewMessageWithHeader(sender, header, recipient, body)
}

// NewMessageWithHeader builds and signs a message around an existing header.
func NewMessageWithHeader(sender *crypto.KeyPair, header Header, recipient identity.ID, body []byte) (Message, error) {
	if err := limits.ValidateBody(body); err != nil {
		return Message{}, err
	}

	message := Message{
		Header:    header,
		Recipient: recipient,
		Body:      body,
	}
	payload, err := message.signable()
	if err != nil {
		return Message{}, fmt.Errorf("encoding message for signing: %w", err)
	}
	message.Signature = crypto.Sign(payload, sender)
	return message, nil
}

// Validate checks size limits of the header and body.
func (m Message) Validate() error {
	if err := m.Header.Validate(); err != nil {
		return err
	}
	return limits.ValidateBody(m.Body)
}

// Verify checks both the header signature and the message signature.
func (m Message) Verify(publicKey crypto.PublicKey) error {
	if err := m.Header.Verify(publicKey); err != nil {
		return err
	}
	payload, err := m.signable()
	if err != nil {
		return err
	}
	ok, err := crypto.Verify(payload, m.Signature, publicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if !ok {
		return ErrBadSignature
	}
	return nil
}

func (m Message) signable() ([]byte, error) {
	return codec.Marshal(signedMessage{
		Header:    m.Header,
		Recipient: m.Recipient,
		Body:      m.Body,
	})
}

// MessageName computes the content address of a message from the header it
// carries.
func MessageName(m Message) (identity.ID, error) {
	return HeaderName(m.Header)
}
