package mpid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/opd-ai/mpid/codec"
	"github.com/opd-ai/mpid/crypto"
	"github.com/opd-ai/mpid/identity"
	"github.com/opd-ai/mpid/limits"
)

// Header references a full message without its body.
type Header struct {
	_         struct{} `cbor:",toarray"`
	Sender    identity.ID
	GUID      uuid.UUID
	Metadata  []byte
	Signature []byte
}

// signedHeader is the portion of a header covered by the sender's signature.
type signedHeader struct {
	_        struct{} `cbor:",toarray"`
	Sender   identity.ID
	GUID     uuid.UUID
	Metadata []byte
}

// NewHeader creates and signs a header with a fresh random GUID.
func NewHeader(sender *crypto.KeyPair, metadata []byte) (Header, error) {
	return NewHeaderWithGUID(sender, uuid.New(), metadata)
}

// NewHeaderWithGUID creates and signs a header with the given GUID.
func NewHeaderWithGUID(sender *crypto.KeyPair, guid uuid.UUID, metadata []byte) (Header, error) {
	if err := limits.ValidateMetadata(metadata); err != nil {
		return Header{}, err
	}

	header := Header{
		Sender:   identity.FromPublicKey(sender.Public),
		GUID:     guid,
		Metadata: metadata,
	}

	payload, err := header.signable()
	if err != nil {
		return Header{}, fmt.Errorf("encoding header for signing: %w", err)
	}
	header.Signature = crypto.Sign(payload, sender)
	return header, nil
}

// SenderName returns the account identity of the sender.
func (h Header) SenderName() identity.ID {
	return h.Sender
}

// Validate checks size limits. It does not verify the signature.
func (h Header) Validate() error {
	return limits.ValidateMetadata(h.Metadata)
}

// Verify checks that the header was signed by publicKey and that publicKey owns
// the sender identity.
func (h Header) Verify(publicKey crypto.PublicKey) error {
	if identity.FromPublicKey(publicKey) != h.Sender {
		return fmt.Errorf("%w: key does not own sender %s", ErrBadSignature, h.Sender.Short())
	}
	payload, err := h.signable()
	if err != nil {
		return err
	}
	ok, err := crypto.Verify(payload, h.Signature, publicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if !ok {
		return ErrBadSignature
	}
	return nil
}

func (h Header) signable() ([]byte, error) {
	return codec.Marshal(signedHeader{
		Sender:   h.Sender,
		GUID:     h.GUID,
		Metadata: h.Metadata,
	})
}

// HeaderName computes the content address of a header: the keyed BLAKE3 hash of
// its deterministic encoding, signature included.
func HeaderName(h Header) (identity.ID, error) {
	encoded, err := codec.Marshal(h)
	if err != nil {
		return identity.ID{}, fmt.Errorf("%w: %v", ErrNameDerivation, err)
	}
	return identity.HashHeader(encoded), nil
}
