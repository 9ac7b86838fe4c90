package persona

import "errors"

var (
	// ErrDataExists indicates the content address already occupies the target
	// store or mailbox. Fatal to the individual Put request.
	ErrDataExists = errors.New("data exists")

	// ErrStoreFailure indicates a content store write failed while persisting a
	// full message.
	ErrStoreFailure = errors.New("store failure")

	// ErrSerialisation indicates an outbound wrapper could not be encoded.
	ErrSerialisation = errors.New("serialisation failure")

	// ErrUnparseablePayload indicates the inbound request data is not a wrapper.
	ErrUnparseablePayload = errors.New("unparseable payload")

	// ErrUnexpectedPayload indicates a verb/variant combination the request
	// router should never have delivered here.
	ErrUnexpectedPayload = errors.New("unexpected payload for verb")
)
