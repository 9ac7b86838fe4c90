// Package codec is the wire serialization used for every payload that crosses
// the overlay or lands in a content store.
//
// Encoding uses CBOR Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding and no indefinite-length items. Replicas of a
// manager group must emit byte-identical requests, so nothing in this module
// encodes with any other mode.
package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// Structural bounds applied to every decode. Payload size is bounded by
// callers before bytes reach the decoder.
const (
	maxNestedLevels  = 16
	maxArrayElements = 65536
	maxMapPairs      = 1024
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		MaxNestedLevels:  maxNestedLevels,
		MaxArrayElements: maxArrayElements,
		MaxMapPairs:      maxMapPairs,
		// Duplicate map keys would let two encodings decode to the same value.
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// RawMessage is a raw encoded CBOR value, used to delay decoding of a tagged
// payload until its tag has been read.
type RawMessage = cbor.RawMessage
