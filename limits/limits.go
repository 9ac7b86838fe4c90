// Package limits provides centralized size limits for the mpid messaging protocol.
// This ensures consistent validation across the message format, the mailbox quota
// accounting and the storage layers.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxHeaderMetadataSize is the largest metadata blob a message header may carry
	MaxHeaderMetadataSize = 128

	// MaxBodySize is the largest body a full message may carry. It leaves room for the
	// header and signatures inside a 100 KiB wire frame.
	MaxBodySize = 102400 - 512 - MaxHeaderMetadataSize

	// MaxInboxSize is the allowance granted to every account inbox (128 MiB).
	// There is no account creation step; every account receives it on first touch.
	MaxInboxSize uint64 = 1 << 27

	// MaxOutboxSize is the allowance granted to every account outbox (128 MiB).
	MaxOutboxSize uint64 = 1 << 27

	// MaxProcessingBuffer is the absolute maximum for any encoded wrapper accepted
	// by the wire decoder (1MB)
	MaxProcessingBuffer = 1024 * 1024
)

var (
	// ErrEmpty indicates an empty payload was provided
	ErrEmpty = errors.New("empty payload")

	// ErrTooLarge indicates a payload exceeds its maximum size
	ErrTooLarge = errors.New("payload too large")
)

// ValidateSize validates data against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidateSize(data []byte, maxSize int) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if len(data) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrTooLarge, len(data), maxSize)
	}
	return nil
}

// ValidateMetadata validates header metadata. Metadata is optional, so an empty
// slice is accepted.
func ValidateMetadata(metadata []byte) error {
	if len(metadata) > MaxHeaderMetadataSize {
		return fmt.Errorf("%w: metadata size %d exceeds limit %d", ErrTooLarge, len(metadata), MaxHeaderMetadataSize)
	}
	return nil
}

// ValidateBody validates a message body against MaxBodySize.
func ValidateBody(body []byte) error {
	if len(body) == 0 {
		return ErrEmpty
	}
	if len(body) > MaxBodySize {
		return fmt.Errorf("%w: body size %d exceeds limit %d", ErrTooLarge, len(body), MaxBodySize)
	}
	return nil
}

// ValidateProcessingBuffer validates data against the absolute maximum (MaxProcessingBuffer).
// This limit should be applied to all untrusted input before decoding.
func ValidateProcessingBuffer(data []byte) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if len(data) > MaxProcessingBuffer {
		return fmt.Errorf("%w: buffer size %d exceeds limit %d", ErrTooLarge, len(data), MaxProcessingBuffer)
	}
	return nil
}
