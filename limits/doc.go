// Package limits provides centralized size constants and validation functions
// for the mpid messaging protocol.
//
// # Size Hierarchy
//
//   - MaxHeaderMetadataSize (128 bytes): opaque metadata carried by a header.
//
//   - MaxBodySize: the body of a full message. Header, signatures and body together
//     fit within a 100 KiB frame.
//
//   - MaxInboxSize / MaxOutboxSize (128 MiB each): the fixed allowance of an account
//     mailbox. These are not derived from any admission step; every account that is
//     touched for the first time is granted both in full.
//
//   - MaxProcessingBuffer (1MB): the absolute maximum for any encoded payload.
//
// # Validation Functions
//
//	if err := limits.ValidateBody(body); err != nil {
//	    // ErrEmpty or ErrTooLarge
//	}
//
// For custom size limits, use the generic ValidateSize function:
//
//	err := limits.ValidateSize(data, 4096)
package limits
