// Package mpid defines the message formats and the wire payload catalog of the
// mpid messaging protocol.
//
// # Formats
//
// A [Header] is the lightweight notification that names a message: it carries
// the sender's account identity, a random GUID, optional metadata and the
// sender's signature. A [Message] carries a header, the recipient identity and
// the body. Both are content-addressed:
//
//	name, err := mpid.HeaderName(header)   // address of the header
//	name, err := mpid.MessageName(message) // address of the message
//
// A message's address is derived from the header it carries, so the two agree
// exactly when the message was built from that header. Managers compare them
// before handing a stored message to a requester.
//
// # Wire Catalog
//
// Every request carries exactly one [Wrapper] variant:
//
//   - [PutHeader]: header notification into the recipient's inbox
//   - [PutMessage]: full message into the sender's outbox, or a relay to a client
//   - [Online]: client presence announcement
//   - [GetMessage]: manager-to-manager fetch of a full message
//   - [OutboxHas] / [OutboxHasResponse]: outbox introspection
//   - [GetOutboxHeaders] / [GetOutboxHeadersResponse]: full outbox listing
//
// Wrappers are encoded with the deterministic codec and dispatched with a
// single type switch:
//
//	wrapper, err := mpid.Decode(data)
//	switch w := wrapper.(type) {
//	case mpid.PutHeader:
//	case mpid.PutMessage:
//	...
//	}
package mpid
