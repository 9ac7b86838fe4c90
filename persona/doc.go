// Package persona implements the per-account mailbox manager of the mpid
// messaging protocol.
//
// For every account identity the Manager keeps an Account with two
// quota-tracked Mailboxes: the inbox holds the addresses of header
// notifications and the outbox holds the addresses of full messages. Entry
// bytes live in two content stores. The Manager interprets inbound Put and
// Post requests, mutates this state, and emits further requests through a
// routing.Node.
//
// # Put
//
//   - PutHeader stores a notification in the destination account's inbox.
//   - PutMessage stores a full message in the sender's outbox and notifies the
//     recipient's manager group with a PutHeader.
//
// A content address that already exists fails the request with ErrDataExists,
// while a mailbox that rejects an entry (quota exhausted) drops it silently.
//
// # Post
//
//   - Online registers a client session and asks the sender manager of every
//     received header for the full message (GetMessage).
//   - GetMessage answers with the stored message when its address and
//     recipient match the requester, or with a post failure.
//   - PutMessage relays a message to every registered session of its recipient.
//   - OutboxHas and GetOutboxHeaders answer registered sessions only; other
//     requesters get no response at all.
//
// # Determinism
//
// Every replica of a manager group runs this logic against its own copy of the
// state, so the Manager reads no clock, mints no ids, and sorts every set of
// addresses it enumerates from its own state before it reaches the wire.
// Address lists supplied by a request keep their order. It is not safe for concurrent use; the
// runtime delivers one request at a time to each instance.
package persona
