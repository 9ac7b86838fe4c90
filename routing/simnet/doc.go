// Package simnet is an in-process routing runtime for mailbox managers.
//
// A Network holds a set of vaults and client endpoints. Requests addressed to
// a manager group are delivered to the vault whose identity is XOR-closest to
// the group name; requests and responses addressed to a client session go to
// the endpoint registered for that exact session. Everything a handler emits
// is queued and delivered in FIFO order, one item at a time, which gives every
// manager the serialised request stream it expects.
//
// Handler errors are turned into PutFailure or PostFailure responses addressed
// back to the request source. Every delivery attempt can be recorded in a
// delivery log for inspection by tests and the simulation driver.
package simnet
