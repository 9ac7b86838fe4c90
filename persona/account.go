package persona

import (
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/mpid/crypto"
	"github.com/opd-ai/mpid/identity"
	"github.com/opd-ai/mpid/limits"
	"github.com/opd-ai/mpid/routing"
)

// Account holds the registered client sessions and the two mailboxes of one
// account identity.
type Account struct {
	// Kept in registration order; replicas see the same request order, so
	// fan-out over this slice is deterministic.
	clients []routing.Authority
	inbox   *Mailbox
	outbox  *Mailbox
}

// NewAccount creates an account with the full default allowances.
//
// No account creation or admission step exists: every identity touched for the
// first time is granted MaxInboxSize and MaxOutboxSize.
func NewAccount() *Account {
	return &Account{
		inbox:  NewMailbox(limits.MaxInboxSize),
		outbox: NewMailbox(limits.MaxOutboxSize),
	}
}

// PutIntoInbox records a header address in the inbox.
func (a *Account) PutIntoInbox(size uint64, entry identity.ID, senderKey *crypto.PublicKey) bool {
	return a.inbox.Put(size, entry, senderKey)
}

// PutIntoOutbox records a message address in the outbox.
func (a *Account) PutIntoOutbox(size uint64, entry identity.ID, senderKey *crypto.PublicKey) bool {
	return a.outbox.Put(size, entry, senderKey)
}

// RemoveFromInbox releases the quota held by an inbox entry.
func (a *Account) RemoveFromInbox(size uint64, entry identity.ID) bool {
	return a.inbox.Remove(size, entry)
}

// RemoveFromOutbox releases the quota held by an outbox entry.
func (a *Account) RemoveFromOutbox(size uint64, entry identity.ID) bool {
	return a.outbox.Remove(size, entry)
}

// HasInOutbox reports whether a message address is held in the outbox.
func (a *Account) HasInOutbox(entry identity.ID) bool {
	return a.outbox.Has(entry)
}

// RegisterOnline records a client session as online. Registering a session
// twice, or registering an authority that is not a client session, is logged
// and otherwise ignored.
func (a *Account) RegisterOnline(client routing.Authority) {
	if !client.IsClient() {
		logrus.WithFields(logrus.Fields{
			"function":  "Account.RegisterOnline",
			"authority": client.String(),
		}).Warn("Trying to register non-client authority as client")
		return
	}
	if a.IsRegistered(client) {
		logrus.WithFields(logrus.Fields{
			"function":  "Account.RegisterOnline",
			"authority": client.String(),
		}).Warn("Client already registered")
		return
	}
	a.clients = append(a.clients, client)
}

// IsRegistered reports whether client is among the registered sessions.
func (a *Account) IsRegistered(client routing.Authority) bool {
	for _, registered := range a.clients {
		if registered == client {
			return true
		}
	}
	return false
}

// ReceivedHeaders lists the header addresses in the inbox, sorted.
func (a *Account) ReceivedHeaders() []identity.ID {
	return a.inbox.Names()
}

// RegisteredClients returns a copy of the registered client sessions.
func (a *Account) RegisteredClients() []routing.Authority {
	clients := make([]routing.Authority, len(a.clients))
	copy(clients, a.clients)
	return clients
}

// Inbox exposes the inbox mailbox for inspection.
func (a *Account) Inbox() *Mailbox { return a.inbox }

// Outbox exposes the outbox mailbox for inspection.
func (a *Account) Outbox() *Mailbox { return a.outbox }
