package persona

import (
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/mpid/chunkstore"
	"github.com/opd-ai/mpid/identity"
	"github.com/opd-ai/mpid/mpid"
)

// Manager is the mailbox manager of one vault.
//
// Accounts are created lazily the first time an identity is touched by a
// storing operation. The two content stores map addresses to the serialised
// wrapper bytes: PutHeader wrappers in inboxStore, PutMessage wrappers in
// outboxStore.
type Manager struct {
	accounts    map[identity.ID]*Account
	inboxStore  chunkstore.Store
	outboxStore chunkstore.Store
}

// NewManager creates a Manager with no accounts backed by the given stores.
func NewManager(inboxStore, outboxStore chunkstore.Store) *Manager {
	logrus.WithFields(logrus.Fields{
		"function": "NewManager",
	}).Debug("Creating mailbox manager")

	return &Manager{
		accounts:    make(map[identity.ID]*Account),
		inboxStore:  inboxStore,
		outboxStore: outboxStore,
	}
}

// Account returns the account of id, if it exists.
func (m *Manager) Account(id identity.ID) (*Account, bool) {
	account, ok := m.accounts[id]
	return account, ok
}

// AccountNames lists the identities with an account, sorted.
func (m *Manager) AccountNames() []identity.ID {
	names := make([]identity.ID, 0, len(m.accounts))
	for name := range m.accounts {
		names = append(names, name)
	}
	identity.Sort(names)
	return names
}

// AccountStats is a point-in-time view of one account.
type AccountStats struct {
	Name            identity.ID
	Clients         int
	InboxEntries    int
	InboxUsed       uint64
	InboxAvailable  uint64
	OutboxEntries   int
	OutboxUsed      uint64
	OutboxAvailable uint64
}

// Stats returns a snapshot of every account, ordered by name.
func (m *Manager) Stats() []AccountStats {
	names := m.AccountNames()
	stats := make([]AccountStats, 0, len(names))
	for _, name := range names {
		account := m.accounts[name]
		stats = append(stats, AccountStats{
			Name:            name,
			Clients:         len(account.clients),
			InboxEntries:    account.inbox.Len(),
			InboxUsed:       account.inbox.UsedSpace(),
			InboxAvailable:  account.inbox.SpaceAvailable(),
			OutboxEntries:   account.outbox.Len(),
			OutboxUsed:      account.outbox.UsedSpace(),
			OutboxAvailable: account.outbox.SpaceAvailable(),
		})
	}
	return stats
}

// accountFor returns the account of id, creating it with default allowances.
func (m *Manager) accountFor(id identity.ID) *Account {
	account, ok := m.accounts[id]
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.accountFor",
			"account":  id.Short(),
		}).Debug("Creating account")
		account = NewAccount()
		m.accounts[id] = account
	}
	return account
}

// outboxHeader loads the header of the message stored under name. Entries that
// cannot be read back as a PutMessage are skipped.
func (m *Manager) outboxHeader(name identity.ID) (mpid.Header, bool) {
	data, err := m.outboxStore.Get(name)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.outboxHeader",
			"name":     name.Short(),
			"error":    err.Error(),
		}).Debug("Outbox entry not readable")
		return mpid.Header{}, false
	}
	wrapper, err := mpid.Decode(data)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.outboxHeader",
			"name":     name.Short(),
			"error":    err.Error(),
		}).Warn("Stored outbox entry does not parse")
		return mpid.Header{}, false
	}
	putMessage, ok := wrapper.(mpid.PutMessage)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.outboxHeader",
			"name":     name.Short(),
			"kind":     wrapper.Kind().String(),
		}).Warn("Stored outbox entry is not a message")
		return mpid.Header{}, false
	}
	return putMessage.Message.Header, true
}
