package persona

import (
	"github.com/opd-ai/mpid/crypto"
	"github.com/opd-ai/mpid/identity"
)

// Mailbox is a quota-tracked set of content addresses.
//
// usedSpace + spaceAvailable == allowance holds after every operation. An
// entry's presence in entries is exactly the set of addresses occupying quota.
type Mailbox struct {
	allowance      uint64
	usedSpace      uint64
	spaceAvailable uint64
	// address of the header or message -> sender's public key. The key slot
	// is never populated yet.
	entries map[identity.ID]*crypto.PublicKey
}

// NewMailbox creates an empty mailbox with the given allowance.
func NewMailbox(allowance uint64) *Mailbox {
	return &Mailbox{
		allowance:      allowance,
		spaceAvailable: allowance,
		entries:        make(map[identity.ID]*crypto.PublicKey),
	}
}

// Put records entry as occupying size bytes. It returns false, leaving the
// mailbox unchanged, when entry is already present or size exceeds the space
// available.
func (m *Mailbox) Put(size uint64, entry identity.ID, senderKey *crypto.PublicKey) bool {
	if size > m.spaceAvailable {
		return false
	}
	if _, exists := m.entries[entry]; exists {
		return false
	}
	m.entries[entry] = senderKey
	m.usedSpace += size
	m.spaceAvailable -= size
	return true
}

// Remove reverses a Put of entry with the same size. It returns false when
// entry is absent or size exceeds the space in use.
func (m *Mailbox) Remove(size uint64, entry identity.ID) bool {
	if _, exists := m.entries[entry]; !exists {
		return false
	}
	if size > m.usedSpace {
		return false
	}
	delete(m.entries, entry)
	m.usedSpace -= size
	m.spaceAvailable += size
	return true
}

// Has reports whether entry occupies the mailbox.
func (m *Mailbox) Has(entry identity.ID) bool {
	_, exists := m.entries[entry]
	return exists
}

// SenderKey returns the sender key recorded with entry, if any.
func (m *Mailbox) SenderKey(entry identity.ID) (*crypto.PublicKey, bool) {
	key, exists := m.entries[entry]
	return key, exists
}

// Names lists the current entries in bytewise order.
func (m *Mailbox) Names() []identity.ID {
	names := make([]identity.ID, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	identity.Sort(names)
	return names
}

// Len returns the number of entries.
func (m *Mailbox) Len() int { return len(m.entries) }

// Allowance returns the fixed maximum number of bytes the mailbox may hold.
func (m *Mailbox) Allowance() uint64 { return m.allowance }

// UsedSpace returns the number of bytes held.
func (m *Mailbox) UsedSpace() uint64 { return m.usedSpace }

// SpaceAvailable returns the number of bytes still free.
func (m *Mailbox) SpaceAvailable() uint64 { return m.spaceAvailable }
