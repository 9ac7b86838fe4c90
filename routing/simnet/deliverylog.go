package simnet

import (
	"github.com/opd-ai/mpid/identity"
	"github.com/opd-ai/mpid/routing"
)

// DeliveryRecord describes one delivery attempt. Exactly one of Verb and
// Response is set.
type DeliveryRecord struct {
	Seq         uint64
	Verb        routing.Verb
	Response    routing.ResponseKind
	Src         routing.Authority
	Dst         routing.Authority
	MessageID   routing.MessageID
	PayloadSize int

	// Vault is the node that handled a manager-group request.
	Vault identity.ID

	// Undeliverable is set when no vault or endpoint could take the item.
	Undeliverable bool

	// Error is the routing error or the handler error, if any.
	Error error
}

// IsResponse reports whether the record describes a failure response.
func (r DeliveryRecord) IsResponse() bool {
	return r.Response != 0
}

// DeliveryStats summarises the delivery log.
type DeliveryStats struct {
	Total         int
	Requests      int
	Responses     int
	HandlerErrors int
	Undeliverable int
}

func (n *Network) record(record DeliveryRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.seq++
	if !n.opts.DeliveryLog {
		return
	}
	record.Seq = n.seq
	n.deliveryLog = append(n.deliveryLog, record)
	if limit := n.opts.MaxDeliveryLog; limit > 0 && len(n.deliveryLog) > limit {
		n.deliveryLog = append([]DeliveryRecord(nil), n.deliveryLog[len(n.deliveryLog)-limit:]...)
	}
}

// DeliveryLog returns a copy of the retained records, oldest first.
func (n *Network) DeliveryLog() []DeliveryRecord {
	n.mu.Lock()
	defer n.mu.Unlock()

	log := make([]DeliveryRecord, len(n.deliveryLog))
	copy(log, n.deliveryLog)
	return log
}

// ClearDeliveryLog drops every retained record.
func (n *Network) ClearDeliveryLog() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveryLog = nil
}

// Stats summarises the retained records.
func (n *Network) Stats() DeliveryStats {
	n.mu.Lock()
	defer n.mu.Unlock()

	stats := DeliveryStats{Total: len(n.deliveryLog)}
	for _, record := range n.deliveryLog {
		if record.IsResponse() {
			stats.Responses++
		} else {
			stats.Requests++
		}
		switch {
		case record.Undeliverable:
			stats.Undeliverable++
		case record.Error != nil:
			stats.HandlerErrors++
		}
	}
	return stats
}
