package persona

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/mpid/identity"
	"github.com/opd-ai/mpid/mpid"
	"github.com/opd-ai/mpid/routing"
)

// HandlePost processes a Post request carrying Online, GetMessage, PutMessage,
// OutboxHas or GetOutboxHeaders.
//
// Lookup misses and unauthorised queries are logged and produce no emission.
// Only payload errors and serialisation failures are returned.
func (m *Manager) HandlePost(node routing.Node, request routing.Request) error {
	if request.Verb != routing.Post {
		return fmt.Errorf("%w: %s request passed to post handler", ErrUnexpectedPayload, request.Verb)
	}

	wrapper, err := mpid.Decode(request.Data.Value)
	if err != nil {
		logrus.WithFields(payloadFields("Manager.HandlePost", request, err)).Warn("Post payload does not parse")
		return fmt.Errorf("%w: %v", ErrUnparseablePayload, err)
	}

	switch w := wrapper.(type) {
	case mpid.Online:
		m.handleOnline(node, request)
		return nil
	case mpid.GetMessage:
		m.handleGetMessage(node, request, w.Header)
		return nil
	case mpid.PutMessage:
		m.handleRelay(node, request, w.Message)
		return nil
	case mpid.OutboxHas:
		return m.handleOutboxHas(node, request, w.Names)
	case mpid.GetOutboxHeaders:
		return m.handleGetOutboxHeaders(node, request)
	default:
		logrus.WithFields(logrus.Fields{
			"function":   "Manager.HandlePost",
			"kind":       wrapper.Kind().String(),
			"message_id": request.MessageID.String(),
		}).Warn("Unexpected wrapper in post request")
		return fmt.Errorf("%w: post %s", ErrUnexpectedPayload, wrapper.Kind())
	}
}

// handleOnline registers the requesting session and asks the sender manager
// of every received header for the full message.
func (m *Manager) handleOnline(node routing.Node, request routing.Request) {
	account := m.accountFor(request.Dst.Name)
	account.RegisterOnline(request.Src)

	for _, name := range account.ReceivedHeaders() {
		data, err := m.inboxStore.Get(name)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Manager.handleOnline",
				"name":     name.Short(),
				"error":    err.Error(),
			}).Debug("Inbox entry not readable")
			continue
		}
		wrapper, err := mpid.Decode(data)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Manager.handleOnline",
				"name":     name.Short(),
				"error":    err.Error(),
			}).Warn("Stored inbox entry does not parse")
			continue
		}
		putHeader, ok := wrapper.(mpid.PutHeader)
		if !ok {
			continue
		}

		headerName, err := mpid.HeaderName(putHeader.Header)
		if err != nil {
			continue
		}
		value, err := mpid.Encode(mpid.GetMessage{Header: putHeader.Header})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Manager.handleOnline",
				"name":     name.Short(),
				"error":    err.Error(),
			}).Error("Failed to encode message request")
			continue
		}
		dst := routing.NewManagerGroup(putHeader.Header.SenderName())
		m.sendPost(node, request.Dst, dst, routing.Data{Name: headerName, Value: value}, request.MessageID)
	}
}

// handleGetMessage answers a recipient manager with the stored message, or
// with a post failure when no matching message addressed to it is held.
func (m *Manager) handleGetMessage(node routing.Node, request routing.Request, header mpid.Header) {
	fields := logrus.Fields{
		"function":   "Manager.handleGetMessage",
		"src":        request.Src.String(),
		"message_id": request.MessageID.String(),
	}

	headerName, err := mpid.HeaderName(header)
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Cannot derive header name")
		m.sendPostFailure(node, request)
		return
	}
	data, err := m.outboxStore.Get(headerName)
	if err != nil {
		logrus.WithFields(fields).WithError(err).Debug("Requested message not held")
		m.sendPostFailure(node, request)
		return
	}
	wrapper, err := mpid.Decode(data)
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Stored outbox entry does not parse")
		m.sendPostFailure(node, request)
		return
	}
	putMessage, ok := wrapper.(mpid.PutMessage)
	if !ok {
		logrus.WithFields(fields).Warn("Stored outbox entry is not a message")
		m.sendPostFailure(node, request)
		return
	}
	messageName, err := mpid.MessageName(putMessage.Message)
	if err != nil || messageName != headerName || putMessage.Message.Recipient != request.Src.GetName() {
		logrus.WithFields(fields).Debug("Requested message does not match requester")
		m.sendPostFailure(node, request)
		return
	}

	m.sendPost(node, request.Dst, request.Src, routing.Data{Name: messageName, Value: data}, request.MessageID)
}

// handleRelay forwards a message to every registered session of its
// recipient.
func (m *Manager) handleRelay(node routing.Node, request routing.Request, message mpid.Message) {
	account, ok := m.accounts[request.Dst.Name]
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.handleRelay",
			"account":  request.Dst.Name.Short(),
		}).Warn("Cannot find account for relayed message")
		return
	}
	if message.Recipient != request.Dst.Name {
		logrus.WithFields(logrus.Fields{
			"function":  "Manager.handleRelay",
			"account":   request.Dst.Name.Short(),
			"recipient": message.Recipient.Short(),
		}).Warn("Relayed message is not addressed to this account")
		return
	}

	for _, client := range account.RegisteredClients() {
		m.sendPost(node, request.Dst, client, request.Data, request.MessageID)
	}
}

// handleOutboxHas answers in the order the names were asked for, repeating a
// header each time its name repeats. The request bytes are the same on every
// replica, so the response is too.
func (m *Manager) handleOutboxHas(node routing.Node, request routing.Request, names []identity.ID) error {
	account, ok := m.registeredAccount(request, "Manager.handleOutboxHas")
	if !ok {
		return nil
	}

	headers := make([]mpid.Header, 0, len(names))
	for _, name := range names {
		if !account.HasInOutbox(name) {
			continue
		}
		if header, ok := m.outboxHeader(name); ok {
			headers = append(headers, header)
		}
	}

	value, err := mpid.Encode(mpid.OutboxHasResponse{Headers: headers})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialisation, err)
	}
	m.sendPost(node, request.Dst, request.Src, routing.Data{Name: request.Dst.Name, Value: value}, request.MessageID)
	return nil
}

// handleGetOutboxHeaders enumerates the inbox index, not the outbox, and looks
// each address up in the outbox store. Peers depend on this listing, so it is
// kept as is.
func (m *Manager) handleGetOutboxHeaders(node routing.Node, request routing.Request) error {
	account, ok := m.registeredAccount(request, "Manager.handleGetOutboxHeaders")
	if !ok {
		return nil
	}

	received := account.ReceivedHeaders()
	headers := make([]mpid.Header, 0, len(received))
	for _, name := range received {
		if header, ok := m.outboxHeader(name); ok {
			headers = append(headers, header)
		}
	}

	value, err := mpid.Encode(mpid.GetOutboxHeadersResponse{Headers: headers})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialisation, err)
	}
	m.sendPost(node, request.Dst, request.Src, routing.Data{Name: request.Dst.Name, Value: value}, request.MessageID)
	return nil
}

// registeredAccount gates the outbox queries: the account must exist and the
// requester must be one of its registered sessions.
func (m *Manager) registeredAccount(request routing.Request, function string) (*Account, bool) {
	account, ok := m.accounts[request.Dst.Name]
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": function,
			"account":  request.Dst.Name.Short(),
		}).Warn("Cannot find account")
		return nil, false
	}
	if !account.IsRegistered(request.Src) {
		logrus.WithFields(logrus.Fields{
			"function": function,
			"account":  request.Dst.Name.Short(),
			"src":      request.Src.String(),
		}).Warn("Query from unregistered client")
		return nil, false
	}
	return account, true
}

func (m *Manager) sendPost(node routing.Node, src, dst routing.Authority, data routing.Data, id routing.MessageID) {
	if err := node.SendPostRequest(src, dst, data, id); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "Manager.sendPost",
			"dst":        dst.String(),
			"message_id": id.String(),
			"error":      err.Error(),
		}).Warn("Failed to send post request")
	}
}

func (m *Manager) sendPostFailure(node routing.Node, request routing.Request) {
	if err := node.SendPostFailure(request.Dst, request.Src, request, nil, request.MessageID); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "Manager.sendPostFailure",
			"dst":        request.Src.String(),
			"message_id": request.MessageID.String(),
			"error":      err.Error(),
		}).Warn("Failed to send post failure")
	}
}
