package persona

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/mpid/logging"
	"github.com/opd-ai/mpid/mpid"
	"github.com/opd-ai/mpid/routing"
)

// HandlePut processes a Put request carrying a PutHeader or PutMessage.
//
// The returned error is surfaced to the runtime, which answers the requester
// with a put failure. Quota rejections are not errors: the entry is dropped.
func (m *Manager) HandlePut(node routing.Node, request routing.Request) error {
	if request.Verb != routing.Put {
		return fmt.Errorf("%w: %s request passed to put handler", ErrUnexpectedPayload, request.Verb)
	}

	wrapper, err := mpid.Decode(request.Data.Value)
	if err != nil {
		logrus.WithFields(payloadFields("Manager.HandlePut", request, err)).Warn("Put payload does not parse")
		return fmt.Errorf("%w: %v", ErrUnparseablePayload, err)
	}

	switch w := wrapper.(type) {
	case mpid.PutHeader:
		return m.handlePutHeader(request, w.Header)
	case mpid.PutMessage:
		return m.handlePutMessage(node, request, w.Message)
	default:
		logrus.WithFields(logrus.Fields{
			"function":   "Manager.HandlePut",
			"kind":       wrapper.Kind().String(),
			"message_id": request.MessageID.String(),
		}).Warn("Unexpected wrapper in put request")
		return fmt.Errorf("%w: put %s", ErrUnexpectedPayload, wrapper.Kind())
	}
}

func (m *Manager) handlePutHeader(request routing.Request, header mpid.Header) error {
	name, err := mpid.HeaderName(header)
	if err != nil {
		return err
	}
	if m.inboxStore.Has(name) {
		return fmt.Errorf("%w: header %s", ErrDataExists, name.Short())
	}

	account := m.accountFor(request.Dst.Name)
	if !account.PutIntoInbox(request.Data.PayloadSize(), name, nil) {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.handlePutHeader",
			"account":  request.Dst.Name.Short(),
			"name":     name.Short(),
			"size":     request.Data.PayloadSize(),
		}).Debug("Inbox rejected header")
		return nil
	}

	if err := m.inboxStore.Put(name, request.Data.Value); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.handlePutHeader",
			"account":  request.Dst.Name.Short(),
			"name":     name.Short(),
			"error":    err.Error(),
		}).Error("Failed to store header")
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "Manager.handlePutHeader",
		"account":  request.Dst.Name.Short(),
		"name":     name.Short(),
	}).Debug("Stored header")
	return nil
}

func (m *Manager) handlePutMessage(node routing.Node, request routing.Request, message mpid.Message) error {
	name, err := mpid.MessageName(message)
	if err != nil {
		return err
	}
	sender := message.Header.SenderName()
	account := m.accountFor(sender)
	if account.HasInOutbox(name) {
		return fmt.Errorf("%w: message %s", ErrDataExists, name.Short())
	}

	if !account.PutIntoOutbox(request.Data.PayloadSize(), name, nil) {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.handlePutMessage",
			"account":  sender.Short(),
			"name":     name.Short(),
			"size":     request.Data.PayloadSize(),
		}).Debug("Outbox rejected message")
		return nil
	}

	if err := m.outboxStore.Put(name, request.Data.Value); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.handlePutMessage",
			"account":  sender.Short(),
			"name":     name.Short(),
			"error":    err.Error(),
		}).Error("Failed to store message")
		return fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}

	// Notify the recipient's managers. The header's address equals the
	// message's address.
	notification, err := mpid.Encode(mpid.PutHeader{Header: message.Header})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialisation, err)
	}
	dst := routing.NewManagerGroup(message.Recipient)
	data := routing.Data{Name: name, Value: notification}
	if err := node.SendPutRequest(request.Dst, dst, data, request.MessageID); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Manager.handlePutMessage",
			"recipient": message.Recipient.Short(),
			"name":      name.Short(),
			"error":     err.Error(),
		}).Warn("Failed to send header notification")
	}
	return nil
}

// payloadFields describes a request whose payload was rejected, previewing the
// leading bytes instead of logging the payload.
func payloadFields(function string, request routing.Request, err error) logrus.Fields {
	fields := logging.PreviewFields(request.Data.Value, "payload")
	fields["function"] = function
	fields["src"] = request.Src.String()
	fields["message_id"] = request.MessageID.String()
	fields["error"] = err.Error()
	return fields
}
