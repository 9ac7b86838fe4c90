// Package client implements the client-session side of the mailbox protocol:
// depositing messages in the account's outbox, announcing the session online,
// querying the outbox, and consuming the messages and responses the managers
// send back.
package client

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/mpid/crypto"
	"github.com/opd-ai/mpid/identity"
	"github.com/opd-ai/mpid/mpid"
	"github.com/opd-ai/mpid/routing"
)

// Received is a message relayed to this session.
type Received struct {
	Name    identity.ID
	Message mpid.Message
	// Verified is set when the sender's key was known and both signatures
	// checked out.
	Verified bool
}

// Client is one session of an account. It is safe for concurrent use.
type Client struct {
	keys    *crypto.KeyPair
	name    identity.ID
	session routing.Authority
	node    routing.Node

	mu            sync.Mutex
	contacts      map[identity.ID]crypto.PublicKey
	sent          []identity.ID
	received      []Received
	receivedNames map[identity.ID]bool
	outboxHas     []mpid.Header
	outboxHeaders []mpid.Header
	failures      []routing.Response
}

// New creates a session for the account owning keys. The session key is a
// fresh public key, so every Client is a distinct session.
func New(keys *crypto.KeyPair, node routing.Node) (*Client, error) {
	sessionKeys, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generating session key: %w", err)
	}
	return NewWithSession(keys, sessionKeys.Public, node), nil
}

// NewWithSession creates a session with a caller-chosen session key.
func NewWithSession(keys *crypto.KeyPair, session [32]byte, node routing.Node) *Client {
	name := identity.FromPublicKey(keys.Public)
	return &Client{
		keys:          keys,
		name:          name,
		session:       routing.NewClient(name, session),
		node:          node,
		contacts:      make(map[identity.ID]crypto.PublicKey),
		receivedNames: make(map[identity.ID]bool),
	}
}

// Name returns the account identity.
func (c *Client) Name() identity.ID { return c.name }

// Session returns the authority of this session.
func (c *Client) Session() routing.Authority { return c.session }

// PublicKey returns the account's signing key.
func (c *Client) PublicKey() crypto.PublicKey { return c.keys.Public }

// AddContact records a sender key so relayed messages from it can be verified.
func (c *Client) AddContact(publicKey crypto.PublicKey) identity.ID {
	id := identity.FromPublicKey(publicKey)
	c.mu.Lock()
	c.contacts[id] = publicKey
	c.mu.Unlock()
	return id
}

func (c *Client) manager() routing.Authority {
	return routing.NewManagerGroup(c.name)
}

func (c *Client) post(w mpid.Wrapper, name identity.ID) (routing.MessageID, error) {
	value, err := mpid.Encode(w)
	if err != nil {
		return routing.MessageID{}, err
	}
	id := routing.NewMessageID()
	return id, c.node.SendPostRequest(c.session, c.manager(), routing.Data{Name: name, Value: value}, id)
}

// Online announces the session to the account's managers, which then fetch
// every message whose header is waiting in the inbox.
func (c *Client) Online() (routing.MessageID, error) {
	logrus.WithFields(logrus.Fields{
		"function": "Client.Online",
		"session":  c.session.String(),
	}).Debug("Announcing session")
	return c.post(mpid.Online{}, c.name)
}

// Send deposits a message for recipient in this account's outbox. The
// returned name addresses both the message and its header.
func (c *Client) Send(recipient identity.ID, metadata, body []byte) (identity.ID, error) {
	message, err := mpid.NewMessage(c.keys, metadata, recipient, body)
	if err != nil {
		return identity.ID{}, err
	}
	name, err := mpid.MessageName(message)
	if err != nil {
		return identity.ID{}, err
	}
	value, err := mpid.Encode(mpid.PutMessage{Message: message})
	if err != nil {
		return identity.ID{}, err
	}

	id := routing.NewMessageID()
	if err := c.node.SendPutRequest(c.session, c.manager(), routing.Data{Name: name, Value: value}, id); err != nil {
		return identity.ID{}, err
	}

	c.mu.Lock()
	c.sent = append(c.sent, name)
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "Client.Send",
		"recipient":  recipient.Short(),
		"name":       name.Short(),
		"message_id": id.String(),
	}).Debug("Deposited message")
	return name, nil
}

// OutboxHas asks which of names are still held in the outbox.
func (c *Client) OutboxHas(names []identity.ID) (routing.MessageID, error) {
	return c.post(mpid.OutboxHas{Names: names}, c.name)
}

// GetOutboxHeaders asks for the outbox listing.
func (c *Client) GetOutboxHeaders() (routing.MessageID, error) {
	return c.post(mpid.GetOutboxHeaders{}, c.name)
}

// HandleRequest consumes a relayed message or a query response.
func (c *Client) HandleRequest(request routing.Request) {
	wrapper, err := mpid.Decode(request.Data.Value)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Client.HandleRequest",
			"src":      request.Src.String(),
			"error":    err.Error(),
		}).Warn("Dropping unparseable request")
		return
	}

	switch w := wrapper.(type) {
	case mpid.PutMessage:
		c.receive(w.Message)
	case mpid.OutboxHasResponse:
		c.mu.Lock()
		c.outboxHas = w.Headers
		c.mu.Unlock()
	case mpid.GetOutboxHeadersResponse:
		c.mu.Lock()
		c.outboxHeaders = w.Headers
		c.mu.Unlock()
	default:
		logrus.WithFields(logrus.Fields{
			"function": "Client.HandleRequest",
			"kind":     wrapper.Kind().String(),
		}).Warn("Unexpected wrapper for client session")
	}
}

func (c *Client) receive(message mpid.Message) {
	fields := logrus.Fields{
		"function": "Client.receive",
		"sender":   message.Header.SenderName().Short(),
	}
	if message.Recipient != c.name {
		logrus.WithFields(fields).Warn("Message addressed to another account")
		return
	}
	name, err := mpid.MessageName(message)
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Cannot name relayed message")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.receivedNames[name] {
		return
	}
	verified := false
	if key, ok := c.contacts[message.Header.SenderName()]; ok {
		if err := message.Verify(key); err != nil {
			logrus.WithFields(fields).WithError(err).Warn("Dropping message with bad signature")
			return
		}
		verified = true
	}

	c.receivedNames[name] = true
	c.received = append(c.received, Received{Name: name, Message: message, Verified: verified})
	logrus.WithFields(fields).WithField("name", name.Short()).Info("Message received")
}

// HandleResponse records a failure response.
func (c *Client) HandleResponse(response routing.Response) {
	logrus.WithFields(logrus.Fields{
		"function":   "Client.HandleResponse",
		"kind":       response.Kind.String(),
		"message_id": response.MessageID.String(),
		"error":      string(response.ExternalError),
	}).Debug("Request failed")

	c.mu.Lock()
	c.failures = append(c.failures, response)
	c.mu.Unlock()
}

// Sent lists the names of deposited messages in sending order.
func (c *Client) Sent() []identity.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]identity.ID(nil), c.sent...)
}

// Received lists relayed messages in arrival order.
func (c *Client) Received() []Received {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Received(nil), c.received...)
}

// LastOutboxHas returns the headers of the latest OutboxHas response.
func (c *Client) LastOutboxHas() []mpid.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]mpid.Header(nil), c.outboxHas...)
}

// LastOutboxHeaders returns the headers of the latest GetOutboxHeaders
// response.
func (c *Client) LastOutboxHeaders() []mpid.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]mpid.Header(nil), c.outboxHeaders...)
}

// Failures lists the failure responses received.
func (c *Client) Failures() []routing.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]routing.Response(nil), c.failures...)
}
