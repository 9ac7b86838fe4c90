// Package vault binds a persona.Manager to the content stores selected by
// configuration and dispatches routed requests to it by verb.
package vault

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"google.golang.org/grpc"

	"github.com/opd-ai/mpid/chunkstore"
	"github.com/opd-ai/mpid/chunkstore/grpcstore"
	"github.com/opd-ai/mpid/chunkstore/localfs"
	"github.com/opd-ai/mpid/config"
	"github.com/opd-ai/mpid/identity"
	"github.com/opd-ai/mpid/logging"
	"github.com/opd-ai/mpid/persona"
	"github.com/opd-ai/mpid/routing"
)

// ErrUnknownVerb is returned by Handle for a request with no handler.
var ErrUnknownVerb = errors.New("unknown request verb")

// Vault is one node of the network: an identity in the address space plus the
// mailbox manager and stores it runs.
type Vault struct {
	id      identity.ID
	manager *persona.Manager
	inbox   chunkstore.Store
	outbox  chunkstore.Store
	closer  io.Closer
}

// New creates a vault over existing stores.
func New(id identity.ID, inbox, outbox chunkstore.Store) *Vault {
	return &Vault{
		id:      id,
		manager: persona.NewManager(inbox, outbox),
		inbox:   inbox,
		outbox:  outbox,
	}
}

// Open creates a vault whose stores are built from cfg.
func Open(id identity.ID, cfg config.StoreConfig) (*Vault, error) {
	logger := logging.NewLogger("vault", "Open").
		WithID("vault", id).
		WithField("backend", string(cfg.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendMemory:
		logger.Debug("Opening in-memory vault")
		return New(id, chunkstore.NewMemoryStore(), chunkstore.NewMemoryStore()), nil

	case config.BackendLocalFS:
		compression, err := localfs.ParseCompression(cfg.Compression)
		if err != nil {
			return nil, err
		}
		root := filepath.Join(cfg.Dir, id.String())
		inbox, err := localfs.New(filepath.Join(root, "inbox"), compression)
		if err != nil {
			return nil, err
		}
		outbox, err := localfs.New(filepath.Join(root, "outbox"), compression)
		if err != nil {
			return nil, err
		}
		logger.WithField("root", root).Debug("Opening filesystem vault")
		return New(id, inbox, outbox), nil

	case config.BackendGRPC:
		cc, err := grpcstore.Dial(cfg.Address, grpcstore.DialOptions{
			Timeout:     cfg.Timeout,
			MaxMsgBytes: cfg.MaxMessageBytes,
		})
		if err != nil {
			logger.WithError(err, "dial").Error("Cannot reach store server")
			return nil, fmt.Errorf("dialing store %s: %w", cfg.Address, err)
		}
		v, err := NewRemote(id, cc, cfg.Timeout)
		if err != nil {
			_ = cc.Close()
			return nil, err
		}
		v.closer = cc
		logger.WithField("address", cfg.Address).Debug("Opening remote vault")
		return v, nil

	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalid, cfg.Backend)
	}
}

// NewRemote creates a vault whose stores are the "<id>/inbox" and
// "<id>/outbox" namespaces of a remote store server.
func NewRemote(id identity.ID, cc grpc.ClientConnInterface, timeout time.Duration) (*Vault, error) {
	inbox, err := grpcstore.NewClient(cc, id.String()+"/inbox", timeout)
	if err != nil {
		return nil, err
	}
	outbox, err := grpcstore.NewClient(cc, id.String()+"/outbox", timeout)
	if err != nil {
		return nil, err
	}
	return New(id, inbox, outbox), nil
}

// ID returns the vault's position in the address space.
func (v *Vault) ID() identity.ID { return v.id }

// Manager returns the mailbox manager run by the vault.
func (v *Vault) Manager() *persona.Manager { return v.manager }

// InboxStore returns the store holding header notifications.
func (v *Vault) InboxStore() chunkstore.Store { return v.inbox }

// OutboxStore returns the store holding full messages.
func (v *Vault) OutboxStore() chunkstore.Store { return v.outbox }

// Handle dispatches a request to the manager handler for its verb.
func (v *Vault) Handle(node routing.Node, request routing.Request) error {
	var err error
	switch request.Verb {
	case routing.Put:
		err = v.manager.HandlePut(node, request)
	case routing.Post:
		err = v.manager.HandlePost(node, request)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownVerb, request.Verb)
	}

	if err != nil {
		logger := logging.NewLogger("vault", "Vault.Handle").
			WithID("vault", v.id).
			WithField("verb", request.Verb.String()).
			WithField("src", request.Src.String()).
			WithField("message_id", request.MessageID.String()).
			WithError(err, "handle")
		if errors.Is(err, persona.ErrDataExists) {
			logger.Debug("Request failed")
		} else {
			logger.Warn("Request failed")
		}
	}
	return err
}

// Close releases the connection of a remote vault.
func (v *Vault) Close() error {
	if v.closer == nil {
		return nil
	}
	return v.closer.Close()
}
