package simnet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/mpid/identity"
	"github.com/opd-ai/mpid/routing"
	"github.com/opd-ai/mpid/vault"
)

// DefaultMaxSteps bounds a single RunUntilIdle call.
const DefaultMaxSteps = 1 << 20

var (
	// ErrNoVaults is returned when a manager group is addressed on an empty
	// network.
	ErrNoVaults = errors.New("network has no vaults")

	// ErrUnknownClient is recorded for deliveries to unregistered sessions.
	ErrUnknownClient = errors.New("client session not connected")

	// ErrStepLimit is returned when RunUntilIdle does not drain the queue.
	ErrStepLimit = errors.New("step limit reached before network became idle")
)

// Endpoint receives the traffic addressed to a client session.
type Endpoint interface {
	HandleRequest(request routing.Request)
	HandleResponse(response routing.Response)
}

// Options configures a Network.
type Options struct {
	// DeliveryLog enables recording of delivery attempts.
	DeliveryLog bool

	// MaxDeliveryLog caps the retained records; the oldest are dropped first.
	// Zero keeps everything.
	MaxDeliveryLog int

	// MaxSteps bounds RunUntilIdle. Zero means DefaultMaxSteps.
	MaxSteps int
}

// item is one queued request or response.
type item struct {
	request  *routing.Request
	response *routing.Response
}

// Network is an in-process routing.Node.
type Network struct {
	opts Options

	mu          sync.Mutex
	vaults      []*vault.Vault
	clients     map[routing.Authority]Endpoint
	queue       []item
	deliveryLog []DeliveryRecord
	seq         uint64
	wake        chan struct{}

	// step serialises delivery; handlers run without mu held so they can
	// enqueue.
	step sync.Mutex
}

// New creates an empty network.
func New(opts Options) *Network {
	if opts.MaxSteps == 0 {
		opts.MaxSteps = DefaultMaxSteps
	}

	logrus.WithFields(logrus.Fields{
		"function":     "simnet.New",
		"delivery_log": opts.DeliveryLog,
		"max_steps":    opts.MaxSteps,
	}).Info("Creating simulated network")

	return &Network{
		opts:    opts,
		clients: make(map[routing.Authority]Endpoint),
		wake:    make(chan struct{}, 1),
	}
}

// AddVault places a vault in the address space.
func (n *Network) AddVault(v *vault.Vault) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.vaults = append(n.vaults, v)

	logrus.WithFields(logrus.Fields{
		"function":     "Network.AddVault",
		"vault":        v.ID().Short(),
		"total_vaults": len(n.vaults),
	}).Debug("Vault added to network")
}

// Vaults returns the vaults in the order they were added.
func (n *Network) Vaults() []*vault.Vault {
	n.mu.Lock()
	defer n.mu.Unlock()

	vaults := make([]*vault.Vault, len(n.vaults))
	copy(vaults, n.vaults)
	return vaults
}

// VaultFor returns the vault responsible for name.
func (n *Network) VaultFor(name identity.ID) (*vault.Vault, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closestVault(name)
}

func (n *Network) closestVault(name identity.ID) (*vault.Vault, error) {
	if len(n.vaults) == 0 {
		return nil, ErrNoVaults
	}
	best := n.vaults[0]
	for _, v := range n.vaults[1:] {
		if identity.Closer(name, v.ID(), best.ID()) {
			best = v
		}
	}
	return best, nil
}

// Connect registers the endpoint of a client session.
func (n *Network) Connect(session routing.Authority, endpoint Endpoint) error {
	if !session.IsClient() {
		return fmt.Errorf("connect %s: not a client session", session)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.clients[session] = endpoint

	logrus.WithFields(logrus.Fields{
		"function":      "Network.Connect",
		"session":       session.String(),
		"total_clients": len(n.clients),
	}).Debug("Client connected")
	return nil
}

// Disconnect removes a client session. Traffic addressed to it afterwards is
// recorded as undeliverable.
func (n *Network) Disconnect(session routing.Authority) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.clients, session)
}

// SendPutRequest implements routing.Node.
func (n *Network) SendPutRequest(src, dst routing.Authority, data routing.Data, id routing.MessageID) error {
	return n.enqueueRequest(routing.Request{Src: src, Dst: dst, Verb: routing.Put, Data: data, MessageID: id})
}

// SendPostRequest implements routing.Node.
func (n *Network) SendPostRequest(src, dst routing.Authority, data routing.Data, id routing.MessageID) error {
	return n.enqueueRequest(routing.Request{Src: src, Dst: dst, Verb: routing.Post, Data: data, MessageID: id})
}

// SendPostFailure implements routing.Node.
func (n *Network) SendPostFailure(src, dst routing.Authority, request routing.Request, externalError []byte, id routing.MessageID) error {
	n.enqueue(item{response: &routing.Response{
		Kind:          routing.PostFailure,
		Src:           src,
		Dst:           dst,
		Request:       request,
		ExternalError: externalError,
		MessageID:     id,
	}})
	return nil
}

func (n *Network) enqueueRequest(request routing.Request) error {
	n.enqueue(item{request: &request})
	return nil
}

func (n *Network) enqueue(it item) {
	n.mu.Lock()
	n.queue = append(n.queue, it)
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued items.
func (n *Network) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queue)
}

// Step delivers the oldest queued item. It reports false when the queue was
// empty.
func (n *Network) Step() bool {
	n.step.Lock()
	defer n.step.Unlock()

	n.mu.Lock()
	if len(n.queue) == 0 {
		n.mu.Unlock()
		return false
	}
	it := n.queue[0]
	n.queue[0] = item{}
	n.queue = n.queue[1:]
	n.mu.Unlock()

	if it.request != nil {
		n.deliverRequest(*it.request)
	} else {
		n.deliverResponse(*it.response)
	}
	return true
}

// RunUntilIdle delivers queued items, including everything they cause, until
// the queue is empty. It returns the number of items delivered.
func (n *Network) RunUntilIdle() (int, error) {
	steps := 0
	for n.Step() {
		steps++
		if steps >= n.opts.MaxSteps && n.Pending() > 0 {
			return steps, ErrStepLimit
		}
	}
	return steps, nil
}

// Run delivers items as they are queued until ctx is done.
func (n *Network) Run(ctx context.Context) error {
	for {
		if _, err := n.RunUntilIdle(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-n.wake:
		}
	}
}

func (n *Network) deliverRequest(request routing.Request) {
	record := DeliveryRecord{
		Verb:        request.Verb,
		Src:         request.Src,
		Dst:         request.Dst,
		MessageID:   request.MessageID,
		PayloadSize: len(request.Data.Value),
	}

	if request.Dst.IsClient() {
		endpoint, ok := n.endpoint(request.Dst)
		if !ok {
			n.undeliverable(record, ErrUnknownClient)
			return
		}
		n.record(record)
		endpoint.HandleRequest(request)
		return
	}

	n.mu.Lock()
	v, err := n.closestVault(request.Dst.Name)
	n.mu.Unlock()
	if err != nil {
		n.undeliverable(record, err)
		return
	}
	record.Vault = v.ID()

	if err := v.Handle(n, request); err != nil {
		record.Error = err
		n.record(record)
		n.fail(request, err)
		return
	}
	n.record(record)
}

// fail answers a request whose handler returned an error.
func (n *Network) fail(request routing.Request, err error) {
	kind := routing.PutFailure
	if request.Verb == routing.Post {
		kind = routing.PostFailure
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Network.fail",
		"kind":       kind.String(),
		"dst":        request.Src.String(),
		"message_id": request.MessageID.String(),
		"error":      err.Error(),
	}).Debug("Returning failure to request source")

	n.enqueue(item{response: &routing.Response{
		Kind:          kind,
		Src:           request.Dst,
		Dst:           request.Src,
		Request:       request,
		ExternalError: []byte(err.Error()),
		MessageID:     request.MessageID,
	}})
}

func (n *Network) deliverResponse(response routing.Response) {
	record := DeliveryRecord{
		Response:    response.Kind,
		Src:         response.Src,
		Dst:         response.Dst,
		MessageID:   response.MessageID,
		PayloadSize: len(response.ExternalError),
	}

	if !response.Dst.IsClient() {
		// Managers take no action on failures; the response ends here.
		logrus.WithFields(logrus.Fields{
			"function":   "Network.deliverResponse",
			"kind":       response.Kind.String(),
			"dst":        response.Dst.String(),
			"message_id": response.MessageID.String(),
		}).Debug("Failure response reached a manager group")
		n.record(record)
		return
	}

	endpoint, ok := n.endpoint(response.Dst)
	if !ok {
		n.undeliverable(record, ErrUnknownClient)
		return
	}
	n.record(record)
	endpoint.HandleResponse(response)
}

func (n *Network) endpoint(session routing.Authority) (Endpoint, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	endpoint, ok := n.clients[session]
	return endpoint, ok
}

func (n *Network) undeliverable(record DeliveryRecord, err error) {
	record.Undeliverable = true
	record.Error = err
	n.record(record)

	logrus.WithFields(logrus.Fields{
		"function": "Network.undeliverable",
		"dst":      record.Dst.String(),
		"error":    err.Error(),
	}).Warn("Dropping undeliverable traffic")
}
