package grpcstore

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/opd-ai/mpid/chunkstore"
	"github.com/opd-ai/mpid/codec"
	"github.com/opd-ai/mpid/identity"
)

// DialOptions configures Dial.
type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

// Dial connects to a chunk store server.
func Dial(target string, opts DialOptions) (*grpc.ClientConn, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	return grpc.DialContext(ctx, target, dialOpts...)
}

// Client implements chunkstore.Store for one namespace of a remote server.
type Client struct {
	client    ChunkStoreClient
	namespace string

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

// NewClient binds a connection to a namespace.
func NewClient(cc grpc.ClientConnInterface, namespace string, timeout time.Duration) (*Client, error) {
	if !validNamespace(namespace) {
		return nil, ErrInvalidNamespace
	}
	return &Client{client: NewChunkStoreClient(cc), namespace: namespace, Timeout: timeout}, nil
}

func (c *Client) Has(id identity.ID) bool {
	key, err := encodeKey(c.namespace, id)
	if err != nil {
		return false
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.Bytes(key))
	if err != nil {
		return false
	}
	return reply.GetValue()
}

func (c *Client) Get(id identity.ID) ([]byte, error) {
	key, err := encodeKey(c.namespace, id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.Bytes(key))
	if err != nil {
		return nil, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) Put(id identity.ID, data []byte) error {
	req, err := codec.Marshal(putRequest{Namespace: c.namespace, ID: id, Value: data})
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	_, err = c.client.Put(ctx, wrapperspb.Bytes(req))
	return mapRPC(err)
}

func (c *Client) Delete(id identity.ID) error {
	key, err := encodeKey(c.namespace, id)
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	_, err = c.client.Delete(ctx, wrapperspb.Bytes(key))
	return mapRPC(err)
}

func (c *Client) Names() ([]identity.ID, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Names(ctx, wrapperspb.String(c.namespace))
	if err != nil {
		return nil, mapRPC(err)
	}
	var names []identity.ID
	if err := codec.Unmarshal(reply.GetValue(), &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}

var _ chunkstore.Store = (*Client)(nil)
