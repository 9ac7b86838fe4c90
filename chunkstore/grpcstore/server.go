package grpcstore

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/opd-ai/mpid/chunkstore"
	"github.com/opd-ai/mpid/codec"
	"github.com/opd-ai/mpid/identity"
)

// OpenFunc creates the backing store of a namespace.
type OpenFunc func(namespace string) (chunkstore.Store, error)

// Server exposes namespaced chunkstore.Store backends over gRPC.
type Server struct {
	UnimplementedChunkStoreServer

	mu     sync.Mutex
	open   OpenFunc
	stores map[string]chunkstore.Store
}

// NewServer creates a server that opens namespaces lazily with open.
func NewServer(open OpenFunc) *Server {
	return &Server{
		open:   open,
		stores: make(map[string]chunkstore.Store),
	}
}

func (s *Server) storeFor(namespace string) (chunkstore.Store, error) {
	if !validNamespace(namespace) {
		return nil, status.Error(codes.InvalidArgument, ErrInvalidNamespace.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store opener")
	}
	if store, ok := s.stores[namespace]; ok {
		return store, nil
	}
	store, err := s.open(namespace)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "grpcstore.Server.storeFor",
			"namespace": namespace,
			"error":     err.Error(),
		}).Error("Failed to open namespace store")
		return nil, status.Error(codes.Internal, err.Error())
	}
	s.stores[namespace] = store
	logrus.WithFields(logrus.Fields{
		"function":  "grpcstore.Server.storeFor",
		"namespace": namespace,
	}).Info("Opened namespace store")
	return store, nil
}

func (s *Server) decodeKey(in *wrapperspb.BytesValue) (chunkstore.Store, identity.ID, error) {
	var key keyRequest
	if err := codec.Unmarshal(in.GetValue(), &key); err != nil {
		return nil, identity.ID{}, status.Error(codes.InvalidArgument, "malformed key")
	}
	store, err := s.storeFor(key.Namespace)
	if err != nil {
		return nil, identity.ID{}, err
	}
	return store, key.ID, nil
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	var req putRequest
	if err := codec.Unmarshal(in.GetValue(), &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed put")
	}
	store, err := s.storeFor(req.Namespace)
	if err != nil {
		return nil, err
	}
	if err := store.Put(req.ID, req.Value); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(true), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	store, id, err := s.decodeKey(in)
	if err != nil {
		return nil, err
	}
	data, err := store.Get(id)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(data), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	store, id, err := s.decodeKey(in)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bool(store.Has(id)), nil
}

func (s *Server) Delete(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	store, id, err := s.decodeKey(in)
	if err != nil {
		return nil, err
	}
	if err := store.Delete(id); err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(true), nil
}

func (s *Server) Names(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	store, err := s.storeFor(in.GetValue())
	if err != nil {
		return nil, err
	}
	names, err := store.Names()
	if err != nil {
		return nil, mapErr(err)
	}
	encoded, err := codec.Marshal(names)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.Bytes(encoded), nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, chunkstore.ErrNotFound):
		return status.Error(codes.NotFound, chunkstore.ErrNotFound.Error())
	case errors.Is(err, chunkstore.ErrImmutable):
		return status.Error(codes.AlreadyExists, chunkstore.ErrImmutable.Error())
	case errors.Is(err, chunkstore.ErrCorrupt):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
