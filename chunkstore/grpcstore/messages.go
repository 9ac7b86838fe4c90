// Package grpcstore serves chunkstore.Store backends over gRPC and provides a
// client that implements chunkstore.Store against a remote server.
//
// One server hosts many namespaces (a vault uses "<vault>/inbox" and
// "<vault>/outbox"); each namespace is backed by its own store.
package grpcstore

import (
	"errors"
	"path"
	"strings"

	"github.com/opd-ai/mpid/codec"
	"github.com/opd-ai/mpid/identity"
)

// ErrInvalidNamespace indicates an empty or path-escaping namespace.
var ErrInvalidNamespace = errors.New("grpcstore: invalid namespace")

type keyRequest struct {
	_         struct{} `cbor:",toarray"`
	Namespace string
	ID        identity.ID
}

type putRequest struct {
	_         struct{} `cbor:",toarray"`
	Namespace string
	ID        identity.ID
	Value     []byte
}

func encodeKey(namespace string, id identity.ID) ([]byte, error) {
	return codec.Marshal(keyRequest{Namespace: namespace, ID: id})
}

func validNamespace(namespace string) bool {
	if namespace == "" || strings.HasPrefix(namespace, "/") {
		return false
	}
	clean := path.Clean(namespace)
	return clean == namespace && clean != "." && !strings.HasPrefix(clean, "..")
}
