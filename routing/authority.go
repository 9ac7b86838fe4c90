// Package routing defines the addressing and request types exchanged between
// client sessions and manager groups, and the Node interface through which a
// manager emits requests and responses.
//
// The overlay that actually moves requests between authorities is an external
// collaborator; simnet provides an in-process implementation.
package routing

import (
	"encoding/hex"
	"fmt"

	"github.com/opd-ai/mpid/identity"
)

// AuthorityKind distinguishes the loci a request can come from or go to.
type AuthorityKind uint8

const (
	// ClientSession is a single connected client of an account.
	ClientSession AuthorityKind = iota + 1
	// ManagerGroup is the group of managers responsible for an identity.
	ManagerGroup
)

// String returns the human-readable name of an authority kind.
func (k AuthorityKind) String() string {
	switch k {
	case ClientSession:
		return "client"
	case ManagerGroup:
		return "manager"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Authority is the source or destination of a request.
type Authority struct {
	_    struct{} `cbor:",toarray"`
	Kind AuthorityKind
	// Name is the account identity the authority acts for.
	Name identity.ID
	// Session is the session key of a client; zero for manager groups.
	Session [32]byte
}

// NewClient returns the authority of a client session of account name.
func NewClient(name identity.ID, session [32]byte) Authority {
	return Authority{Kind: ClientSession, Name: name, Session: session}
}

// NewManagerGroup returns the authority of the manager group owning name.
func NewManagerGroup(name identity.ID) Authority {
	return Authority{Kind: ManagerGroup, Name: name}
}

// IsClient reports whether the authority denotes a client session.
func (a Authority) IsClient() bool {
	return a.Kind == ClientSession
}

// GetName returns the identity the authority acts for.
func (a Authority) GetName() identity.ID {
	return a.Name
}

// String renders the authority for logs.
func (a Authority) String() string {
	if a.IsClient() {
		return fmt.Sprintf("%s(%s/%s)", a.Kind, a.Name.Short(), hex.EncodeToString(a.Session[:4]))
	}
	return fmt.Sprintf("%s(%s)", a.Kind, a.Name.Short())
}
