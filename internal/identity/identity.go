package identity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lromero/storefront-backend/pkg/enums"
)

const (
	customerKeyPrefix  = "customer:"
	anonymousKeyPrefix = "anon:"
)

// Identity is the key a cart is stored under: either a durable customer id
// or an anonymous origin token derived from the caller's network origin.
//
// The origin token is a weak identity: multiple callers behind one NAT share
// a token and will see each other's guest cart. That matches the observable
// behavior of the system this replaces and is documented risk, not a bug.
type Identity struct {
	kind        enums.IdentityKind
	customerID  uuid.UUID
	originToken string
}

// Customer builds a durable customer identity.
func Customer(id uuid.UUID) Identity {
	return Identity{kind: enums.IdentityKindCustomer, customerID: id}
}

// Anonymous builds an ephemeral identity from a network origin token.
func Anonymous(originToken string) Identity {
	return Identity{kind: enums.IdentityKindAnonymous, originToken: strings.TrimSpace(originToken)}
}

// Kind reports which arm of the union this identity is.
func (i Identity) Kind() enums.IdentityKind {
	return i.kind
}

// IsCustomer reports whether the identity is a durable customer identity.
func (i Identity) IsCustomer() bool {
	return i.kind == enums.IdentityKindCustomer
}

// CustomerID returns the customer id and whether the identity carries one.
func (i Identity) CustomerID() (uuid.UUID, bool) {
	if !i.IsCustomer() {
		return uuid.Nil, false
	}
	return i.customerID, true
}

// IsZero reports whether the identity is unusable as a cart key.
func (i Identity) IsZero() bool {
	switch i.kind {
	case enums.IdentityKindCustomer:
		return i.customerID == uuid.Nil
	case enums.IdentityKindAnonymous:
		return i.originToken == ""
	default:
		return true
	}
}

// Key yields the storage and lock key for this identity. Keys compare
// lexicographically, which the merge path relies on for lock ordering.
func (i Identity) Key() string {
	switch i.kind {
	case enums.IdentityKindCustomer:
		return customerKeyPrefix + i.customerID.String()
	case enums.IdentityKindAnonymous:
		return anonymousKeyPrefix + i.originToken
	default:
		return ""
	}
}

func (i Identity) String() string {
	return i.Key()
}

// ParseKey reverses Key. Used when identity keys are read back out of
// storage (integrity scans, repair reports).
func ParseKey(key string) (Identity, error) {
	switch {
	case strings.HasPrefix(key, customerKeyPrefix):
		id, err := uuid.Parse(strings.TrimPrefix(key, customerKeyPrefix))
		if err != nil {
			return Identity{}, fmt.Errorf("invalid customer identity key %q: %w", key, err)
		}
		return Customer(id), nil
	case strings.HasPrefix(key, anonymousKeyPrefix):
		token := strings.TrimPrefix(key, anonymousKeyPrefix)
		if token == "" {
			return Identity{}, fmt.Errorf("empty anonymous identity key")
		}
		return Anonymous(token), nil
	default:
		return Identity{}, fmt.Errorf("unrecognized identity key %q", key)
	}
}
