package identity

import (
	"testing"

	"github.com/google/uuid"

	"github.com/lromero/storefront-backend/pkg/enums"
	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
)

func TestCustomerIdentityKeyRoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	ident := Customer(id)

	if !ident.IsCustomer() {
		t.Fatal("expected customer identity")
	}
	if got, ok := ident.CustomerID(); !ok || got != id {
		t.Fatalf("unexpected customer id %v %v", got, ok)
	}

	parsed, err := ParseKey(ident.Key())
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	if parsed != ident {
		t.Fatalf("round trip mismatch: %v != %v", parsed, ident)
	}
}

func TestAnonymousIdentityKeyRoundTrip(t *testing.T) {
	t.Parallel()

	ident := Anonymous("203.0.113.7")
	if ident.Kind() != enums.IdentityKindAnonymous {
		t.Fatalf("unexpected kind %s", ident.Kind())
	}
	if _, ok := ident.CustomerID(); ok {
		t.Fatal("anonymous identity must not expose a customer id")
	}

	parsed, err := ParseKey("anon:203.0.113.7")
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	if parsed != ident {
		t.Fatalf("round trip mismatch: %v != %v", parsed, ident)
	}
}

func TestParseKeyRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"", "anon:", "customer:not-a-uuid", "store:abc"} {
		if _, err := ParseKey(key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestIsZero(t *testing.T) {
	t.Parallel()

	if !(Identity{}).IsZero() {
		t.Fatal("zero value must be zero")
	}
	if !Customer(uuid.Nil).IsZero() {
		t.Fatal("nil customer must be zero")
	}
	if !Anonymous("  ").IsZero() {
		t.Fatal("blank origin must be zero")
	}
	if Customer(uuid.New()).IsZero() {
		t.Fatal("real customer must not be zero")
	}
}

func TestResolvePrefersCustomerSession(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	ident, err := Resolve(Session{CustomerID: &id}, RequestOrigin{RemoteAddr: "203.0.113.7:1234"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got, _ := ident.CustomerID(); got != id {
		t.Fatalf("expected customer identity, got %v", ident)
	}
}

func TestResolveAnonymousFromRemoteAddr(t *testing.T) {
	t.Parallel()

	ident, err := Resolve(Session{}, RequestOrigin{RemoteAddr: "203.0.113.7:52110"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ident.Key() != "anon:203.0.113.7" {
		t.Fatalf("unexpected key %q", ident.Key())
	}
}

func TestResolveAnonymousPrefersForwardedFor(t *testing.T) {
	t.Parallel()

	ident, err := Resolve(Session{}, RequestOrigin{
		RemoteAddr:   "10.0.0.1:80",
		ForwardedFor: "198.51.100.9, 10.0.0.1",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ident.Key() != "anon:198.51.100.9" {
		t.Fatalf("unexpected key %q", ident.Key())
	}
}

func TestResolveFailsHardWithoutOrigin(t *testing.T) {
	t.Parallel()

	_, err := Resolve(Session{}, RequestOrigin{})
	if err == nil {
		t.Fatal("expected hard error for empty origin")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error %v", err)
	}
}
