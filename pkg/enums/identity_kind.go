package enums

import "fmt"

// IdentityKind describes the allowed values for the identity_kind column on cart_lines.
type IdentityKind string

const (
	IdentityKindCustomer  IdentityKind = "customer"
	IdentityKindAnonymous IdentityKind = "anonymous"
)

var validIdentityKinds = []IdentityKind{
	IdentityKindCustomer,
	IdentityKindAnonymous,
}

// IsValid reports whether the value matches the canonical identity kind enum.
func (k IdentityKind) IsValid() bool {
	for _, candidate := range validIdentityKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseIdentityKind converts the raw string to IdentityKind.
func ParseIdentityKind(value string) (IdentityKind, error) {
	for _, candidate := range validIdentityKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid identity kind %q", value)
}
