package identity

import (
	"net"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
)

// Session is what the auth collaborator resolved for the request. A nil
// CustomerID means the caller is anonymous.
type Session struct {
	CustomerID *uuid.UUID
}

// RequestOrigin carries the network origin inputs the resolver derives an
// anonymous token from.
type RequestOrigin struct {
	RemoteAddr   string
	ForwardedFor string
}

// Resolve determines the cart identity for a request: the authenticated
// customer when a session is present, otherwise an anonymous identity keyed
// by the caller's network origin. An undeterminable origin is a hard error;
// a silent fallback would let cart mutations vanish under an untraceable key.
func Resolve(sess Session, origin RequestOrigin) (Identity, error) {
	if sess.CustomerID != nil {
		if *sess.CustomerID == uuid.Nil {
			return Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id in session is empty")
		}
		return Customer(*sess.CustomerID), nil
	}

	token := originToken(origin)
	if token == "" {
		return Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "request origin could not be determined")
	}
	return Anonymous(token), nil
}

// originToken picks the first forwarded hop when present, otherwise the
// remote address, and strips any port so the token is stable across
// connections from the same host.
func originToken(origin RequestOrigin) string {
	if forwarded := strings.TrimSpace(origin.ForwardedFor); forwarded != "" {
		first := forwarded
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			first = forwarded[:idx]
		}
		return normalizeHost(first)
	}
	return normalizeHost(origin.RemoteAddr)
}

func normalizeHost(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if ip := net.ParseIP(addr); ip != nil {
		return ip.String()
	}
	return addr
}
