// Package identity describes who a cart request acts for.
package identity

import (
	"context"
	"strings"
)

const (
	customerNamespace = "cart:customer:"
	clientNamespace   = "cart:client:"
)

// Identity pairs the anonymous visitor id with an optional authenticated customer id.
type Identity struct {
	customerID string
	clientID   string
}

// New builds an identity; an empty customerID means the visitor is anonymous.
func New(customerID, clientID string) Identity {
	return Identity{
		customerID: strings.TrimSpace(customerID),
		clientID:   strings.TrimSpace(clientID),
	}
}

// IsAuthenticated reports whether a customer is signed in.
func (i Identity) IsAuthenticated() bool {
	return i.customerID != ""
}

// CustomerID is the authenticated customer id, or empty for guests.
func (i Identity) CustomerID() string {
	return i.customerID
}

// ClientID is the stable anonymous visitor id. It is set for guests and customers alike.
func (i Identity) ClientID() string {
	return i.clientID
}

// Guest drops the customer half of the identity.
func (i Identity) Guest() Identity {
	return Identity{clientID: i.clientID}
}

// StoreKey is the namespaced owner key used by cart stores: the customer key when
// authenticated, the anonymous key otherwise.
func (i Identity) StoreKey() string {
	if i.IsAuthenticated() {
		return CustomerKey(i.customerID)
	}
	return AnonymousKey(i.clientID)
}

// CustomerKey namespaces a customer id so it can never collide with a visitor id.
func CustomerKey(customerID string) string {
	return customerNamespace + customerID
}

// AnonymousKey namespaces an anonymous visitor id.
func AnonymousKey(clientID string) string {
	return clientNamespace + clientID
}

type contextKey struct{}

// WithIdentity stores the identity on the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored on ctx.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
