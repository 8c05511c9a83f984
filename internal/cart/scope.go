package cart

import (
	"github.com/angelmondragon/cartd/internal/identity"
	"github.com/angelmondragon/cartd/internal/session"
)

// Scope carries the request's identity and session memo into every service call.
type Scope struct {
	Identity identity.Identity
	Session  *session.State
}

// Owner selects the cart rows a request may see and change. Guest owners only
// match rows that no customer has claimed.
type Owner struct {
	CustomerID string
	ClientID   string
	Guest      bool
}

// owner resolves the row owner. An explicit clientID overrides the identity.
func (s Scope) owner(clientID string) Owner {
	switch {
	case clientID != "":
		return Owner{ClientID: clientID}
	case s.Identity.IsAuthenticated():
		return Owner{CustomerID: s.Identity.CustomerID()}
	default:
		return Owner{ClientID: s.Identity.ClientID(), Guest: true}
	}
}

// owns reports whether the scope's identity owns row-level data with the given owner columns.
func (s Scope) owns(customerID, clientID string) bool {
	if s.Identity.IsAuthenticated() {
		return customerID == s.Identity.CustomerID()
	}
	return customerID == "" && clientID != "" && clientID == s.Identity.ClientID()
}
