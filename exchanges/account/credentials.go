package account

import (
	"context"
	"fmt"
	"sync"
)

// contextCredential is a string flag for use with context values when
// overriding credentials for a single call
type contextCredential string

// ContextCredentialsFlag used for retrieving api credentials from context
const ContextCredentialsFlag contextCredential = "apicredentials"

const apiKeyDisplaySize = 16

// Credentials define parameters that allow for an authenticated request.
// ClientID holds the passphrase for exchanges which require one.
type Credentials struct {
	Key      string
	Secret   string
	ClientID string
}

// String prints out basic credential info (obfuscated) to track key instances
// associated with exchanges.
func (c *Credentials) String() string {
	obfuscated := c.Key
	if len(obfuscated) > apiKeyDisplaySize {
		obfuscated = obfuscated[:apiKeyDisplaySize]
	}
	return fmt.Sprintf("Key:[%s...] ClientID set:[%t]", obfuscated, c.ClientID != "")
}

// IsEmpty return true if the underlying credentials type has not been filled
// with at least one item.
func (c *Credentials) IsEmpty() bool {
	return c == nil || c.ClientID == "" &&
		c.Key == "" &&
		c.Secret == ""
}

// Equal determines if the keys are the same.
// Secret omitted because of direct correlation with api key.
func (c *Credentials) Equal(other *Credentials) bool {
	return c != nil &&
		other != nil &&
		c.Key == other.Key &&
		c.ClientID == other.ClientID
}

// ContextCredentialsStore protects the stored credentials for use in a context
type ContextCredentialsStore struct {
	creds *Credentials
	mu    sync.RWMutex
}

// Load stores provided credentials
func (c *ContextCredentialsStore) Load(creds *Credentials) {
	cpy := *creds
	c.mu.Lock()
	c.creds = &cpy
	c.mu.Unlock()
}

// Get returns the full credentials from the store
func (c *ContextCredentialsStore) Get() *Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cpy := *c.creds
	return &cpy
}

// DeployCredentialsToContext sets credentials for internal use to context
// which can override default credential values.
func DeployCredentialsToContext(ctx context.Context, creds *Credentials) context.Context {
	if creds.IsEmpty() {
		return ctx
	}
	store := &ContextCredentialsStore{}
	store.Load(creds)
	return context.WithValue(ctx, ContextCredentialsFlag, store)
}

// CredentialsFromContext returns credentials deployed to the context
func CredentialsFromContext(ctx context.Context) (*Credentials, bool) {
	store, ok := ctx.Value(ContextCredentialsFlag).(*ContextCredentialsStore)
	if !ok || store == nil {
		return nil, false
	}
	return store.Get(), true
}
