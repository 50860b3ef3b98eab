package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-geoquest/internal/storage"
)

// rememberedID is the storage record holding remembered credentials.
const rememberedID = "credentials"

// Credentials are the user's login name and password.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *Credentials) Validate() error {
	if c == nil {
		return fmt.Errorf("credentials missing")
	}

	el := errors.NewErrorList()

	if c.Username == "" {
		el.Add(fmt.Errorf("username is required"))
	}
	if c.Password == "" {
		el.Add(fmt.Errorf("password is required"))
	}

	return el.Err()
}

// BasicAuth decorates authenticated requests with HTTP basic credentials.
type BasicAuth struct {
	mu    sync.RWMutex
	creds *Credentials
	store storage.Storer[*Credentials]
}

type BasicAuthOpt func(*BasicAuth)

// WithStore remembers credentials across restarts in s.
func WithStore(s storage.Storer[*Credentials]) BasicAuthOpt {
	return func(a *BasicAuth) {
		a.store = s
	}
}

// NewBasicAuth creates an authenticator. When a store is configured, credentials
// remembered by an earlier run are loaded.
func NewBasicAuth(opts ...BasicAuthOpt) *BasicAuth {
	a := &BasicAuth{}
	for _, opt := range opts {
		opt(a)
	}

	if a.store != nil {
		if c := a.store.Get(rememberedID); c != nil {
			a.creds = c
			slog.Info("loaded remembered credentials", "username", c.Username)
		}
	}
	return a
}

// Decorate adds the current credentials, if any, to req.
func (a *BasicAuth) Decorate(req *http.Request) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.creds != nil {
		req.SetBasicAuth(a.creds.Username, a.creds.Password)
	}
}

// SetCredentials replaces the credentials used for subsequent requests. With
// remember set they are also persisted, otherwise any remembered ones are
// forgotten.
func (a *BasicAuth) SetCredentials(username, password string, remember bool) error {
	c := &Credentials{Username: username, Password: password}
	if err := c.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.creds = c
	if a.store == nil {
		return nil
	}
	if remember {
		return a.store.Save(rememberedID, c)
	}
	return a.store.Delete(rememberedID)
}

// ClearCredentials discards the in-memory and remembered credentials.
func (a *BasicAuth) ClearCredentials() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.creds = nil
	if a.store == nil {
		return nil
	}
	return a.store.Delete(rememberedID)
}

func (a *BasicAuth) HasCredentials() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.creds != nil
}

// Credentials returns a copy of the current credentials, or nil.
func (a *BasicAuth) Credentials() *Credentials {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.creds == nil {
		return nil
	}
	c := *a.creds
	return &c
}

func (a *BasicAuth) Username() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.creds == nil {
		return ""
	}
	return a.creds.Username
}
