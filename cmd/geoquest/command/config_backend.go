package command

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-geoquest/internal/api"
	"github.com/pixil98/go-geoquest/internal/auth"
	"github.com/pixil98/go-geoquest/internal/storage"
)

type BackendConfig struct {
	BaseURL        string `json:"base_url"`
	RequestTimeout string `json:"request_timeout"`

	Username string `json:"username"`
	Password string `json:"password"`
	// Register creates the user before logging in.
	Register bool `json:"register"`
	// Remember keeps credentials sealed on disk for the next start.
	Remember              bool   `json:"remember"`
	CredentialsPath       string `json:"credentials_path"`
	CredentialsPassphrase string `json:"credentials_passphrase"`
}

func (c *BackendConfig) validate() error {
	el := errors.NewErrorList()

	if c.BaseURL == "" {
		el.Add(fmt.Errorf("base_url is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil {
		el.Add(fmt.Errorf("parsing base_url: %w", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		el.Add(fmt.Errorf("base_url must be an http or https url"))
	}

	if c.RequestTimeout != "" {
		d, err := time.ParseDuration(c.RequestTimeout)
		if err != nil {
			el.Add(fmt.Errorf("parsing request_timeout: %w", err))
		} else if d <= 0 {
			el.Add(fmt.Errorf("request_timeout must be positive"))
		}
	}

	if c.Username != "" && c.Password == "" {
		el.Add(fmt.Errorf("password is required with username"))
	}
	if c.Register && c.Username == "" {
		el.Add(fmt.Errorf("register requires username and password"))
	}

	if c.Remember && c.CredentialsPath == "" {
		el.Add(fmt.Errorf("remember requires credentials_path"))
	}
	if c.CredentialsPath != "" && c.CredentialsPassphrase == "" {
		el.Add(fmt.Errorf("credentials_passphrase is required with credentials_path"))
	}

	return el.Err()
}

func (c *BackendConfig) buildAuth() (*auth.BasicAuth, error) {
	if c.CredentialsPath == "" {
		return auth.NewBasicAuth(), nil
	}

	err := os.MkdirAll(c.CredentialsPath, 0o700)
	if err != nil {
		return nil, fmt.Errorf("creating credentials path: %w", err)
	}

	codec, err := storage.NewSealedCodec(c.CredentialsPassphrase)
	if err != nil {
		return nil, fmt.Errorf("creating credentials codec: %w", err)
	}

	fs, err := storage.NewFileStore[*auth.Credentials](c.CredentialsPath, storage.WithCodec(codec))
	if err != nil {
		return nil, fmt.Errorf("creating credentials store: %w", err)
	}

	return auth.NewBasicAuth(auth.WithStore(fs)), nil
}

func (c *BackendConfig) buildClient(decorator api.Decorator, metrics *api.Metrics) (*api.Client, error) {
	timeout := api.DefaultTimeout
	if c.RequestTimeout != "" {
		d, err := time.ParseDuration(c.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing request_timeout: %w", err)
		}
		timeout = d
	}

	return api.NewClient(c.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: timeout}),
		api.WithDecorator(decorator),
		api.WithMetrics(metrics),
	)
}
