package command

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/pixil98/go-geoquest/internal/sensor"
	"github.com/pixil98/go-testutil"
)

const validConfig = `{
	"tick_interval": "2s",
	"log_level": "debug",
	"backend": {"base_url": "https://geoquest.example.com/api", "username": "alice", "password": "secret"},
	"nats": {"port": -1},
	"device": {"port": 8090},
	"sync": {"position_interval": "5s", "kinds": ["gameobject_player", "gameobject_item"]},
	"sensors": {"default_orientation": "landscape"},
	"views": {"mode": "ar", "ar_radius": 0.002},
	"listeners": [{"protocol": "ssh", "port": 2222, "password": "letmein"}]
}`

func TestConfig_Decode(t *testing.T) {
	var cfg Config
	if err := json.Unmarshal([]byte(validConfig), &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "orientation", cfg.Sensors.DefaultOrientation, sensor.Landscape)
	testutil.AssertEqual(t, "mode", cfg.Views.Mode, ViewModeAR)
	testutil.AssertEqual(t, "tick", cfg.tickInterval().String(), "2s")
	testutil.AssertEqual(t, "log level", cfg.logLevel().String(), "DEBUG")
}

func TestConfig_DecodeUnknownMode(t *testing.T) {
	var cfg Config
	err := json.Unmarshal([]byte(`{"views": {"mode": "vr"}}`), &cfg)
	testutil.AssertErrorContains(t, err, "unknown view mode")
}

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		mutate  func(*Config)
		expErrs []string
	}{
		"valid": {
			mutate: func(*Config) {},
		},
		"short tick": {
			mutate:  func(c *Config) { c.TickInterval = "500ms" },
			expErrs: []string{"tick_interval must be at least 1 second"},
		},
		"bad log level": {
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			expErrs: []string{"parsing log_level"},
		},
		"backend problems": {
			mutate: func(c *Config) {
				c.Backend = BackendConfig{BaseURL: "ftp://x", Username: "bob", Remember: true}
			},
			expErrs: []string{
				"base_url must be an http or https url",
				"password is required with username",
				"remember requires credentials_path",
			},
		},
		"missing base url": {
			mutate:  func(c *Config) { c.Backend.BaseURL = "" },
			expErrs: []string{"base_url is required"},
		},
		"credentials without passphrase": {
			mutate:  func(c *Config) { c.Backend.CredentialsPath = "/tmp/creds" },
			expErrs: []string{"credentials_passphrase is required"},
		},
		"register without user": {
			mutate: func(c *Config) {
				c.Backend.Username, c.Backend.Password, c.Backend.Register = "", "", true
			},
			expErrs: []string{"register requires username"},
		},
		"device port missing": {
			mutate:  func(c *Config) { c.Device.Port = 0 },
			expErrs: []string{"device port must be set"},
		},
		"device path": {
			mutate:  func(c *Config) { c.Device.Path = "device" },
			expErrs: []string{"device path must start with /"},
		},
		"bad kinds": {
			mutate:  func(c *Config) { c.Sync.Kinds = []string{"user"} },
			expErrs: []string{"unknown game object kind"},
		},
		"bad position interval": {
			mutate:  func(c *Config) { c.Sync.PositionInterval = "soon" },
			expErrs: []string{"parsing position_interval"},
		},
		"half camera size": {
			mutate:  func(c *Config) { c.Sensors.CameraWidth = 640 },
			expErrs: []string{"camera_width and camera_height must be set together"},
		},
		"bad popup template": {
			mutate:  func(c *Config) { c.Views.PopupTemplate = "{{ .Name " },
			expErrs: []string{"parsing template"},
		},
		"listener without port": {
			mutate:  func(c *Config) { c.Listeners[0].Port = 0 },
			expErrs: []string{"listener 0: port must be set"},
		},
		"telnet password": {
			mutate:  func(c *Config) { c.Listeners[0].Protocol = ListenerTypeTelnet },
			expErrs: []string{"password is only supported for ssh listeners"},
		},
		"nats timeout": {
			mutate:  func(c *Config) { c.Nats.StartTimeout = "later" },
			expErrs: []string{"parsing nats start_timeout"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var cfg Config
			if err := json.Unmarshal([]byte(validConfig), &cfg); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.mutate(&cfg)

			err := cfg.Validate()

			if len(tt.expErrs) == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected errors %v, got nil", tt.expErrs)
			}
			for _, e := range tt.expErrs {
				if !strings.Contains(err.Error(), e) {
					t.Errorf("error %q does not contain %q", err.Error(), e)
				}
			}
		})
	}
}

func TestBackendConfig_BuildAuth(t *testing.T) {
	dir := t.TempDir() + "/creds"
	c := BackendConfig{CredentialsPath: dir, CredentialsPassphrase: "hunter2"}

	a, err := c.buildAuth()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.SetCredentials("alice", "secret", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again, err := c.buildAuth()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "remembered", again.Username(), "alice")
}

func TestListenerConfig_BuildListener(t *testing.T) {
	tests := map[string]struct {
		cfg    ListenerConfig
		expErr string
	}{
		"telnet":            {cfg: ListenerConfig{Protocol: ListenerTypeTelnet, Port: 2323}},
		"ssh ephemeral key": {cfg: ListenerConfig{Protocol: ListenerTypeSSH, Port: 2222}},
		"ssh missing key": {
			cfg:    ListenerConfig{Protocol: ListenerTypeSSH, Port: 2222, HostKeyPath: "/nonexistent/key"},
			expErr: "reading host key",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w, err := tt.cfg.BuildListener(nil)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if w == nil {
				t.Fatal("expected a worker")
			}
		})
	}
}
