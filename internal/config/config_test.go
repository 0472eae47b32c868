package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 || cfg.AdmitLimit != 100 || cfg.AdmitWindow != time.Minute {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.RingTimeout != 45*time.Second || cfg.PresenceScope != "global" || cfg.Backpressure != "drop" {
		t.Fatalf("unexpected call defaults %+v", cfg)
	}
	if cfg.ReadLimit != 1<<20 || len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("unexpected gateway defaults %+v", cfg)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.test.yaml")
	body := []byte("port: 9000\npresence_scope: room\nring_timeout: 10s\n")
	if err := os.WriteFile(file, body, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CALLWIRE_BACKPRESSURE", "kick")
	t.Setenv("CALLWIRE_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9000 || cfg.PresenceScope != "room" || cfg.RingTimeout != 10*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Backpressure != "kick" {
		t.Fatalf("env override not applied: %q", cfg.Backpressure)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("allowed origins from env: %v", cfg.AllowedOrigins)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Port:          8080,
			AdmitLimit:    100,
			AdmitWindow:   time.Minute,
			SendBuffer:    64,
			PingPeriod:    25 * time.Second,
			PongWait:      60 * time.Second,
			PresenceScope: "global",
			Backpressure:  "drop",
			EventRate:     50,
			EventBurst:    100,
		}
	}
	if c := base(); c.Validate() != nil {
		t.Fatalf("base config should be valid: %v", c.Validate())
	}
	broken := map[string]func(*Config){
		"port":         func(c *Config) { c.Port = 0 },
		"ping >= pong": func(c *Config) { c.PingPeriod = c.PongWait },
		"scope":        func(c *Config) { c.PresenceScope = "galaxy" },
		"policy":       func(c *Config) { c.Backpressure = "block" },
		"turn creds":   func(c *Config) { c.ICEServerURLs = []string{"turn:turn.example.org:3478"} },
		"event rate":   func(c *Config) { c.EventRate = 0 },
		"event burst":  func(c *Config) { c.EventBurst = 0 },
	}
	for name, mutate := range broken {
		c := base()
		mutate(&c)
		if c.Validate() == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestICEServers(t *testing.T) {
	c := Config{
		ICEServerURLs:  []string{"stun:stun.example.org:3478", " ", "turn:turn.example.org:3478?transport=udp"},
		TURNUsername:   "user",
		TURNCredential: "secret",
	}
	servers, err := c.ICEServers()
	if err != nil {
		t.Fatalf("ice servers: %v", err)
	}
	if len(servers) != 2 {
		t.Fatalf("servers = %d, want 2", len(servers))
	}
	if len(servers[0].URLs) != 1 || servers[0].Username != "" {
		t.Fatalf("unexpected stun entry %+v", servers[0])
	}
	turn := servers[1]
	if turn.Username != "user" || turn.Credential != "secret" || turn.CredentialType != webrtc.ICECredentialTypePassword {
		t.Fatalf("unexpected turn entry %+v", turn)
	}

	c.ICEServerURLs = []string{"http://example.org"}
	if _, err := c.ICEServers(); err == nil {
		t.Fatalf("unsupported scheme accepted")
	}
}
