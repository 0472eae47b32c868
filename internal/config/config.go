package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	RequireIdentity bool          `mapstructure:"require_identity"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	AdmitLimit      int           `mapstructure:"admit_limit"`
	AdmitWindow     time.Duration `mapstructure:"admit_window"`
	EventRate       float64       `mapstructure:"event_rate"`
	EventBurst      int           `mapstructure:"event_burst"`
	SendBuffer      int           `mapstructure:"send_buffer"`

	RingTimeout   time.Duration `mapstructure:"ring_timeout"`
	PresenceScope string        `mapstructure:"presence_scope"`
	Backpressure  string        `mapstructure:"backpressure"`

	ICEServerURLs  []string `mapstructure:"ice_servers"`
	TURNUsername   string   `mapstructure:"turn_username"`
	TURNCredential string   `mapstructure:"turn_credential"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("ping_period", "25s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")

	v.SetDefault("require_identity", false)
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("admit_limit", 100)
	v.SetDefault("admit_window", "60s")
	v.SetDefault("event_rate", 50.0)
	v.SetDefault("event_burst", 100)
	v.SetDefault("send_buffer", 64)

	v.SetDefault("ring_timeout", "45s")
	v.SetDefault("presence_scope", "global")
	v.SetDefault("backpressure", "drop")

	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("turn_username", "")
	v.SetDefault("turn_credential", "")
}

// Load reads config/config.<CONFIG_ENV>.yaml, then CALLWIRE_* environment
// overrides. A .env file in the working directory is loaded first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return load(fmt.Sprintf("config/config.%s.yaml", env))
}

func load(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("callwire")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.AdmitLimit <= 0 {
		return fmt.Errorf("admit_limit must be positive")
	}
	if c.AdmitWindow <= 0 {
		return fmt.Errorf("admit_window must be positive")
	}
	if c.EventRate <= 0 {
		return fmt.Errorf("event_rate must be positive")
	}
	if c.EventBurst < 1 {
		return fmt.Errorf("event_burst must be at least 1")
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive")
	}
	if c.PingPeriod >= c.PongWait {
		return fmt.Errorf("ping_period (%s) must be shorter than pong_wait (%s)", c.PingPeriod, c.PongWait)
	}
	switch c.PresenceScope {
	case "global", "room":
	default:
		return fmt.Errorf("presence_scope must be global or room, got %q", c.PresenceScope)
	}
	switch c.Backpressure {
	case "drop", "kick":
	default:
		return fmt.Errorf("backpressure must be drop or kick, got %q", c.Backpressure)
	}
	if _, err := c.ICEServers(); err != nil {
		return err
	}
	return nil
}
