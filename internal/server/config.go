// Package server provides configuration helpers that define runtime
// defaults, file and environment loading, validation, and limit parameters
// for the VoxHall relay.
package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SSLConfig controls TLS serving with pre-provisioned certificate files.
// Certificate generation is out of scope; the files must already exist.
type SSLConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// RedisConfig selects and parameterizes the shared presence backend. With
// Enabled false the relay uses the process-local memory backend, which
// confines the deployment to a single process.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
}

// LimitsConfig bounds user input. RateLimitMessages is the per-connection
// budget of inbound events per second.
type LimitsConfig struct {
	MaxUsersPerRoom   int `yaml:"max_users_per_room"`
	MaxMessageLength  int `yaml:"max_message_length"`
	MaxUsernameLength int `yaml:"max_username_length"`
	MinUsernameLength int `yaml:"min_username_length"`
	RateLimitMessages int `yaml:"rate_limit_messages"`
}

// FeatureFlags toggles the relay's user-facing capabilities.
type FeatureFlags struct {
	AudioCalls bool `yaml:"audio_calls"`
	VideoCalls bool `yaml:"video_calls"`
	TextChat   bool `yaml:"text_chat"`
}

// WebRTCConfig carries the ICE server list handed to clients. The relay
// never contacts these servers itself; it only publishes them at
// /webrtc/config.
type WebRTCConfig struct {
	ICEServers []ICEServerConfig `yaml:"ice_servers"`
}

// Config holds the full relay configuration.
type Config struct {
	Server   ServerConfig `yaml:"server"`
	SSL      SSLConfig    `yaml:"ssl"`
	Redis    RedisConfig  `yaml:"redis"`
	Limits   LimitsConfig `yaml:"limits"`
	Features FeatureFlags `yaml:"features"`
	WebRTC   WebRTCConfig `yaml:"webrtc"`
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:           ":5000",
			AllowedOrigins: []string{"*"},
		},
		SSL: SSLConfig{
			Enabled:  false,
			CertFile: "cert.pem",
			KeyFile:  "key.pem",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
		},
		Limits: LimitsConfig{
			MaxUsersPerRoom:   50,
			MaxMessageLength:  1000,
			MaxUsernameLength: 30,
			MinUsernameLength: 2,
			RateLimitMessages: 10,
		},
		Features: FeatureFlags{
			AudioCalls: true,
			VideoCalls: true,
			TextChat:   true,
		},
		WebRTC: WebRTCConfig{
			ICEServers: []ICEServerConfig{
				{URLs: []string{"stun:stun.l.google.com:19302"}},
				{URLs: []string{"stun:stun1.l.google.com:19302"}},
			},
		},
	}
}

func sanitizeConfig(cfg Config) Config {
	defaults := defaultConfig()

	if cfg.Server.Port == "" {
		cfg.Server.Port = defaults.Server.Port
	}
	if !strings.Contains(cfg.Server.Port, ":") {
		cfg.Server.Port = ":" + cfg.Server.Port
	}

	if cfg.Limits.MaxUsersPerRoom <= 0 {
		cfg.Limits.MaxUsersPerRoom = defaults.Limits.MaxUsersPerRoom
	}
	if cfg.Limits.MaxMessageLength <= 0 {
		cfg.Limits.MaxMessageLength = defaults.Limits.MaxMessageLength
	}
	if cfg.Limits.MaxUsernameLength <= 0 {
		cfg.Limits.MaxUsernameLength = defaults.Limits.MaxUsernameLength
	}
	if cfg.Limits.MinUsernameLength <= 0 {
		cfg.Limits.MinUsernameLength = defaults.Limits.MinUsernameLength
	}
	if cfg.Limits.MinUsernameLength > cfg.Limits.MaxUsernameLength {
		cfg.Limits.MinUsernameLength = cfg.Limits.MaxUsernameLength
	}
	if cfg.Limits.RateLimitMessages <= 0 {
		cfg.Limits.RateLimitMessages = defaults.Limits.RateLimitMessages
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.Server.AllowedOrigins)
	cfg.Server.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		defaultCfg := defaultConfig()
		sanitizeConfig(defaultCfg)
		return
	}

	copied := *cfg
	copied.Server.AllowedOrigins = append([]string(nil), cfg.Server.AllowedOrigins...)
	copied.WebRTC.ICEServers = append([]ICEServerConfig(nil), cfg.WebRTC.ICEServers...)
	sanitizeConfig(copied)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.Server.AllowedOrigins = append([]string(nil), cfg.Server.AllowedOrigins...)
	cfg.WebRTC.ICEServers = append([]ICEServerConfig(nil), cfg.WebRTC.ICEServers...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all
// settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// LoadConfig builds the effective configuration: defaults, overlaid by the
// YAML file at path when path is non-empty, overlaid by environment
// variables. A named but unreadable file is an error; callers decide whether
// that is fatal.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if err := loadConfigFile(&cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if port := os.Getenv("VOXHALL_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if origins := os.Getenv("VOXHALL_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = parseOrigins(origins)
	}

	if v := os.Getenv("VOXHALL_SSL_ENABLED"); v != "" {
		cfg.SSL.Enabled = parseBoolValue(v, cfg.SSL.Enabled)
	}
	if cert := os.Getenv("VOXHALL_SSL_CERT"); cert != "" {
		cfg.SSL.CertFile = cert
	}
	if key := os.Getenv("VOXHALL_SSL_KEY"); key != "" {
		cfg.SSL.KeyFile = key
	}

	if v := os.Getenv("VOXHALL_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBoolValue(v, cfg.Redis.Enabled)
	}
	if addr := os.Getenv("VOXHALL_REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if db := os.Getenv("VOXHALL_REDIS_DB"); db != "" {
		cfg.Redis.DB = parseIntValue(db, cfg.Redis.DB)
	}
	if password := os.Getenv("VOXHALL_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	if v := os.Getenv("VOXHALL_MAX_USERS_PER_ROOM"); v != "" {
		cfg.Limits.MaxUsersPerRoom = parsePositiveInt(v, cfg.Limits.MaxUsersPerRoom)
	}
	if v := os.Getenv("VOXHALL_MAX_MESSAGE_LENGTH"); v != "" {
		cfg.Limits.MaxMessageLength = parsePositiveInt(v, cfg.Limits.MaxMessageLength)
	}
	if v := os.Getenv("VOXHALL_RATE_LIMIT_MESSAGES"); v != "" {
		cfg.Limits.RateLimitMessages = parsePositiveInt(v, cfg.Limits.RateLimitMessages)
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseBoolValue(value string, defaultValue bool) bool {
	if parsed, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
		return parsed
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
		return parsed
	}
	return defaultValue
}

func parsePositiveInt(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

// Validate checks the parts of the configuration that must fail fast at
// startup: TLS certificate files when SSL is enabled, and the ICE server
// list handed to clients.
func (c *Config) Validate() error {
	if c.SSL.Enabled {
		for _, file := range []string{c.SSL.CertFile, c.SSL.KeyFile} {
			if _, err := os.Stat(file); err != nil {
				return fmt.Errorf("ssl enabled but %q is not readable: %w", file, err)
			}
		}
	}

	if _, err := parseICEServers(c.WebRTC.ICEServers); err != nil {
		return fmt.Errorf("webrtc.ice_servers: %w", err)
	}
	return nil
}
