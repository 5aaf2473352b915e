package server

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig checks the shipped defaults that the rest of the system
// depends on.
func TestDefaultConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.Server.Port != ":5000" {
		t.Errorf("default port = %q; want :5000", cfg.Server.Port)
	}
	if cfg.Limits.MaxUsersPerRoom != 50 {
		t.Errorf("default max_users_per_room = %d; want 50", cfg.Limits.MaxUsersPerRoom)
	}
	if cfg.Limits.MaxMessageLength != 1000 {
		t.Errorf("default max_message_length = %d; want 1000", cfg.Limits.MaxMessageLength)
	}
	if !cfg.Features.AudioCalls || !cfg.Features.VideoCalls || !cfg.Features.TextChat {
		t.Errorf("default features = %+v; want all enabled", cfg.Features)
	}
	if cfg.Redis.Enabled {
		t.Error("redis enabled by default; want memory backend")
	}
	if len(cfg.WebRTC.ICEServers) == 0 {
		t.Error("no default ICE servers configured")
	}
}

// TestSanitizeConfig checks that invalid limits fall back to defaults and a
// bare port number gains its colon.
func TestSanitizeConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Server.Port = "9000"
	cfg.Limits.MaxUsersPerRoom = -1
	cfg.Limits.MinUsernameLength = 40 // above max
	SetConfig(cfg)
	defer SetConfig(nil)

	active := currentConfig()
	if active.Server.Port != ":9000" {
		t.Errorf("sanitized port = %q; want :9000", active.Server.Port)
	}
	if active.Limits.MaxUsersPerRoom != 50 {
		t.Errorf("sanitized max_users_per_room = %d; want default 50", active.Limits.MaxUsersPerRoom)
	}
	if active.Limits.MinUsernameLength > active.Limits.MaxUsernameLength {
		t.Errorf("sanitized username bounds inverted: min %d max %d",
			active.Limits.MinUsernameLength, active.Limits.MaxUsernameLength)
	}
}

// TestLoadConfigFile checks that a partial YAML file overlays defaults
// without clobbering unrelated sections.
func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := []byte(`
server:
  port: ":8443"
redis:
  enabled: true
  addr: "redis.internal:6379"
limits:
  max_users_per_room: 8
features:
  video_calls: false
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != ":8443" {
		t.Errorf("port = %q; want :8443", cfg.Server.Port)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis.internal:6379" {
		t.Errorf("redis = %+v; want enabled at redis.internal:6379", cfg.Redis)
	}
	if cfg.Limits.MaxUsersPerRoom != 8 {
		t.Errorf("max_users_per_room = %d; want 8", cfg.Limits.MaxUsersPerRoom)
	}
	if cfg.Features.VideoCalls {
		t.Error("video_calls still enabled; file should disable it")
	}
	// Untouched sections keep their defaults.
	if !cfg.Features.AudioCalls {
		t.Error("audio_calls lost its default")
	}
	if cfg.Limits.MaxMessageLength != 1000 {
		t.Errorf("max_message_length = %d; want default 1000", cfg.Limits.MaxMessageLength)
	}
}

// TestLoadConfigMissingFile checks that naming a nonexistent file is an
// error rather than a silent fallback.
func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Error("LoadConfig with a missing file succeeded; want error")
	}
}

// TestEnvOverrides checks that environment variables beat both defaults and
// file values.
func TestEnvOverrides(t *testing.T) {
	t.Setenv("VOXHALL_PORT", ":7777")
	t.Setenv("VOXHALL_REDIS_ENABLED", "true")
	t.Setenv("VOXHALL_REDIS_ADDR", "envhost:6379")
	t.Setenv("VOXHALL_MAX_MESSAGE_LENGTH", "123")
	t.Setenv("VOXHALL_RATE_LIMIT_MESSAGES", "not-a-number")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != ":7777" {
		t.Errorf("port = %q; want :7777", cfg.Server.Port)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "envhost:6379" {
		t.Errorf("redis = %+v; want enabled at envhost:6379", cfg.Redis)
	}
	if cfg.Limits.MaxMessageLength != 123 {
		t.Errorf("max_message_length = %d; want 123", cfg.Limits.MaxMessageLength)
	}
	// Unparseable values keep the previous setting.
	if cfg.Limits.RateLimitMessages != 10 {
		t.Errorf("rate_limit_messages = %d; want default 10", cfg.Limits.RateLimitMessages)
	}
}

// TestValidateSSL checks that enabling SSL without readable certificate
// files fails fast.
func TestValidateSSL(t *testing.T) {
	cfg := NewConfig()
	cfg.SSL.Enabled = true
	cfg.SSL.CertFile = filepath.Join(t.TempDir(), "missing-cert.pem")
	cfg.SSL.KeyFile = filepath.Join(t.TempDir(), "missing-key.pem")

	if err := cfg.Validate(); err == nil {
		t.Error("Validate with missing certificates succeeded; want error")
	}

	cfg.SSL.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate without SSL failed: %v", err)
	}
}
