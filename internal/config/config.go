package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DispatchConfig is the on-disk shape of a dispatchctl config file.
// Durations are Go duration strings.
type DispatchConfig struct {
	ID                 string   `toml:"id" comment:"instance id used in logs and metrics"`
	Addr               string   `toml:"addr" comment:"HTTP listen address"`
	AuthDir            string   `toml:"auth_dir" comment:"directory holding the paired WhatsApp session"`
	AuthRequiredFiles  []string `toml:"auth_required_files" comment:"files that must exist inside auth_dir"`
	ConnectTimeout     string   `toml:"connect_timeout" comment:"max wait for the session to open; 0s waits for the request deadline"`
	SettleDelay        string   `toml:"settle_delay" comment:"post-open settle bound before the first send"`
	DeliverTimeout     string   `toml:"deliver_timeout" comment:"bound on connect through send; 0s disables"`
	AttachmentFileName string   `toml:"attachment_file_name"`
	AttachmentMimeType string   `toml:"attachment_mime_type"`
	CorsOrigins        []string `toml:"cors_origins"`
	APIToken           string   `toml:"api_token" comment:"bearer token required on /api routes when set"`
	SecurityMode       string   `toml:"security_mode" comment:"development or production; production requires tls"`
	TLSEnabled         bool     `toml:"tls_enabled"`
	TLSMutual          bool     `toml:"tls_mutual"`
	TLSCertFile        string   `toml:"tls_cert_file"`
	TLSKeyFile         string   `toml:"tls_key_file"`
	TLSCAFile          string   `toml:"tls_ca_file"`
}

// Load decodes path strictly; unknown keys are errors.
func Load(path string) (DispatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DispatchConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	var cfg DispatchConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return DispatchConfig{}, fmt.Errorf("config parse failed (%s): %s", path, strict.String())
		}
		return DispatchConfig{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return DispatchConfig{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// Validate checks values a loaded file sets. Unset fields keep service
// defaults and are not checked here.
func Validate(cfg DispatchConfig) error {
	if cfg.Addr != "" && strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("addr is blank")
	}
	for key, raw := range map[string]string{
		"connect_timeout": cfg.ConnectTimeout,
		"settle_delay":    cfg.SettleDelay,
		"deliver_timeout": cfg.DeliverTimeout,
	} {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.SecurityMode)) {
	case "", "development", "production":
	default:
		return fmt.Errorf("security_mode must be development or production, got %q", cfg.SecurityMode)
	}
	if cfg.TLSEnabled {
		if strings.TrimSpace(cfg.TLSCertFile) == "" || strings.TrimSpace(cfg.TLSKeyFile) == "" {
			return fmt.Errorf("tls_enabled requires tls_cert_file and tls_key_file")
		}
	}
	if cfg.TLSMutual {
		if !cfg.TLSEnabled {
			return fmt.Errorf("tls_mutual requires tls_enabled")
		}
		if strings.TrimSpace(cfg.TLSCAFile) == "" {
			return fmt.Errorf("tls_mutual requires tls_ca_file")
		}
	}
	for i, f := range cfg.AuthRequiredFiles {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("auth_required_files[%d] is blank", i)
		}
	}
	return nil
}
