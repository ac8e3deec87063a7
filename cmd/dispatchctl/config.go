package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/wadispatch/internal/service"
)

type fileConfig struct {
	ID                 string   `toml:"id"`
	Addr               string   `toml:"addr"`
	AuthDir            string   `toml:"auth_dir"`
	AuthRequiredFiles  []string `toml:"auth_required_files"`
	ConnectTimeout     string   `toml:"connect_timeout"`
	SettleDelay        string   `toml:"settle_delay"`
	DeliverTimeout     string   `toml:"deliver_timeout"`
	AttachmentFileName string   `toml:"attachment_file_name"`
	AttachmentMimeType string   `toml:"attachment_mime_type"`
	CorsOrigins        []string `toml:"cors_origins"`
	APIToken           string   `toml:"api_token"`
	SecurityMode       string   `toml:"security_mode"`
	TLSEnabled         bool     `toml:"tls_enabled"`
	TLSMutual          bool     `toml:"tls_mutual"`
	TLSCertFile        string   `toml:"tls_cert_file"`
	TLSKeyFile         string   `toml:"tls_key_file"`
	TLSCAFile          string   `toml:"tls_ca_file"`
}

// envAPIToken overrides api_token so the secret can stay out of the file.
const envAPIToken = "WADISPATCH_API_TOKEN"

func loadServiceConfig(path string) (service.ServiceConfig, error) {
	cfg := service.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return service.ServiceConfig{}, fmt.Errorf("load dispatch config: %w", err)
	}

	if meta.IsDefined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.ID = id
		}
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("auth_dir") {
		cfg.AuthDir = resolvePath(path, raw.AuthDir)
	}
	if meta.IsDefined("auth_required_files") {
		cfg.AuthRequiredFiles = normalizeList(raw.AuthRequiredFiles)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{key: "connect_timeout", raw: raw.ConnectTimeout, dst: &cfg.ConnectTimeout},
		{key: "settle_delay", raw: raw.SettleDelay, dst: &cfg.Delivery.SettleDelay},
		{key: "deliver_timeout", raw: raw.DeliverTimeout, dst: &cfg.Delivery.DeliverTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return service.ServiceConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("attachment_file_name") {
		cfg.Delivery.AttachmentFileName = strings.TrimSpace(raw.AttachmentFileName)
	}
	if meta.IsDefined("attachment_mime_type") {
		cfg.Delivery.AttachmentMimeType = strings.TrimSpace(raw.AttachmentMimeType)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeList(raw.CorsOrigins)
	}
	if meta.IsDefined("api_token") {
		cfg.APIToken = strings.TrimSpace(raw.APIToken)
	}
	if token := strings.TrimSpace(os.Getenv(envAPIToken)); token != "" {
		cfg.APIToken = token
	}

	if meta.IsDefined("security_mode") {
		cfg.Transport.SecurityMode = service.SecurityMode(strings.TrimSpace(raw.SecurityMode))
	}
	if meta.IsDefined("tls_enabled") {
		cfg.Transport.TLS.Enabled = raw.TLSEnabled
	}
	if meta.IsDefined("tls_mutual") {
		cfg.Transport.TLS.Mutual = raw.TLSMutual
	}
	if meta.IsDefined("tls_cert_file") {
		cfg.Transport.TLS.CertFile = resolvePath(path, raw.TLSCertFile)
	}
	if meta.IsDefined("tls_key_file") {
		cfg.Transport.TLS.KeyFile = resolvePath(path, raw.TLSKeyFile)
	}
	if meta.IsDefined("tls_ca_file") {
		cfg.Transport.TLS.CAFile = resolvePath(path, raw.TLSCAFile)
	}

	return cfg, nil
}

// resolvePath anchors relative paths at the config file's directory.
func resolvePath(configPath, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, item := range in {
		v := strings.TrimSpace(item)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
