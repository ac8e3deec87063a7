package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/wadispatch/internal/config"
	"github.com/danmuck/wadispatch/internal/service"
	"github.com/danmuck/wadispatch/internal/testutil/testlog"
)

func TestLoadServiceConfigExampleOverrides(t *testing.T) {
	testlog.Start(t)
	path := "ex.config.toml"
	if _, err := config.Load(path); err != nil {
		t.Fatalf("strict load: %v", err)
	}
	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ID != "dispatch.example" || cfg.Addr != "127.0.0.1:7071" {
		t.Fatalf("unexpected id/addr: %q %q", cfg.ID, cfg.Addr)
	}
	if cfg.AuthDir != "session_auth_info" {
		t.Fatalf("relative auth_dir should resolve beside the config, got %q", cfg.AuthDir)
	}
	if cfg.ConnectTimeout != 20*time.Second {
		t.Fatalf("unexpected connect timeout: %v", cfg.ConnectTimeout)
	}
	if cfg.Delivery.SettleDelay != 1500*time.Millisecond || cfg.Delivery.DeliverTimeout != time.Minute {
		t.Fatalf("unexpected delivery timings: %+v", cfg.Delivery)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %+v", cfg.CORSOrigins)
	}
	if cfg.Transport.SecurityMode != service.SecurityModeDevelopment || cfg.Transport.TLS.Enabled {
		t.Fatalf("unexpected transport: %+v", cfg.Transport)
	}
}

func TestLoadServiceConfigKeepsDefaultsForUnsetKeys(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := "settle_delay = \"0s\"\ntls_cert_file = \"certs/server.crt\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(envAPIToken, "from-env")

	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	def := service.DefaultServiceConfig()
	if cfg.Addr != def.Addr || cfg.ConnectTimeout != def.ConnectTimeout || cfg.Delivery.DeliverTimeout != def.Delivery.DeliverTimeout {
		t.Fatalf("unset keys must keep defaults: %+v", cfg)
	}
	if cfg.Delivery.SettleDelay != 0 {
		t.Fatalf("explicit zero settle delay must be kept, got %v", cfg.Delivery.SettleDelay)
	}
	if cfg.Transport.TLS.CertFile != filepath.Join(dir, "certs", "server.crt") {
		t.Fatalf("unexpected cert path %q", cfg.Transport.TLS.CertFile)
	}
	if cfg.APIToken != "from-env" {
		t.Fatalf("env token must override, got %q", cfg.APIToken)
	}
}

func TestLoadServiceConfigRejectsBadDuration(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("deliver_timeout = \"1 minute\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadServiceConfig(path); err == nil {
		t.Fatalf("expected duration parse error")
	}
}

func TestResolveConfigFallsBackOnlyForDefaultPath(t *testing.T) {
	testlog.Start(t)
	missing := filepath.Join(t.TempDir(), "absent.toml")
	cfg, err := resolveConfig(missing, false)
	if err != nil || cfg.Addr != service.DefaultServiceConfig().Addr {
		t.Fatalf("expected defaults, got cfg=%+v err=%v", cfg, err)
	}
	if _, err := resolveConfig(missing, true); err == nil {
		t.Fatalf("explicit missing config must fail")
	}
}
