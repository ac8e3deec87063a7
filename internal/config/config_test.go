package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/wadispatch/internal/testutil/testlog"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestTemplateRoundTripsThroughLoad(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	want := TemplateConfig()
	if cfg.Addr != want.Addr || cfg.SettleDelay != "2s" || cfg.AttachmentFileName != "consentimiento.pdf" {
		t.Fatalf("template mismatch: %+v", cfg)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("forced overwrite failed: %v", err)
	}
}

func TestTemplateCarriesComments(t *testing.T) {
	testlog.Start(t)
	out, err := Template()
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if !strings.Contains(out, "HTTP listen address") || !strings.Contains(out, "session_auth_info") {
		t.Fatalf("unexpected template:\n%s", out)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "addr = \":7071\"\nheartbeat = \"5s\"\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "heartbeat") {
		t.Fatalf("expected unknown key error naming heartbeat, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		cfg  DispatchConfig
		ok   bool
	}{
		{name: "empty", cfg: DispatchConfig{}, ok: true},
		{name: "blank addr", cfg: DispatchConfig{Addr: "  "}, ok: false},
		{name: "bad duration", cfg: DispatchConfig{SettleDelay: "soon"}, ok: false},
		{name: "negative duration", cfg: DispatchConfig{ConnectTimeout: "-1s"}, ok: false},
		{name: "bad mode", cfg: DispatchConfig{SecurityMode: "staging"}, ok: false},
		{name: "tls without files", cfg: DispatchConfig{TLSEnabled: true}, ok: false},
		{name: "mutual without tls", cfg: DispatchConfig{TLSMutual: true}, ok: false},
		{name: "mutual without ca", cfg: DispatchConfig{TLSEnabled: true, TLSMutual: true, TLSCertFile: "c", TLSKeyFile: "k"}, ok: false},
		{name: "blank required file", cfg: DispatchConfig{AuthRequiredFiles: []string{"session.db", ""}}, ok: false},
		{name: "production tls", cfg: DispatchConfig{SecurityMode: "production", TLSEnabled: true, TLSCertFile: "c", TLSKeyFile: "k"}, ok: true},
	}
	for _, tc := range cases {
		err := Validate(tc.cfg)
		if (err == nil) != tc.ok {
			t.Fatalf("%s: ok=%v got err=%v", tc.name, tc.ok, err)
		}
	}
}
