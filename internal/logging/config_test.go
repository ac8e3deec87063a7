package logging

import (
	"bytes"
	"strings"
	"testing"

	logs "github.com/danmuck/smplog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want logs.Level
		ok   bool
	}{
		{raw: "", want: logs.InfoLevel, ok: false},
		{raw: "debug", want: logs.DebugLevel, ok: true},
		{raw: " WARNING ", want: logs.WarnLevel, ok: true},
		{raw: "off", want: logs.Disabled, ok: true},
		{raw: "loud", want: logs.InfoLevel, ok: false},
	}
	for _, tc := range cases {
		got, ok := parseLevel(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("parseLevel(%q) got=(%v,%v) want=(%v,%v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogBypass, "true")
	t.Setenv(EnvLogNoColor, "nope")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != logs.ErrorLevel {
		t.Fatalf("unexpected level: %v", cfg.Level)
	}
	if cfg.Timestamp {
		t.Fatalf("expected timestamp disabled")
	}
	if !cfg.Bypass {
		t.Fatalf("expected bypass enabled")
	}
	if cfg.NoColor {
		t.Fatalf("invalid bool must not override no_color")
	}
}

func TestApplyBypassWritesJSON(t *testing.T) {
	prev := logs.Configured()
	t.Cleanup(func() { Apply(prev) })

	var buf bytes.Buffer
	cfg := defaultConfig(ProfileRuntime)
	cfg.Bypass = true
	cfg.Timestamp = false
	cfg.Writer = &buf
	Apply(cfg)

	logs.Debugf("hidden")
	logs.Infof("delivered target=%s", "+15551234567")
	log.Info().Str("route", "/api/send-message").Msg("request")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %q", out)
	}
	if !strings.Contains(out, `"message":"delivered target=+15551234567"`) {
		t.Fatalf("unexpected smplog output: %q", out)
	}
	if !strings.Contains(out, `"route":"/api/send-message"`) {
		t.Fatalf("zerolog global not mirrored: %q", out)
	}
}

func TestDefaultConfigProfiles(t *testing.T) {
	runtime := defaultConfig(ProfileRuntime)
	if runtime.Level != logs.InfoLevel || !runtime.Timestamp || runtime.Writer == nil {
		t.Fatalf("unexpected runtime config: level=%v timestamp=%v", runtime.Level, runtime.Timestamp)
	}
	test := defaultConfig(ProfileTest)
	if test.Level != logs.DebugLevel || test.Timestamp || !test.NoColor {
		t.Fatalf("unexpected test config: level=%v timestamp=%v nocolor=%v", test.Level, test.Timestamp, test.NoColor)
	}
}
