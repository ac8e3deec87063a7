package service

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/wadispatch/internal/session"
	"github.com/danmuck/wadispatch/internal/testutil/fakenet"
	"github.com/danmuck/wadispatch/internal/testutil/testlog"
	"github.com/danmuck/wadispatch/internal/testutil/tlstest"
)

func testConfig() ServiceConfig {
	cfg := DefaultServiceConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.Delivery.SettleDelay = 0
	return cfg
}

func startService(t *testing.T, cfg ServiceConfig, dialer *fakenet.Dialer) (*Service, string, func() error) {
	t.Helper()
	svc, err := newService(cfg, &fakenet.Store{}, dialer)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()
	stop := func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatalf("service did not stop")
			return nil
		}
	}
	t.Cleanup(func() { cancel() })
	return svc, ln.Addr().String(), stop
}

func postMessage(t *testing.T, client *http.Client, url string) (int, string) {
	t.Helper()
	resp, err := client.Post(url+"/api/messages", "application/json", strings.NewReader(`{"target":"+15551234567","message":"hi"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestTransportValidate(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		cfg  TransportConfig
		want error
	}{
		{name: "development plain", cfg: TransportConfig{}, want: nil},
		{name: "unknown mode", cfg: TransportConfig{SecurityMode: "staging"}, want: ErrInvalidSecurityMode},
		{name: "production plain", cfg: TransportConfig{SecurityMode: "Production"}, want: ErrTLSRequired},
		{name: "mutual without tls", cfg: TransportConfig{TLS: TLSConfig{Mutual: true}}, want: ErrTLSRequired},
		{name: "tls without cert", cfg: TransportConfig{TLS: TLSConfig{Enabled: true, KeyFile: "k"}}, want: ErrTLSCertFileRequired},
		{name: "tls without key", cfg: TransportConfig{TLS: TLSConfig{Enabled: true, CertFile: "c"}}, want: ErrTLSKeyFileRequired},
		{name: "mutual without ca", cfg: TransportConfig{TLS: TLSConfig{Enabled: true, Mutual: true, CertFile: "c", KeyFile: "k"}}, want: ErrTLSCAFileRequired},
		{name: "production tls", cfg: TransportConfig{SecurityMode: SecurityModeProduction, TLS: TLSConfig{Enabled: true, CertFile: "c", KeyFile: "k"}}, want: nil},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if !errors.Is(err, tc.want) || (tc.want == nil && err != nil) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestNewServiceRejectsBadConfig(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig()
	cfg.Addr = " "
	if _, err := newService(cfg, &fakenet.Store{}, &fakenet.Dialer{}); !errors.Is(err, ErrInvalidAddr) {
		t.Fatalf("expected ErrInvalidAddr, got %v", err)
	}
	cfg = testConfig()
	cfg.Transport.SecurityMode = SecurityModeProduction
	if _, err := newService(cfg, &fakenet.Store{}, &fakenet.Dialer{}); !errors.Is(err, ErrTLSRequired) {
		t.Fatalf("expected ErrTLSRequired, got %v", err)
	}
}

func TestServeDeliversOverHTTP(t *testing.T) {
	testlog.Start(t)
	dialer := &fakenet.Dialer{}
	svc, addr, stop := startService(t, testConfig(), dialer)

	code, body := postMessage(t, http.DefaultClient, "http://"+addr)
	if code != http.StatusOK || body != "message sent to +15551234567" {
		t.Fatalf("unexpected response %d %q", code, body)
	}
	if dialer.Opens() != 1 || dialer.Live() != 0 {
		t.Fatalf("expected one released session, opens=%d live=%d", dialer.Opens(), dialer.Live())
	}
	if err := stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if svc.Manager().State() != session.StateDisconnected {
		t.Fatalf("expected disconnected after shutdown, got %s", svc.Manager().State())
	}
}

func TestServeMutualTLS(t *testing.T) {
	testlog.Start(t)
	ca := tlstest.New(t)
	server := ca.Localhost(t)
	client := ca.Client(t, "dispatch-caller")

	cfg := testConfig()
	cfg.Transport = TransportConfig{
		SecurityMode: SecurityModeProduction,
		TLS: TLSConfig{
			Enabled:  true,
			Mutual:   true,
			CertFile: server.CertFile,
			KeyFile:  server.KeyFile,
			CAFile:   ca.CAFile(),
		},
	}
	_, addr, stop := startService(t, cfg, &fakenet.Dialer{})
	url := "https://" + addr

	trusted := &http.Client{Transport: &http.Transport{TLSClientConfig: ca.ClientConfig(t, &client)}}
	code, _ := postMessage(t, trusted, url)
	if code != http.StatusOK {
		t.Fatalf("expected 200 over mtls, got %d", code)
	}

	anonymous := &http.Client{Transport: &http.Transport{TLSClientConfig: ca.ClientConfig(t, nil)}}
	if resp, err := anonymous.Get(url + "/health"); err == nil {
		resp.Body.Close()
		t.Fatalf("expected handshake failure without client cert")
	}
	if err := stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestServeReportsConnectFailure(t *testing.T) {
	testlog.Start(t)
	dialer := &fakenet.Dialer{OpenErr: fakenet.ErrDialFailed}
	svc, addr, stop := startService(t, testConfig(), dialer)

	code, body := postMessage(t, http.DefaultClient, "http://"+addr)
	if code != http.StatusInternalServerError || body != "failed to process the request" {
		t.Fatalf("unexpected response %d %q", code, body)
	}
	if st := svc.Manager().Status(); st.State != session.StateDisconnected || st.LastError == "" {
		t.Fatalf("expected disconnected with last error, got %+v", st)
	}
	if err := stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
