package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	logs "github.com/danmuck/smplog"
	"github.com/danmuck/wadispatch/internal/api"
	"github.com/danmuck/wadispatch/internal/authstore"
	"github.com/danmuck/wadispatch/internal/delivery"
	"github.com/danmuck/wadispatch/internal/observability"
	"github.com/danmuck/wadispatch/internal/session"
	"github.com/danmuck/wadispatch/internal/whatsapp"
)

var ErrInvalidAddr = errors.New("service: invalid listen addr")

const shutdownGrace = 10 * time.Second

// ServiceConfig configures the dispatch runtime.
type ServiceConfig struct {
	ID                string
	Addr              string
	AuthDir           string
	AuthRequiredFiles []string
	ConnectTimeout    time.Duration
	Delivery          delivery.Config
	CORSOrigins       []string
	APIToken          string
	Transport         TransportConfig
}

func DefaultServiceConfig() ServiceConfig {
	sess := session.DefaultConfig()
	return ServiceConfig{
		ID:                "wadispatch.local",
		Addr:              ":7071",
		AuthDir:           sess.Location,
		AuthRequiredFiles: append([]string(nil), authstore.DefaultRequiredFiles...),
		ConnectTimeout:    sess.ConnectTimeout,
		Delivery:          delivery.DefaultConfig(),
		CORSOrigins:       []string{"http://localhost:3000"},
		Transport:         TransportConfig{SecurityMode: SecurityModeDevelopment},
	}
}

// Service wires the session manager, delivery and HTTP API together.
type Service struct {
	cfg     ServiceConfig
	manager *session.Manager
	api     *api.Server
}

// NewServiceWithConfig builds the runtime against WhatsApp.
func NewServiceWithConfig(cfg ServiceConfig) (*Service, error) {
	store := authstore.NewDirStore("", cfg.AuthRequiredFiles)
	return newService(cfg, store, whatsapp.NewDialer(whatsapp.DefaultDeviceDB))
}

func newService(cfg ServiceConfig, store session.Store, dialer session.Dialer) (*Service, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, ErrInvalidAddr
	}
	if err := cfg.Transport.Validate(); err != nil {
		return nil, err
	}
	manager, err := session.NewManager(session.Config{
		Location:       cfg.AuthDir,
		ConnectTimeout: cfg.ConnectTimeout,
		OnTransition: func(from, to session.State) {
			observability.RecordSessionTransition(string(from), string(to))
		},
	}, store, dialer)
	if err != nil {
		return nil, err
	}
	dsvc, err := delivery.NewService(cfg.Delivery, manager)
	if err != nil {
		return nil, err
	}
	srv := api.New(api.Config{
		ID:          cfg.ID,
		CORSOrigins: cfg.CORSOrigins,
		APIToken:    cfg.APIToken,
	}, dsvc, manager)
	return &Service{cfg: cfg, manager: manager, api: srv}, nil
}

// Run blocks until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("service: listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve answers HTTP(S) on ln until ctx ends, then drains in-flight requests
// and releases the session.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	tlsCfg, err := s.cfg.Transport.ServerTLS()
	if err != nil {
		_ = ln.Close()
		return err
	}
	srv := &http.Server{
		Handler:           s.api.Handler(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if tlsCfg != nil {
			serveErr <- srv.ServeTLS(ln, "", "")
			return
		}
		serveErr <- srv.Serve(ln)
	}()
	logs.Infof(
		"service.Serve listening id=%s addr=%s tls=%v security_mode=%s",
		s.cfg.ID,
		ln.Addr().String(),
		tlsCfg != nil,
		NormalizeSecurityMode(s.cfg.Transport.SecurityMode),
	)

	select {
	case err := <-serveErr:
		s.manager.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	s.manager.Close()
	<-serveErr
	logs.Infof("service.Serve stopped id=%s", s.cfg.ID)
	return err
}

func (s *Service) Manager() *session.Manager { return s.manager }

func (s *Service) Handler() http.Handler { return s.api.Handler() }
