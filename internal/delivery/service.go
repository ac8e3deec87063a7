package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logs "github.com/danmuck/smplog"
	"github.com/danmuck/wadispatch/internal/observability"
	"github.com/danmuck/wadispatch/internal/session"
)

const outcomeDelivered = "delivered"

// Config defines delivery behavior.
type Config struct {
	// SettleDelay bounds the post-open readiness wait. Without a readiness
	// signal the full delay is slept. Zero skips settling.
	SettleDelay time.Duration
	// DeliverTimeout bounds connect through send. Zero disables the bound.
	DeliverTimeout     time.Duration
	AttachmentFileName string
	AttachmentMimeType string
}

func DefaultConfig() Config {
	return Config{
		SettleDelay:        2 * time.Second,
		DeliverTimeout:     90 * time.Second,
		AttachmentFileName: "consentimiento.pdf",
		AttachmentMimeType: "application/pdf",
	}
}

func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.SettleDelay < 0 {
		c.SettleDelay = def.SettleDelay
	}
	if c.DeliverTimeout < 0 {
		c.DeliverTimeout = def.DeliverTimeout
	}
	if strings.TrimSpace(c.AttachmentFileName) == "" {
		c.AttachmentFileName = def.AttachmentFileName
	}
	if strings.TrimSpace(c.AttachmentMimeType) == "" {
		c.AttachmentMimeType = def.AttachmentMimeType
	}
	return c
}

// Sessions is the connection manager seen from a delivery.
type Sessions interface {
	Connect(ctx context.Context) (*session.Handle, error)
	Close()
}

// Attachment is an optional binary document. Empty FileName and MimeType
// fall back to the configured defaults.
type Attachment struct {
	Data     []byte
	FileName string
	MimeType string
}

type Request struct {
	Target     string
	Message    string
	Attachment *Attachment
}

// Receipt is a confirmed delivery.
type Receipt struct {
	ID       string
	Identity session.Identity
}

// Service runs one delivery at a time against a fresh session.
type Service struct {
	cfg      Config
	sessions Sessions
	slot     chan struct{}
}

func NewService(cfg Config, sessions Sessions) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("delivery: session manager required")
	}
	return &Service{
		cfg:      cfg.WithDefaults(),
		sessions: sessions,
		slot:     make(chan struct{}, 1),
	}, nil
}

// Deliver connects, verifies the target, sends and always tears the session
// down again. Failures are *Error values.
func (s *Service) Deliver(ctx context.Context, req Request) (Receipt, error) {
	start := time.Now()
	receipt, err := s.deliver(ctx, req)
	elapsed := time.Since(start)

	outcome := outcomeDelivered
	if kind, ok := KindOf(err); ok {
		outcome = string(kind)
	}
	observability.RecordDelivery(outcome, elapsed)

	if err != nil {
		logs.Warnf("delivery.Service.Deliver failed target=%s outcome=%s elapsed=%s: %v", req.Target, outcome, elapsed, err)
		return Receipt{}, err
	}
	logs.Infof(
		"delivery.Service.Deliver delivered target=%s identity=%s message_id=%s attachment=%v elapsed=%s",
		req.Target,
		receipt.Identity.ID,
		receipt.ID,
		req.Attachment != nil,
		elapsed,
	)
	return receipt, nil
}

func (s *Service) deliver(ctx context.Context, req Request) (Receipt, error) {
	if err := validate(req); err != nil {
		return Receipt{}, failure(KindInvalidRequest, err)
	}

	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return Receipt{}, failure(KindConnectionFailed, fmt.Errorf("waiting for session slot: %w", context.Cause(ctx)))
	}
	defer func() { <-s.slot }()

	if s.cfg.DeliverTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DeliverTimeout)
		defer cancel()
	}

	handle, err := s.sessions.Connect(ctx)
	if err != nil {
		// A busy session belongs to another caller.
		if !errors.Is(err, session.ErrSessionBusy) {
			s.sessions.Close()
		}
		return Receipt{}, failure(KindConnectionFailed, err)
	}
	defer s.sessions.Close()
	if err := s.settle(ctx, handle); err != nil {
		return Receipt{}, failure(KindConnectionFailed, err)
	}

	ids, err := handle.Resolve(ctx, req.Target)
	if err != nil {
		return Receipt{}, failure(KindUnregisteredTarget, err)
	}
	if len(ids) == 0 {
		return Receipt{}, failure(KindUnregisteredTarget, fmt.Errorf("no identity for %q", req.Target))
	}
	to := ids[0]

	id, err := handle.Send(ctx, to, s.payload(req))
	if err != nil {
		return Receipt{}, failure(KindSendFailed, err)
	}
	if id == "" {
		return Receipt{}, failure(KindDeliveryUnconfirmed, fmt.Errorf("empty delivery id for %s", to.ID))
	}
	return Receipt{ID: id, Identity: to}, nil
}

// settle waits for the session to finish post-open initialization.
func (s *Service) settle(ctx context.Context, h *session.Handle) error {
	if s.cfg.SettleDelay <= 0 {
		return nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.SettleDelay)
	defer cancel()

	err := h.WaitReady(waitCtx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return context.Cause(ctx)
	case errors.Is(err, session.ErrSessionClosed):
		return err
	case errors.Is(err, session.ErrReadinessUnsupported):
		<-waitCtx.Done()
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return nil
	default:
		logs.Warnf("delivery.Service.settle readiness not signaled within %s; continuing: %v", s.cfg.SettleDelay, err)
		return nil
	}
}

func (s *Service) payload(req Request) session.Payload {
	if req.Attachment == nil {
		return session.Payload{Text: req.Message}
	}
	doc := &session.Document{
		Data:     req.Attachment.Data,
		FileName: req.Attachment.FileName,
		MimeType: req.Attachment.MimeType,
		Caption:  req.Message,
	}
	if doc.FileName == "" {
		doc.FileName = s.cfg.AttachmentFileName
	}
	if doc.MimeType == "" {
		doc.MimeType = s.cfg.AttachmentMimeType
	}
	return session.Payload{Text: req.Message, Document: doc}
}

func validate(req Request) error {
	if strings.TrimSpace(req.Target) == "" {
		return errors.New("target is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return errors.New("message is required")
	}
	if req.Attachment != nil && len(req.Attachment.Data) == 0 {
		return errors.New("attachment is empty")
	}
	return nil
}
