package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	logs "github.com/danmuck/smplog"
	"github.com/danmuck/wadispatch/internal/session"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

var (
	ErrNotReady       = errors.New("whatsapp: connection not ready")
	ErrEmptyPayload   = errors.New("whatsapp: empty payload")
	ErrInvalidAddress = errors.New("whatsapp: invalid recipient address")
)

const defaultReadyWait = 10 * time.Second

// client is the slice of *whatsmeow.Client the connection drives.
type client interface {
	IsOnWhatsApp(ctx context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error)
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
	Upload(ctx context.Context, plaintext []byte, appInfo whatsmeow.MediaType) (whatsmeow.UploadResponse, error)
	WaitForConnection(timeout time.Duration) bool
	Disconnect()
}

type conn struct {
	cli     client
	release func() error
}

var (
	_ session.Conn    = (*conn)(nil)
	_ session.Readier = (*conn)(nil)
)

func (c *conn) Resolve(ctx context.Context, raw string) ([]session.Identity, error) {
	phone, err := normalizePhone(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, raw)
	}
	found, err := c.cli.IsOnWhatsApp(ctx, []string{phone})
	if err != nil {
		return nil, fmt.Errorf("whatsapp: contact lookup: %w", err)
	}
	out := make([]session.Identity, 0, len(found))
	for _, r := range found {
		if !r.IsIn || r.JID.IsEmpty() {
			continue
		}
		out = append(out, session.Identity{Query: r.Query, ID: r.JID.String()})
	}
	return out, nil
}

func (c *conn) Send(ctx context.Context, to session.Identity, payload session.Payload) (string, error) {
	jid, err := types.ParseJID(to.ID)
	if err != nil || jid.IsEmpty() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, to.ID)
	}
	msg, err := c.buildMessage(ctx, payload)
	if err != nil {
		return "", err
	}
	resp, err := c.cli.SendMessage(ctx, jid, msg)
	if err != nil {
		return "", fmt.Errorf("whatsapp: send: %w", err)
	}
	return string(resp.ID), nil
}

func (c *conn) buildMessage(ctx context.Context, payload session.Payload) (*waE2E.Message, error) {
	doc := payload.Document
	if doc == nil {
		if payload.Text == "" {
			return nil, ErrEmptyPayload
		}
		return &waE2E.Message{Conversation: proto.String(payload.Text)}, nil
	}
	if len(doc.Data) == 0 {
		return nil, ErrEmptyPayload
	}
	up, err := c.cli.Upload(ctx, doc.Data, whatsmeow.MediaDocument)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: upload document: %w", err)
	}
	logs.Debugf("whatsapp.conn document uploaded file_name=%s bytes=%d", doc.FileName, up.FileLength)
	return &waE2E.Message{
		DocumentMessage: &waE2E.DocumentMessage{
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
			Mimetype:      proto.String(doc.MimeType),
			FileName:      proto.String(doc.FileName),
			Title:         proto.String(doc.FileName),
			Caption:       proto.String(doc.Caption),
		},
	}, nil
}

// WaitReady blocks until the socket is connected and logged in, bounded by
// the ctx deadline when one is set.
func (c *conn) WaitReady(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wait := defaultReadyWait
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
	}
	if wait <= 0 || !c.cli.WaitForConnection(wait) {
		return ErrNotReady
	}
	return nil
}

func (c *conn) Close() error {
	c.cli.Disconnect()
	if c.release == nil {
		return nil
	}
	return c.release()
}
