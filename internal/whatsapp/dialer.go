package whatsapp

import (
	"context"
	"fmt"
	"path/filepath"

	logs "github.com/danmuck/smplog"
	"github.com/danmuck/wadispatch/internal/session"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "modernc.org/sqlite"
)

const (
	DefaultDeviceDB = "session.db"
	sqlDialect      = "sqlite"
)

// Dialer opens whatsmeow clients backed by the device database inside the
// auth material directory.
type Dialer struct {
	// DeviceDB is the sqlite file name relative to the auth location.
	DeviceDB string
}

var _ session.Dialer = (*Dialer)(nil)

func NewDialer(deviceDB string) *Dialer {
	if deviceDB == "" {
		deviceDB = DefaultDeviceDB
	}
	return &Dialer{DeviceDB: deviceDB}
}

func (d *Dialer) Open(ctx context.Context, auth session.AuthMaterial, sink session.EventSink) (session.Conn, error) {
	path := filepath.Join(auth.Location, d.deviceDB())
	wlog := waLog.Zerolog(logs.With().Str("component", "whatsmeow").Logger())

	container, err := sqlstore.New(ctx, sqlDialect, deviceDSN(path), wlog)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: open device store %s: %w", path, err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("whatsapp: load device: %w", err)
	}
	if device.ID == nil {
		logs.Warnf("whatsapp.Dialer.Open device not paired store=%s; expecting qr events", path)
	}

	cli := whatsmeow.NewClient(device, wlog)
	cli.EnableAutoReconnect = false
	cli.AddEventHandler(func(evt any) {
		if ev, ok := translate(evt); ok {
			sink.Emit(ev)
		}
	})

	c := &conn{cli: cli, release: container.Close}
	connected := make(chan error, 1)
	go func() {
		connected <- cli.Connect()
	}()
	select {
	case err := <-connected:
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("whatsapp: connect: %w", err)
		}
	case <-ctx.Done():
		go func() {
			<-connected
			_ = c.Close()
		}()
		return nil, context.Cause(ctx)
	}
	logs.Debugf("whatsapp.Dialer.Open socket connected store=%s paired=%v", path, device.ID != nil)
	return c, nil
}

func (d *Dialer) deviceDB() string {
	if d.DeviceDB == "" {
		return DefaultDeviceDB
	}
	return d.DeviceDB
}

// deviceDSN opens an existing database only; the store must not create one.
func deviceDSN(path string) string {
	return "file:" + path + "?mode=rw&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
