package session

import "context"

// AuthMaterial is durable authentication state located by a Store.
type AuthMaterial struct {
	Location string
	Files    []string
}

// Store locates auth material for one connect attempt.
// Implementations return an error wrapping ErrAuthMaterialMissing when the
// location is absent or unreadable.
type Store interface {
	Load(ctx context.Context, location string) (AuthMaterial, error)
}

// EventKind is one lifecycle notification from the network capability.
type EventKind string

const (
	EventQR    EventKind = "qr"
	EventOpen  EventKind = "open"
	EventClose EventKind = "close"
)

// Event is emitted asynchronously by a Conn to its EventSink.
type Event struct {
	Kind   EventKind
	Reason error
	// Codes carries pairing codes for EventQR.
	Codes []string
}

// EventSink receives lifecycle events. Emit may block until the manager
// consumes the event or the session is torn down.
type EventSink interface {
	Emit(Event)
}

// Identity is the routable network identity a raw target resolves to.
type Identity struct {
	Query string
	ID    string
}

// Document is a binary attachment sent with a caption.
type Document struct {
	Data     []byte
	FileName string
	MimeType string
	Caption  string
}

// Payload is either plain text or a document with caption.
type Payload struct {
	Text     string
	Document *Document
}

// Dialer opens one logical connection to the messaging network. ctx bounds
// the dial only; the returned Conn lives until Close.
type Dialer interface {
	Open(ctx context.Context, auth AuthMaterial, sink EventSink) (Conn, error)
}

// Conn is one live capability connection.
type Conn interface {
	// Resolve returns zero or more registered identities for raw.
	Resolve(ctx context.Context, raw string) ([]Identity, error)
	// Send returns the network delivery id, which may be empty.
	Send(ctx context.Context, to Identity, payload Payload) (string, error)
	Close() error
}

// Readier is implemented by connections that can signal post-open readiness.
type Readier interface {
	WaitReady(ctx context.Context) error
}
