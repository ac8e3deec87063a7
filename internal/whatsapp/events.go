package whatsapp

import (
	"errors"
	"fmt"

	"github.com/danmuck/wadispatch/internal/session"
	"go.mau.fi/whatsmeow/types/events"
)

var (
	ErrLoggedOut      = errors.New("whatsapp: logged out")
	ErrStreamReplaced = errors.New("whatsapp: stream replaced by another client")
	ErrTemporaryBan   = errors.New("whatsapp: temporarily banned")
	ErrClientOutdated = errors.New("whatsapp: client outdated")
	ErrConnectFailure = errors.New("whatsapp: connect failure")
	ErrDisconnected   = errors.New("whatsapp: socket disconnected")
)

// translate maps a whatsmeow event to a lifecycle event. Events that carry no
// lifecycle meaning report ok=false.
func translate(evt any) (session.Event, bool) {
	switch e := evt.(type) {
	case *events.Connected:
		return session.Event{Kind: session.EventOpen}, true
	case *events.QR:
		return session.Event{Kind: session.EventQR, Codes: e.Codes}, true
	case *events.LoggedOut:
		return closed(fmt.Errorf("%w: reason=%s on_connect=%t", ErrLoggedOut, e.Reason, e.OnConnect)), true
	case *events.StreamReplaced:
		return closed(ErrStreamReplaced), true
	case *events.TemporaryBan:
		return closed(fmt.Errorf("%w: %s", ErrTemporaryBan, e.String())), true
	case *events.ClientOutdated:
		return closed(ErrClientOutdated), true
	case *events.ConnectFailure:
		return closed(fmt.Errorf("%w: reason=%s message=%q", ErrConnectFailure, e.Reason, e.Message)), true
	case *events.KeepAliveTimeout:
		// whatsmeow keeps retrying the socket, so this is not terminal.
		return session.Event{}, false
	case *events.Disconnected:
		return closed(ErrDisconnected), true
	default:
		return session.Event{}, false
	}
}

func closed(reason error) session.Event {
	return session.Event{Kind: session.EventClose, Reason: reason}
}
