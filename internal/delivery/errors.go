package delivery

import (
	"errors"
	"fmt"
)

// Kind classifies a failed delivery.
type Kind string

const (
	KindInvalidRequest      Kind = "invalid_request"
	KindConnectionFailed    Kind = "connection_failed"
	KindUnregisteredTarget  Kind = "unregistered_target"
	KindDeliveryUnconfirmed Kind = "delivery_unconfirmed"
	KindSendFailed          Kind = "send_failed"
)

var (
	ErrInvalidRequest      = errors.New("delivery: invalid request")
	ErrConnectionFailed    = errors.New("delivery: connection failed")
	ErrUnregisteredTarget  = errors.New("delivery: target not registered")
	ErrDeliveryUnconfirmed = errors.New("delivery: send not acknowledged")
	ErrSendFailed          = errors.New("delivery: send failed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidRequest:
		return ErrInvalidRequest
	case KindConnectionFailed:
		return ErrConnectionFailed
	case KindUnregisteredTarget:
		return ErrUnregisteredTarget
	case KindDeliveryUnconfirmed:
		return ErrDeliveryUnconfirmed
	case KindSendFailed:
		return ErrSendFailed
	default:
		return nil
	}
}

// Error is the failure outcome of Deliver. It matches its kind sentinel with
// errors.Is and unwraps to the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	base := e.Kind.sentinel()
	if base == nil {
		base = fmt.Errorf("delivery: %s", e.Kind)
	}
	if e.Err == nil {
		return base.Error()
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf reports the delivery kind carried by err.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

func failure(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
