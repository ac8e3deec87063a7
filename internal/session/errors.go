package session

import (
	"errors"
	"fmt"
)

var (
	ErrAuthMaterialMissing  = errors.New("session: auth material missing")
	ErrConnectionRejected   = errors.New("session: connection rejected")
	ErrConnectTimeout       = errors.New("session: connect timeout")
	ErrSessionBusy          = errors.New("session: session already in use")
	ErrSessionClosed        = errors.New("session: session closed")
	ErrLifecycleOrder       = errors.New("session: invalid lifecycle transition")
	ErrReadinessUnsupported = errors.New("session: readiness signal unsupported")
	ErrDialerRequired       = errors.New("session: dialer required")
	ErrStoreRequired        = errors.New("session: store required")
	errClosedWithoutReason  = errors.New("closed without reason")
)

func transitionError(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrLifecycleOrder, from, to)
}

func rejected(reason error) error {
	if reason == nil {
		reason = errClosedWithoutReason
	}
	return fmt.Errorf("%w: %w", ErrConnectionRejected, reason)
}
