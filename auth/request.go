// Package auth implements the Mobile ID authentication handshake: it
// suspends a pending login across the browser round trip, drives the
// blocking signature call and assembles the released identity
// attributes.
package auth

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a correlation id refers to no pending
// authentication request, either because it never existed or because
// its session expired or was already consumed.
var ErrNotFound = errors.New("authentication request not found")

// Request describes one pending login attempt. It is created when a
// protected resource triggers authentication and discarded once the
// handshake reaches a terminal state.
type Request struct {
	// MSISDN is the phone number remembered from a previous login,
	// prefilled on the form when RememberMSISDN is set.
	MSISDN string `json:"msisdn,omitempty"`

	// Language is the negotiated language tag for the handset message.
	Language string `json:"language,omitempty"`

	// Message is the challenge text displayed on the handset.
	Message string `json:"message,omitempty"`

	// RememberMSISDN asks the host to keep the number for future
	// sessions. Pure session-state bookkeeping, carried through
	// untouched.
	RememberMSISDN bool `json:"rememberMsisdn,omitempty"`
}

// Bridge is the host-provided suspend/resume mechanism that carries a
// Request across the browser round trip. Correlation ids are opaque;
// entries expire according to the bridge's own TTL policy.
type Bridge interface {
	// Save stores the request and returns its correlation id.
	Save(ctx context.Context, req *Request) (string, error)

	// Consume returns the request for id and removes it, so that each
	// request admits exactly one completion attempt. Unknown, expired
	// and already consumed ids yield ErrNotFound.
	Consume(ctx context.Context, id string) (*Request, error)
}
