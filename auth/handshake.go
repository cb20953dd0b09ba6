package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/midauth/mobileid-bridge/mid"
	"github.com/midauth/mobileid-bridge/msisdn"
	"github.com/rs/zerolog"
)

// CompleteAuthFn is the host completion callback, invoked exactly once
// per successful handshake with the released attribute set.
type CompleteAuthFn func(ctx context.Context, correlationID string, req *Request, attrs Attributes) error

// HandshakeConfig carries the construction-time parameters of a
// Handshake.
type HandshakeConfig struct {
	// HostURI identifies the host deployment; it prefixes every
	// message sent to the handset.
	HostURI string

	// DefaultLanguage applies when neither request nor submission
	// carries a language tag.
	DefaultLanguage string

	// RememberMSISDN is the deployment-wide default for new requests.
	RememberMSISDN bool
}

// Handshake orchestrates one authentication flow: Begin suspends the
// request behind the bridge, Complete resumes it with the user's phone
// input and drives the signature call. Handshake keeps no per-request
// state, so concurrent flows are fully independent.
type Handshake struct {
	cfg          HandshakeConfig
	bridge       Bridge
	client       mid.Client
	norm         msisdn.Normalizer
	deriver      *msisdn.Deriver
	completeAuth CompleteAuthFn
	log          zerolog.Logger
}

func NewHandshake(
	cfg HandshakeConfig,
	bridge Bridge,
	client mid.Client,
	norm msisdn.Normalizer,
	deriver *msisdn.Deriver,
	completeAuth CompleteAuthFn,
	log zerolog.Logger,
) (*Handshake, error) {
	if cfg.HostURI == "" {
		return nil, fmt.Errorf("missing or invalid hosturi option in config")
	}
	if bridge == nil {
		return nil, fmt.Errorf("session bridge is required")
	}
	if client == nil {
		return nil, fmt.Errorf("signature client is required")
	}
	if completeAuth == nil {
		return nil, fmt.Errorf("completion callback is required")
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if deriver == nil {
		deriver = msisdn.NewDeriver(norm, nil)
	}
	return &Handshake{
		cfg:          cfg,
		bridge:       bridge,
		client:       client,
		norm:         norm,
		deriver:      deriver,
		completeAuth: completeAuth,
		log:          log,
	}, nil
}

// Begin stores the request behind the bridge and returns the opaque
// correlation id for the browser redirect. No network call happens
// here.
func (h *Handshake) Begin(ctx context.Context, req *Request) (string, error) {
	if req == nil {
		req = &Request{}
	}
	if req.Language == "" {
		req.Language = h.cfg.DefaultLanguage
	}
	if h.cfg.RememberMSISDN {
		req.RememberMSISDN = true
	}

	id, err := h.bridge.Save(ctx, req)
	if err != nil {
		return "", fmt.Errorf("save authentication request: %w", err)
	}
	return id, nil
}

// Complete resumes the request identified by correlationID with the
// user's phone input and blocks on the signature call.
//
// On success it invokes the completion callback and returns ("", nil).
// An expected authentication failure returns its stable code for the
// login form. A configuration fault or an unknown correlation id is
// returned as an error. Either way the request is consumed: a second
// call with the same id fails with ErrNotFound.
func (h *Handshake) Complete(ctx context.Context, correlationID, phoneInput, language, message string) (string, error) {
	req, err := h.bridge.Consume(ctx, correlationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("load authentication request: %w", err)
	}

	if language == "" {
		language = req.Language
	}
	if language == "" {
		language = h.cfg.DefaultLanguage
	}
	if message == "" {
		message = req.Message
	}

	number := h.norm.Normalize(phoneInput, msisdn.PrefixPlus)
	dtbs := h.cfg.HostURI + ": " + message

	h.log.Info().
		Str("uid", phoneInput).
		Str("msisdn", number).
		Str("language", language).
		Msg("mobileid: login")

	res, err := h.client.Sign(ctx, mid.SignRequest{
		MSISDN:   number,
		Language: language,
		Message:  dtbs,
	})
	if err != nil {
		return h.failed(err)
	}

	attrs := Attributes{
		AttrUID:               {phoneInput},
		AttrMobile:            {h.norm.Normalize(phoneInput, msisdn.PrefixZeros)},
		AttrPseudonym:         {h.deriver.Derive(phoneInput)},
		AttrTargetedID:        {res.SerialNumber},
		AttrPreferredLanguage: {language},
	}

	h.log.Info().
		Str("msisdn", number).
		Str("serialNumber", res.SerialNumber).
		Msg("mobileid: login succeeded")

	if err := h.completeAuth(ctx, correlationID, req, attrs); err != nil {
		return "", fmt.Errorf("complete authentication: %w", err)
	}
	return "", nil
}

// failed collapses a signature-call error into either a stable
// user-facing code or an unrecoverable error. The raw code and message
// are logged before classification discards them.
func (h *Handshake) failed(err error) (string, error) {
	var fault *mid.Fault
	if !errors.As(err, &fault) {
		return "", fmt.Errorf("mobileid: service call: %w", err)
	}

	code := fault.StatusCode()
	c := mid.Classify(code)

	if c.Category == mid.CategoryConfiguration {
		h.log.Warn().
			Str("status", fault.Status).
			Str("subcode", fault.SubCode).
			Str("message", fault.Message).
			Msg("mobileid: configuration fault in service call")
		return "", fmt.Errorf("mobileid: error in service call: %s", code)
	}

	h.log.Warn().
		Str("status", fault.Status).
		Str("subcode", fault.SubCode).
		Str("message", fault.Message).
		Str("code", c.Code).
		Msg("mobileid: service call failed")
	return c.Code, nil
}
