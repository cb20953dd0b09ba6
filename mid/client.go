package mid

import (
	"context"
	"fmt"
)

// SignRequest carries one signing challenge to the subscriber's
// handset.
type SignRequest struct {
	// MSISDN is the subscriber number in international format with a
	// + prefix.
	MSISDN string

	// Language of the message displayed on the handset.
	Language string

	// Message is the data to be signed, shown to the user before
	// entering the PIN.
	Message string
}

// SignResult is the payload of a successful signature response.
type SignResult struct {
	// SerialNumber is the serialNumber attribute of the signer
	// certificate subject.
	SerialNumber string

	// Subject is the full signer certificate subject, for logging.
	Subject string
}

// Client performs the blocking request/response exchange with the
// operator's gateway. A service-level failure is returned as *Fault;
// any other error means the exchange itself could not be carried out.
type Client interface {
	Sign(ctx context.Context, req SignRequest) (*SignResult, error)
}

// Fault is a failure descriptor from one service invocation: the raw
// status name, the numeric SOAP fault subcode if any, and the
// human-readable detail message.
type Fault struct {
	Status  string
	SubCode string
	Message string
}

func (f *Fault) Error() string {
	if f.SubCode != "" {
		return fmt.Sprintf("mobile id fault %s (subcode %s): %s", f.Status, f.SubCode, f.Message)
	}
	return fmt.Sprintf("mobile id fault %s: %s", f.Status, f.Message)
}

// StatusCode returns the status to feed into Classify. A transaction
// timeout is reported by subcode rather than status name, so the
// timeout subcode takes precedence.
func (f *Fault) StatusCode() string {
	if f.SubCode == FaultSubcodeTimeout {
		return StatusExpiredTransaction
	}
	return f.Status
}
