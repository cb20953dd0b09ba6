package mid

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-chi/traceid"
	"github.com/go-chi/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mozilla.org/pkcs7"
	"golang.org/x/crypto/ocsp"
)

// DefaultEndpoint is the operator's synchronous signature port.
const DefaultEndpoint = "https://mobileid.swisscom.com/soap/services/MSS_SignaturePort"

const defaultSignatureProfile = "http://mid.swisscom.ch/MID/v1/AuthProfile1"

// ClientConfig is the construction-time configuration of the SOAP
// client: operator account, TLS client material and the two timeout
// bounds. TimeoutWS bounds the web-service round trip, TimeoutMID the
// end-to-end signing transaction on the handset and must be shorter
// than TimeoutWS in synchronous mode.
type ClientConfig struct {
	Endpoint   string
	APID       string
	APPassword string

	CertFile string
	KeyFile  string
	CAFile   string
	OCSPFile string

	TimeoutWS  time.Duration
	TimeoutMID time.Duration

	SignatureProfile string
	ProxyURL         string
	UserAgent        string
}

// SOAPClient implements Client against the operator's MSS signature
// gateway over mutually authenticated TLS.
type SOAPClient struct {
	cfg        ClientConfig
	httpClient *http.Client
	caPool     *x509.CertPool
	ocspCert   *x509.Certificate
	log        zerolog.Logger
}

var _ Client = (*SOAPClient)(nil)

func NewSOAPClient(cfg ClientConfig, log zerolog.Logger) (*SOAPClient, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.SignatureProfile == "" {
		cfg.SignatureProfile = defaultSignatureProfile
	}
	if cfg.TimeoutWS == 0 {
		cfg.TimeoutWS = 90 * time.Second
	}
	if cfg.TimeoutMID == 0 {
		cfg.TimeoutMID = 80 * time.Second
	}

	keyPair, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}

	caPEM, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read operator CA: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("operator CA file %s contains no certificates", cfg.CAFile)
	}

	var ocspCert *x509.Certificate
	if cfg.OCSPFile != "" {
		ocspCert, err = readCertificate(cfg.OCSPFile)
		if err != nil {
			return nil, fmt.Errorf("read OCSP responder certificate: %w", err)
		}
	}

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{keyPair},
			RootCAs:      caPool,
			MinVersion:   tls.VersionTLS12,
		},
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		tr.Proxy = http.ProxyURL(proxyURL)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "mobileid-bridge"
	}

	return &SOAPClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.TimeoutWS,
			Transport: transport.Chain(
				tr,
				transport.SetHeader("User-Agent", userAgent),
				traceid.Transport,
			),
		},
		caPool:   caPool,
		ocspCert: ocspCert,
		log:      log,
	}, nil
}

// Sign posts one MSS_Signature request and blocks until the subscriber
// signs, the transaction expires or the round-trip bound is hit. A
// transport-level timeout is reported as a Fault with the designated
// timeout subcode so that it classifies like a service-side expiry.
func (c *SOAPClient) Sign(ctx context.Context, req SignRequest) (*SignResult, error) {
	transID := "AP." + uuid.NewString()
	envelope := buildSignatureRequest(c.cfg, transID, req)

	c.log.Debug().
		Str("transId", transID).
		Str("msisdn", req.MSISDN).
		Msg("mid: sending signature request")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("build signature request: %w", err)
	}
	httpReq.Header.Set("Content-Type", `application/soap+xml; charset=utf-8; action="#MSS_Signature"`)

	httpRes, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, &Fault{
				Status:  StatusExpiredTransaction,
				SubCode: FaultSubcodeTimeout,
				Message: "signature request timed out",
			}
		}
		return nil, fmt.Errorf("signature request: %w", err)
	}
	defer httpRes.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpRes.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read signature response: %w", err)
	}

	return c.parseResponse(ctx, body)
}

func (c *SOAPClient) parseResponse(ctx context.Context, body []byte) (*SignResult, error) {
	var envelope signatureEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode signature response: %w", err)
	}

	if f := envelope.Body.Fault; f != nil {
		return nil, faultFromSOAP(f)
	}
	if envelope.Body.Response == nil {
		return nil, fmt.Errorf("signature response contains neither result nor fault")
	}

	resp := envelope.Body.Response.Resp
	switch resp.Status.Code.Value {
	case "500", "502":
		// SIGNATURE and VALID_SIGNATURE
	default:
		return nil, &Fault{
			Status:  resp.Status.Message,
			Message: fmt.Sprintf("unexpected status code %s", resp.Status.Code.Value),
		}
	}

	der, err := base64.StdEncoding.DecodeString(strings.TrimSpace(resp.Signature.Base64))
	if err != nil {
		return nil, fmt.Errorf("decode signature value: %w", err)
	}
	cert, err := c.verifySignature(ctx, der)
	if err != nil {
		return nil, err
	}

	return &SignResult{
		SerialNumber: cert.Subject.SerialNumber,
		Subject:      cert.Subject.String(),
	}, nil
}

// verifySignature checks the CMS signature, chains the signer
// certificate to the operator CA and consults OCSP for revocation.
func (c *SOAPClient) verifySignature(ctx context.Context, der []byte) (*x509.Certificate, error) {
	p7, err := pkcs7.Parse(der)
	if err != nil {
		return nil, fmt.Errorf("parse CMS signature: %w", err)
	}
	if err := p7.Verify(); err != nil {
		return nil, fmt.Errorf("verify CMS signature: %w", err)
	}
	cert := p7.GetOnlySigner()
	if cert == nil {
		return nil, fmt.Errorf("signature carries no signer certificate")
	}

	intermediates := x509.NewCertPool()
	for _, extra := range p7.Certificates {
		if !extra.Equal(cert) {
			intermediates.AddCert(extra)
		}
	}
	chains, err := cert.Verify(x509.VerifyOptions{
		Roots:         c.caPool,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return nil, fmt.Errorf("verify signer certificate: %w", err)
	}

	if err := c.checkRevocation(ctx, cert, chains[0]); err != nil {
		return nil, err
	}
	return cert, nil
}

func (c *SOAPClient) checkRevocation(ctx context.Context, cert *x509.Certificate, chain []*x509.Certificate) error {
	if c.ocspCert == nil || len(cert.OCSPServer) == 0 || len(chain) < 2 {
		return nil
	}
	issuer := chain[1]

	reqDER, err := ocsp.CreateRequest(cert, issuer, nil)
	if err != nil {
		return fmt.Errorf("build OCSP request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cert.OCSPServer[0], bytes.NewReader(reqDER))
	if err != nil {
		return fmt.Errorf("build OCSP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/ocsp-request")

	httpRes, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("OCSP request: %w", err)
	}
	defer httpRes.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpRes.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read OCSP response: %w", err)
	}
	res, err := ocsp.ParseResponseForCert(body, cert, c.ocspCert)
	if err != nil {
		return fmt.Errorf("parse OCSP response: %w", err)
	}
	if res.Status == ocsp.Revoked {
		return &Fault{
			Status:  StatusRevokedCertificate,
			Message: "signer certificate is revoked",
		}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func readCertificate(path string) (*x509.Certificate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return x509.ParseCertificate(raw)
	}
	return x509.ParseCertificate(block.Bytes)
}
