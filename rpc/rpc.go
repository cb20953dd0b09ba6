// Package rpc exposes the login surface of the bridge over HTTP: the
// begin endpoint for the host, the login form and its submission
// handler, plus health, status and metrics.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/go-chi/traceid"
	mobileidbridge "github.com/midauth/mobileid-bridge"
	"github.com/midauth/mobileid-bridge/auth"
	"github.com/midauth/mobileid-bridge/config"
	"github.com/midauth/mobileid-bridge/mid"
	"github.com/midauth/mobileid-bridge/msisdn"
	"github.com/midauth/mobileid-bridge/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RPC struct {
	Config    *config.Config
	Log       zerolog.Logger
	Server    *http.Server
	Bridge    auth.Bridge
	Handshake *auth.Handshake

	startTime time.Time
	running   int32
}

func New(cfg *config.Config) (*RPC, error) {
	logLevel := cfg.Service.LogLevel
	if logLevel == "" {
		logLevel = zerolog.LevelInfoValue
	}
	log := httplog.NewLogger("mobileid-bridge", httplog.Options{
		LogLevel: logLevel,
	})

	client, err := mid.NewSOAPClient(mid.ClientConfig{
		Endpoint:         cfg.MobileID.Endpoint,
		APID:             cfg.MobileID.APID,
		APPassword:       cfg.MobileID.APPassword,
		CertFile:         cfg.MobileID.CertFile,
		KeyFile:          cfg.MobileID.CertKey,
		CAFile:           cfg.MobileID.CAFile,
		OCSPFile:         cfg.MobileID.OCSPFile,
		TimeoutWS:        cfg.MobileID.WSTimeout(),
		TimeoutMID:       cfg.MobileID.MIDTimeout(),
		SignatureProfile: cfg.MobileID.SignatureProfile,
		ProxyURL:         cfg.MobileID.ProxyURL,
		UserAgent:        "mobileid-bridge/" + mobileidbridge.VERSION,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("mobile id client: %w", err)
	}

	var bridge auth.Bridge
	switch cfg.Session.Backend {
	case "redis":
		bridge = session.NewRedisBridge(redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		}), cfg.Session.SessionTTL())
	default:
		bridge, err = session.NewMemoryBridge(cfg.Session.Size, cfg.Session.SessionTTL())
		if err != nil {
			return nil, fmt.Errorf("session bridge: %w", err)
		}
	}

	norm := msisdn.Normalizer{CountryCode: cfg.Pseudonym.DefaultCountryCode}
	var jurisdictions []msisdn.Jurisdiction
	for _, j := range cfg.Pseudonym.Jurisdictions {
		jurisdictions = append(jurisdictions, msisdn.Jurisdiction{
			CountryCode:      j.CountryCode,
			SubscriberDigits: j.SubscriberDigits,
		})
	}

	s := &RPC{
		Config: cfg,
		Log:    log,
		Server: &http.Server{
			ReadTimeout: 10 * time.Second,
			// Submissions block on the signing transaction.
			WriteTimeout:      cfg.MobileID.WSTimeout() + 15*time.Second,
			IdleTimeout:       45 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Bridge:    bridge,
		startTime: time.Now(),
	}

	s.Handshake, err = auth.NewHandshake(
		auth.HandshakeConfig{
			HostURI:         cfg.MobileID.HostURI,
			DefaultLanguage: cfg.MobileID.DefaultLanguage,
			RememberMSISDN:  cfg.MobileID.RememberMSISDN,
		},
		bridge,
		client,
		norm,
		msisdn.NewDeriver(norm, jurisdictions),
		s.finishLogin,
		log,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RPC) Run(ctx context.Context, l net.Listener) error {
	if s.IsRunning() {
		return fmt.Errorf("rpc: already running")
	}

	s.Log.Info().
		Str("op", "run").
		Str("ver", mobileidbridge.VERSION).
		Msgf("-> rpc: started mobile id bridge")

	atomic.StoreInt32(&s.running, 1)
	defer atomic.StoreInt32(&s.running, 0)

	s.Server.Handler = s.Handler()

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	err := s.Server.Serve(l)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *RPC) Stop(timeoutCtx context.Context) {
	if !s.IsRunning() || s.IsStopping() {
		return
	}
	atomic.StoreInt32(&s.running, 2)

	s.Log.Info().Str("op", "stop").Msg("-> rpc: stopping..")
	s.Server.Shutdown(timeoutCtx)
	s.Log.Info().Str("op", "stop").Msg("-> rpc: stopped.")
}

func (s *RPC) IsRunning() bool {
	return atomic.LoadInt32(&s.running) == 1
}

func (s *RPC) IsStopping() bool {
	return atomic.LoadInt32(&s.running) == 2
}

func (s *RPC) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(traceid.Middleware)
	r.Use(httplog.RequestLogger(s.Log, []string{"/", "/health", "/status", "/metrics", "/favicon.ico"}))
	r.Use(middleware.Timeout(s.Config.MobileID.WSTimeout() + 15*time.Second))

	r.Use(middleware.PageRoute("/health", http.HandlerFunc(s.healthHandler)))
	r.Use(middleware.PageRoute("/status", http.HandlerFunc(s.statusHandler)))

	r.Handle("/metrics", promhttp.Handler())
	r.Post("/auth/begin", s.beginHandler)
	r.Get("/login", s.loginFormHandler)
	r.Post("/login", s.loginSubmitHandler)

	return r
}

func (s *RPC) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"startTime": s.startTime,
		"uptime":    uint64(time.Now().UTC().Sub(s.startTime).Seconds()),
		"ver":       mobileidbridge.VERSION,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(status)
}

func (s *RPC) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
