package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/midauth/mobileid-bridge/auth"
)

type completionKey struct{}

// loginCompletion receives the released attributes when the handshake
// succeeds; the submission handler plants it in the request context
// before invoking Complete.
type loginCompletion struct {
	req   *auth.Request
	attrs auth.Attributes
}

// finishLogin is the host completion callback wired into the
// handshake.
func (s *RPC) finishLogin(ctx context.Context, correlationID string, req *auth.Request, attrs auth.Attributes) error {
	done, ok := ctx.Value(completionKey{}).(*loginCompletion)
	if !ok {
		return fmt.Errorf("no completion receiver in context")
	}
	done.req = req
	done.attrs = attrs
	return nil
}

type beginParams struct {
	MSISDN   string `json:"msisdn"`
	Language string `json:"language"`
	Message  string `json:"message"`
}

// beginHandler is the host's entry point: it suspends a new
// authentication request and returns the correlation id with the URL
// to redirect the browser to.
func (s *RPC) beginHandler(w http.ResponseWriter, r *http.Request) {
	var params beginParams
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	if params.Message == "" {
		params.Message = s.Config.MobileID.DefaultMessage
	}

	id, err := s.Handshake.Begin(r.Context(), &auth.Request{
		MSISDN:   params.MSISDN,
		Language: params.Language,
		Message:  params.Message,
	})
	if err != nil {
		s.Log.Error().Err(err).Msg("rpc: begin authentication")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"authState": id,
		"loginURL":  "/login?AuthState=" + id,
	})
}

func (s *RPC) loginFormHandler(w http.ResponseWriter, r *http.Request) {
	authState := r.URL.Query().Get("AuthState")
	if authState == "" {
		http.Error(w, "missing AuthState", http.StatusBadRequest)
		return
	}
	s.renderForm(w, http.StatusOK, authState, r.URL.Query().Get("msisdn"), r.URL.Query().Get("error"))
}

// loginSubmitHandler is the login submission entry point. It blocks on
// the signing transaction, so the response can take up to the
// configured round-trip timeout.
func (s *RPC) loginSubmitHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	authState := r.PostFormValue("AuthState")
	phone := r.PostFormValue("msisdn")
	language := r.PostFormValue("language")

	done := &loginCompletion{}
	ctx := context.WithValue(r.Context(), completionKey{}, done)

	code, err := s.Handshake.Complete(ctx, authState, phone, language, "")
	switch {
	case errors.Is(err, auth.ErrNotFound):
		loginsTotal.WithLabelValues(outcomeNotFound).Inc()
		http.Error(w, "login session is unknown or expired", http.StatusGone)
		return
	case err != nil:
		loginsTotal.WithLabelValues(outcomeFatal).Inc()
		s.Log.Error().Err(err).Msg("rpc: login failed fatally")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	case code != "":
		loginsTotal.WithLabelValues(outcomeFailure).Inc()
		serviceFailuresTotal.WithLabelValues(code).Inc()
		s.retryForm(w, r, phone, language, code)
		return
	}

	loginsTotal.WithLabelValues(outcomeSuccess).Inc()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"authnContextClassRef": auth.AuthnContextClassRef,
		"attributes":           done.attrs,
	})
}

// retryForm suspends a fresh request so the user can try again, then
// re-renders the form with the stable error code.
func (s *RPC) retryForm(w http.ResponseWriter, r *http.Request, phone, language, code string) {
	req := &auth.Request{
		Language: language,
		Message:  s.Config.MobileID.DefaultMessage,
	}
	if s.Config.MobileID.RememberMSISDN {
		req.MSISDN = phone
	}
	id, err := s.Handshake.Begin(r.Context(), req)
	if err != nil {
		s.Log.Error().Err(err).Msg("rpc: begin retry request")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.renderForm(w, http.StatusUnauthorized, id, req.MSISDN, code)
}

func (s *RPC) renderForm(w http.ResponseWriter, status int, authState, phone, errorCode string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := loginFormTemplate.Execute(w, map[string]string{
		"AuthState": authState,
		"MSISDN":    phone,
		"Error":     errorCode,
	})
	if err != nil {
		s.Log.Error().Err(err).Msg("rpc: render login form")
	}
}

var loginFormTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head><title>Mobile ID Login</title></head>
<body>
{{if .Error}}<p class="error" data-code="{{.Error}}">Login failed: {{.Error}}</p>{{end}}
<form method="post" action="/login">
<input type="hidden" name="AuthState" value="{{.AuthState}}">
<label>Mobile number <input type="tel" name="msisdn" value="{{.MSISDN}}"></label>
<label>Language
<select name="language">
<option value="en">English</option>
<option value="de">Deutsch</option>
<option value="fr">Français</option>
<option value="it">Italiano</option>
</select>
</label>
<button type="submit">Login</button>
</form>
</body>
</html>
`))
