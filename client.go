package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// AuthPayload is the body of a successful login response.
type AuthPayload struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// RegisterPayload is the body of a successful registration response.
// Registration never returns credentials: accounts may require administrator
// approval before first login.
type RegisterPayload struct {
	RequiresApproval bool   `json:"requiresApproval"`
	Message          string `json:"message"`
}

// ProfileUpdate carries the editable profile fields. Empty fields are left
// out of the request body.
type ProfileUpdate struct {
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Department string `json:"department,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
}

// apiEnvelope is the response wrapper the API uses for every endpoint.
type apiEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	ErrMsg  string          `json:"error"`
	Errors  []fieldError    `json:"errors"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type dataPayload struct {
	User             *User  `json:"user"`
	Token            string `json:"token"`
	RequiresApproval bool   `json:"requiresApproval"`
}

// ClientConfig captures the pieces APIClient needs. Callers should pass a
// validated config; zero values fall back to development defaults.
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	HTTPClient        *http.Client
	Store             CredentialStore
	Navigator         Navigator
	Logger            Logger
	LoginRoute        string
	UnauthorizedRoute string

	// UnauthorizedHandler is invoked after the client tears down stored
	// credentials on a 401. The session machine wires its forced-logout
	// transition here; the client never mutates session state directly.
	UnauthorizedHandler func()
}

// APIClient is the single chokepoint for outbound API calls. It attaches the
// bearer token from the credential store to every request and normalizes
// failures to the package error taxonomy before the caller sees them.
type APIClient struct {
	baseURL           string
	client            *http.Client
	store             CredentialStore
	navigator         Navigator
	logger            Logger
	loginRoute        string
	unauthorizedRoute string
	onUnauthorized    func()
}

var _ AuthAPI = (*APIClient)(nil)

// NewAPIClient builds the outbound pipeline.
func NewAPIClient(cfg ClientConfig) (*APIClient, error) {
	if cfg.Store == nil {
		return nil, errors.New("api client requires a credential store", errors.CategoryBadInput)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:3001/api"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = defLogger{}
	}

	loginRoute := cfg.LoginRoute
	if loginRoute == "" {
		loginRoute = "/login"
	}

	unauthorizedRoute := cfg.UnauthorizedRoute
	if unauthorizedRoute == "" {
		unauthorizedRoute = "/unauthorized"
	}

	return &APIClient{
		baseURL:           baseURL,
		client:            hc,
		store:             cfg.Store,
		navigator:         cfg.Navigator,
		logger:            logger,
		loginRoute:        loginRoute,
		unauthorizedRoute: unauthorizedRoute,
		onUnauthorized:    cfg.UnauthorizedHandler,
	}, nil
}

// SetUnauthorizedHandler wires the forced-logout callback after construction.
// The machine and the client reference each other, so one side has to be
// attached late.
func (a *APIClient) SetUnauthorizedHandler(fn func()) {
	a.onUnauthorized = fn
}

// Login authenticates against POST /auth/login. A 2xx missing either the
// user or the token is rejected as a malformed response.
func (a *APIClient) Login(ctx context.Context, email, password string) (*AuthPayload, error) {
	body := map[string]string{"email": email, "password": password}

	envelope, err := a.do(ctx, http.MethodPost, "/auth/login", body)
	if err != nil {
		return nil, err
	}

	payload := dataPayload{}
	if err := decodeData(envelope, &payload); err != nil {
		return nil, err
	}

	if payload.User == nil || payload.Token == "" {
		return nil, withMeta(ErrMalformedResponse, map[string]any{
			"has_user":  payload.User != nil,
			"has_token": payload.Token != "",
		})
	}

	return &AuthPayload{User: payload.User, Token: payload.Token}, nil
}

// Register creates an account via POST /auth/register.
func (a *APIClient) Register(ctx context.Context, req RegisterRequest) (*RegisterPayload, error) {
	envelope, err := a.do(ctx, http.MethodPost, "/auth/register", req)
	if err != nil {
		return nil, err
	}

	payload := dataPayload{}
	if len(envelope.Data) > 0 {
		if err := decodeData(envelope, &payload); err != nil {
			return nil, err
		}
	}

	return &RegisterPayload{
		RequiresApproval: payload.RequiresApproval,
		Message:          envelope.Message,
	}, nil
}

// Logout invalidates the server-side session via POST /auth/logout. Callers
// treat failures as advisory; the local session is already gone.
func (a *APIClient) Logout(ctx context.Context) error {
	_, err := a.do(ctx, http.MethodPost, "/auth/logout", nil)
	return err
}

// Profile fetches the authoritative user record via GET /auth/profile. This
// doubles as token verification during bootstrap.
func (a *APIClient) Profile(ctx context.Context) (*User, error) {
	envelope, err := a.do(ctx, http.MethodGet, "/auth/profile", nil)
	if err != nil {
		return nil, err
	}
	return decodeUser(envelope)
}

// UpdateProfile persists profile edits via PUT /auth/profile and returns the
// server's copy of the record.
func (a *APIClient) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	envelope, err := a.do(ctx, http.MethodPut, "/auth/profile", update)
	if err != nil {
		return nil, err
	}
	return decodeUser(envelope)
}

// ChangePassword rotates the password via PUT /auth/change-password.
func (a *APIClient) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	_, err := a.do(ctx, http.MethodPut, "/auth/change-password", body)
	return err
}

// do runs one request through the pipeline: attach bearer, send, classify.
// Every response is inspected here before the caller sees it, so auth
// failures are handled the same way no matter which endpoint tripped them.
func (a *APIClient) do(ctx context.Context, method, path string, body any) (*apiEnvelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	authed := false
	if token, _, err := a.store.Load(ctx); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		authed = true
	}

	resp, err := a.client.Do(req)
	if err != nil {
		// No response received: connection failure or deadline expiry.
		a.logger.Debug("request failed before a response: %s %s: %v", method, path, err)
		return nil, withMeta(ErrNetwork, map[string]any{"cause": err.Error()})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, withMeta(ErrNetwork, map[string]any{"cause": err.Error()})
	}

	envelope := &apiEnvelope{}
	if len(raw) > 0 {
		// Tolerate non-JSON bodies on error statuses; classification below
		// does not depend on the envelope being present.
		if err := json.Unmarshal(raw, envelope); err != nil && resp.StatusCode < 300 {
			return nil, withMeta(ErrMalformedResponse, map[string]any{"cause": err.Error()})
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		a.logger.Debug("%s %s -> %d %s", method, path, resp.StatusCode, print.MaybePrettyJSON(envelope.Data))
		return envelope, nil
	}

	return nil, a.classify(ctx, method, path, resp.StatusCode, authed, envelope)
}

// classify maps a non-2xx response to the error taxonomy and runs the
// side effects the status demands. 401 handling happens here exactly once
// per request; there is no retry path that could loop back through it.
func (a *APIClient) classify(ctx context.Context, method, path string, status int, authed bool, envelope *apiEnvelope) error {
	meta := map[string]any{"status": status}
	if msg := envelope.serverMessage(); msg != "" {
		meta["server_message"] = msg
	}
	if fields := envelope.fieldMessages(); len(fields) > 0 {
		meta["field_errors"] = fields
	}

	switch {
	case status == http.StatusUnauthorized && !authed:
		// A 401 on a request that carried no bearer token cannot revoke a
		// session; it is a plain credential rejection (e.g. a bad login).
		message := envelope.serverMessage()
		if message == "" {
			message = MsgLoginFailed
		}
		return errors.New(message, errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized).
			WithMetadata(meta)

	case status == http.StatusUnauthorized:
		a.logger.Info("bearer token rejected on %s %s, revoking session", method, path)
		if err := a.store.Clear(ctx); err != nil {
			a.logger.Error("failed to clear credentials after 401: %v", err)
		}
		if a.onUnauthorized != nil {
			a.onUnauthorized()
		}
		a.redirect(a.loginRoute)
		return withMeta(ErrSessionExpired, meta)

	case status == http.StatusForbidden:
		a.redirect(a.unauthorizedRoute)
		return withMeta(ErrForbidden, meta)

	case status == http.StatusNotFound:
		return withMeta(ErrNotFound, meta)

	case status == http.StatusTooManyRequests:
		return withMeta(ErrRateLimited, meta)

	case status >= 500:
		return withMeta(ErrServerUnavailable, meta)
	}

	// Everything else passes through with the server's own message intact.
	message := envelope.serverMessage()
	if message == "" {
		message = http.StatusText(status)
	}
	return errors.New(message, errors.CategoryBadInput).
		WithCode(errors.CodeBadRequest).
		WithMetadata(meta)
}

func (a *APIClient) redirect(route string) {
	if a.navigator == nil {
		return
	}
	if a.navigator.CurrentPath() == route {
		return
	}
	a.navigator.Navigate(route)
}

func (e *apiEnvelope) serverMessage() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.ErrMsg
}

func (e *apiEnvelope) fieldMessages() []string {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		if fe.Message != "" {
			out = append(out, fe.Message)
		}
	}
	return out
}

func decodeData(envelope *apiEnvelope, out any) error {
	if envelope == nil || len(envelope.Data) == 0 {
		return withMeta(ErrMalformedResponse, map[string]any{"cause": "missing data field"})
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return withMeta(ErrMalformedResponse, map[string]any{"cause": err.Error()})
	}
	return nil
}

func decodeUser(envelope *apiEnvelope) (*User, error) {
	payload := dataPayload{}
	if err := decodeData(envelope, &payload); err != nil {
		return nil, err
	}
	if payload.User == nil {
		return nil, withMeta(ErrMalformedResponse, map[string]any{"cause": "missing user record"})
	}
	return payload.User, nil
}
