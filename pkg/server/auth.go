package server

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"querydict-hq/querydict/pkg/config"
)

const errTypeUnauthorized = "unauthorized"

var (
	errMissingAPIKey  = errors.New("missing API key")
	errInvalidAPIKey  = errors.New("invalid API key")
	errDisabledAPIKey = errors.New("API key disabled")
)

// apiKey is an accepted key, stored by digest.
type apiKey struct {
	name    string
	enabled bool
}

// APIKeyAuth authenticates requests by API key.
type APIKeyAuth struct {
	header string
	scheme string

	mu   sync.RWMutex
	keys map[[sha256.Size]byte]apiKey
}

// NewAPIKeyAuth builds an authenticator from cfg. Keys configured with
// key_env are read through lookup; os.LookupEnv is used when it is nil.
func NewAPIKeyAuth(cfg *config.AuthConfig, lookup func(string) (string, bool)) (*APIKeyAuth, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	a := &APIKeyAuth{
		header: cfg.Header,
		scheme: cfg.Scheme,
		keys:   make(map[[sha256.Size]byte]apiKey, len(cfg.Keys)),
	}
	if a.header == "" {
		a.header = config.DefaultAuthHeader
	}

	for _, k := range cfg.Keys {
		value := k.Key
		if k.KeyEnv != "" {
			v, ok := lookup(k.KeyEnv)
			if !ok || v == "" {
				return nil, fmt.Errorf("API key %q: environment variable %s is not set", k.Name, k.KeyEnv)
			}
			value = v
		}
		if value == "" {
			return nil, fmt.Errorf("API key %q has no value", k.Name)
		}
		a.keys[sha256.Sum256([]byte(value))] = apiKey{name: k.Name, enabled: !k.Disabled}
	}
	return a, nil
}

// Authenticate returns the name of the key presented by r.
func (a *APIKeyAuth) Authenticate(r *http.Request) (string, error) {
	value := strings.TrimSpace(r.Header.Get(a.header))
	if a.scheme != "" {
		prefix := a.scheme + " "
		if len(value) < len(prefix) || !strings.EqualFold(value[:len(prefix)], prefix) {
			return "", errMissingAPIKey
		}
		value = strings.TrimSpace(value[len(prefix):])
	}
	if value == "" {
		return "", errMissingAPIKey
	}

	a.mu.RLock()
	key, ok := a.keys[sha256.Sum256([]byte(value))]
	a.mu.RUnlock()

	switch {
	case !ok:
		return "", errInvalidAPIKey
	case !key.enabled:
		return "", errDisabledAPIKey
	}
	return key.name, nil
}

// Middleware rejects unauthenticated requests with 401 and stores the key
// name in the request context.
func (a *APIKeyAuth) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name, err := a.Authenticate(r)
			if err != nil {
				logger.WarnContext(r.Context(), "authentication failed",
					"error", err,
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				w.Header().Set("WWW-Authenticate", a.challenge())
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorBody{
					Type:    errTypeUnauthorized,
					Message: err.Error(),
				}})
				return
			}

			logger.DebugContext(r.Context(), "API key authenticated", "api_key", name)
			next.ServeHTTP(w, r.WithContext(contextWithAPIKey(r, name)))
		})
	}
}

func (a *APIKeyAuth) challenge() string {
	if a.scheme != "" {
		return a.scheme
	}
	return "APIKey"
}

type apiKeyContextKey struct{}

var apiKeyNameKey apiKeyContextKey

// APIKeyName returns the name of the key that authenticated the request.
func APIKeyName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(apiKeyNameKey).(string)
	return name, ok
}

func contextWithAPIKey(r *http.Request, name string) context.Context {
	return context.WithValue(r.Context(), apiKeyNameKey, name)
}
