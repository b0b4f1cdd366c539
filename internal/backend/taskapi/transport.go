package taskapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// SessionSource supplies the bearer token and receives authorization
// rejections. session.Store implements it.
type SessionSource interface {
	oauth2.TokenSource

	// ExpireToken tears the session down after a 401, but only if token is
	// still the session's current token.
	ExpireToken(token string) bool
}

type publicKey struct{}

// public marks ctx as carrying a request to an unauthenticated endpoint.
// Such requests never carry the bearer token, so a 401 from them is a
// credential failure rather than a lost session.
func public(ctx context.Context) context.Context {
	return context.WithValue(ctx, publicKey{}, true)
}

func isPublic(req *http.Request) bool {
	v, _ := req.Context().Value(publicKey{}).(bool)
	return v
}

// authTransport attaches the session token to outgoing requests and forces a
// logout when a request that carried a token comes back 401.
type authTransport struct {
	base http.RoundTripper
	log  *zap.Logger

	mu      sync.RWMutex
	session SessionSource
}

func (t *authTransport) setSession(s SessionSource) {
	t.mu.Lock()
	t.session = s
	t.mu.Unlock()
}

func (t *authTransport) source() SessionSource {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.session
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	sess := t.source()
	var sent string
	if sess != nil && !isPublic(req) {
		if tok, err := sess.Token(); err == nil && tok.AccessToken != "" {
			tok.SetAuthHeader(req)
			sent = tok.AccessToken
		}
	}
	authed := sent != ""

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.log.Debug("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("request_id", reqID),
			zap.Error(err))
		return nil, err
	}

	t.log.Debug("request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", reqID),
		zap.Bool("authenticated", authed))

	// Tear the session down before the caller sees the rejection. A late
	// 401 for a token that was already replaced leaves the new session alone.
	if resp.StatusCode == http.StatusUnauthorized && authed {
		if sess.ExpireToken(sent) {
			t.log.Info("authorization rejected, logging out", zap.String("path", req.URL.Path))
		}
	}
	return resp, nil
}
