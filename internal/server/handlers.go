package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/octonet/internal/errors"
	"github.com/rohankatakam/octonet/internal/graph"
)

type ctxKey int

const loggerKey ctxKey = iota

// ErrorBody is the payload of every error response
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// requestID tags each request with a uuid, echoed as X-Request-Id and attached to its logger
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)

		logger := s.logger.WithFields(logrus.Fields{
			"request_id": id,
			"path":       r.URL.Path,
		})
		ctx := context.WithValue(r.Context(), loggerKey, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggerFrom(ctx context.Context) logrus.FieldLogger {
	if logger, ok := ctx.Value(loggerKey).(logrus.FieldLogger); ok {
		return logger
	}
	return s.logger
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.cache.HealthCheck(r.Context()); err != nil {
		s.loggerFrom(r.Context()).WithError(err).Warn("Cache store unhealthy")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "cache": err.Error()})
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	log := s.loggerFrom(r.Context())

	token, own, ok := s.credential(w, r)
	if !ok {
		return
	}

	// Only callers spending their own rate limit may force a rebuild
	refresh := own && r.URL.Query().Get("refresh") == "true"
	if !refresh {
		if data, ok := s.cache.GetDocument(r.Context(), token); ok {
			w.Header().Set("X-Cache", "HIT")
			s.writeGraph(w, data)
			return
		}
	}

	log.Info("Creating graph")
	g, err := s.builder.Build(r.Context(), token)
	if err != nil {
		log.WithError(err).Warn("Graph build failed")
		s.writeBuildError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := graph.WriteJSON(&buf, g.Document(), false); err != nil {
		log.WithError(err).Error("Failed to encode graph")
		writeError(w, http.StatusInternalServerError, "internal", "failed to encode graph")
		return
	}

	s.cache.SetDocument(r.Context(), token, buf.Bytes())
	w.Header().Set("X-Cache", "MISS")
	s.writeGraph(w, buf.Bytes())
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	token, _, ok := s.credential(w, r)
	if !ok {
		return
	}

	rl, err := s.verifier.Verify(r.Context(), token)
	if err != nil {
		s.loggerFrom(r.Context()).WithError(err).Info("Verification failed")
		if errors.Is(err, errors.ErrUnauthorized) {
			s.cache.Invalidate(r.Context(), token)
		}
		s.writeBuildError(w, err)
		return
	}

	if rl != nil {
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprint(rl.Remaining))
		w.Header().Set("X-RateLimit-Limit", fmt.Sprint(rl.Limit))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeGraph(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", int(s.cache.TTL().Seconds())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// credential returns the token to build with and whether the caller sent it.
// Without an Authorization header the configured token is used. A header that
// is not "Bearer <token>" or "token <token>" is rejected, never replaced.
// On failure the 401 has already been written.
func (s *Server) credential(w http.ResponseWriter, r *http.Request) (token string, own bool, ok bool) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		if s.defaultToken == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "no token: send an Authorization: Bearer header")
			return "", false, false
		}
		return s.defaultToken, false, true
	}

	token, err := parseAuthorization(auth)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return "", false, false
	}
	return token, true, true
}

// parseAuthorization extracts the token from a Bearer or token credential.
// Schemes compare case-insensitively.
func parseAuthorization(header string) (string, error) {
	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "bearer") && !strings.EqualFold(scheme, "token") {
		return "", fmt.Errorf("unsupported authorization scheme %q: use Bearer", scheme)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("empty %s token", scheme)
	}
	return token, nil
}

func (s *Server) writeBuildError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err.Error())
}

// statusFor maps a client failure to the HTTP status callers act on:
// re-authenticate on 401/403, retry the whole request later on 408.
func statusFor(err error) (int, string) {
	switch errors.KindOf(err) {
	case errors.KindForbidden:
		return http.StatusForbidden, "forbidden"
	case errors.KindUnauthorized:
		return http.StatusUnauthorized, "unauthorized"
	case errors.KindTimeout:
		return http.StatusRequestTimeout, "timeout"
	case errors.KindConfig:
		return http.StatusInternalServerError, "config"
	default:
		return http.StatusBadGateway, "request"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}
