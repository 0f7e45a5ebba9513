package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/citylibrary/loan-service/internal/core/ports"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 255
)

// IdempotencyConfig configures the Idempotency middleware.
type IdempotencyConfig struct {
	Store  ports.IdempotencyStore
	Logger zerolog.Logger
	// ReplayHeaders are copied from the original response into the stored
	// entry and restored on replay. Content-Type is always kept.
	ReplayHeaders []string
}

// Idempotency replays the first successful response sent for an
// Idempotency-Key header when the same request is repeated. Reusing a key for
// a different method, path or body is rejected with 422. Requests without the
// header pass through. Store failures are logged and the request is served
// normally.
func Idempotency(cfg IdempotencyConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(HeaderIdempotencyKey)
			if key == "" {
				return next(c)
			}
			if len(key) > maxIdempotencyKeyLen {
				return echo.NewHTTPError(http.StatusBadRequest, "Idempotency-Key is too long")
			}

			fingerprint, err := requestFingerprint(c.Request())
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
			}

			ctx := c.Request().Context()
			stored, err := cfg.Store.Lookup(ctx, key)
			if err != nil {
				cfg.Logger.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed")
			}
			if stored != nil && stored.Fingerprint != "" && stored.Fingerprint != fingerprint {
				return echo.NewHTTPError(http.StatusUnprocessableEntity, "Idempotency-Key was already used for a different request")
			}
			if stored != nil {
				for name, value := range stored.Header {
					c.Response().Header().Set(name, value)
				}
				c.Response().Header().Set(HeaderReplayed, "true")
				return c.Blob(stored.Status, stored.ContentType, stored.Body)
			}

			res := c.Response()
			cw := &captureWriter{ResponseWriter: res.Writer}
			res.Writer = cw
			defer func() { res.Writer = cw.ResponseWriter }()

			if err := next(c); err != nil {
				return err
			}
			if res.Status < 200 || res.Status >= 300 {
				return nil
			}

			entry := ports.StoredResponse{
				Fingerprint: fingerprint,
				Status:      res.Status,
				ContentType: res.Header().Get(echo.HeaderContentType),
				Body:        cw.body.Bytes(),
			}
			for _, name := range cfg.ReplayHeaders {
				if v := res.Header().Get(name); v != "" {
					if entry.Header == nil {
						entry.Header = make(map[string]string, len(cfg.ReplayHeaders))
					}
					entry.Header[name] = v
				}
			}

			if err := cfg.Store.Save(context.WithoutCancel(ctx), key, entry); err != nil {
				cfg.Logger.Error().Err(err).Str("idempotency_key", key).Msg("failed to save idempotent response")
			}
			return nil
		}
	}
}

// requestFingerprint hashes method, path and body, and restores the body for
// the handler.
func requestFingerprint(r *http.Request) (string, error) {
	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return "", err
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(b))
		body = b
	}

	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write([]byte(r.URL.Path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// captureWriter tees the response body so it can be stored.
type captureWriter struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
