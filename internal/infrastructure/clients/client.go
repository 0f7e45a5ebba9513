// Package clients holds the HTTP clients for the inventory service and the
// user directory.
package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/citylibrary/loan-service/internal/infrastructure/metrics"
)

const (
	tracerName     = "github.com/citylibrary/loan-service/internal/infrastructure/clients"
	defaultTimeout = 5 * time.Second
	userAgent      = "loan-service/1.0"

	resultOK       = "ok"
	resultNotFound = "not_found"
	resultError    = "error"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// remote is the shared plumbing of both clients: timeout, tracing, metrics.
type remote struct {
	service string
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
}

func newRemote(service, baseURL string, timeout time.Duration) remote {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return remote{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tracer:  otel.Tracer(tracerName),
	}
}

// do sends the request and returns the response; the caller closes the body
// and reports the call result through finish.
func (r remote) do(ctx context.Context, operation, method, url string) (*http.Response, func(result string, err error), error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, r.service+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", url),
		),
	)

	finish := func(result string, err error) {
		metrics.ObserveRemoteCall(r.service, operation, result, start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		finish(resultError, err)
		return nil, nil, fmt.Errorf("%s %s: build request: %w", r.service, operation, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := r.http.Do(req)
	if err != nil {
		finish(resultError, err)
		return nil, nil, fmt.Errorf("%s %s: %w", r.service, operation, err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	return resp, finish, nil
}

// drain discards the rest of the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
