package ports

import "context"

// StoredResponse is a previously sent HTTP response kept for replay.
type StoredResponse struct {
	// Fingerprint identifies the request that produced the response.
	Fingerprint string            `json:"fingerprint,omitempty"`
	Status      int               `json:"status"`
	ContentType string            `json:"content_type"`
	Header      map[string]string `json:"header,omitempty"`
	Body        []byte            `json:"body"`
}

// IdempotencyStore keeps responses keyed by the client's Idempotency-Key.
type IdempotencyStore interface {
	// Lookup returns nil, nil when the key has not been seen.
	Lookup(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, resp StoredResponse) error
}
