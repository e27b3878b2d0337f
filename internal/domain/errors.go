package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrMissingPayload is returned when a signed payload carries no items to process
	ErrMissingPayload = errors.New("missing item payload")

	// ErrInvalidSignature is returned when a webhook signature does not verify
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrItemNotFound is returned when a sheet row cannot be found
	ErrItemNotFound = errors.New("item not found")

	// ErrEmbeddingFailure is returned when the embedding model call fails
	ErrEmbeddingFailure = errors.New("embedding request failed")

	// ErrCompletionFailure is returned when the text model call fails
	ErrCompletionFailure = errors.New("completion request failed")

	// ErrModelAccessDenied is returned when the model rejects our credentials or model id
	ErrModelAccessDenied = errors.New("access denied to model")

	// ErrModelThrottled is returned when the model call was throttled or timed out and may be retried
	ErrModelThrottled = errors.New("model request throttled")

	// ErrSnapshotUnavailable is returned when menu.json or embeddings.json cannot be read
	ErrSnapshotUnavailable = errors.New("menu snapshot unavailable")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)
