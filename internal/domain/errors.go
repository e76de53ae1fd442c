package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMissingField marks incomplete caller input on registration and
	// interest submission. Surfaced synchronously, never retried.
	ErrMissingField = errors.New("missing field")

	// ErrAuthUnavailable means no delivery-service auth token could be
	// obtained. Sends fail without scheduling a retry: retrying without
	// credentials cannot succeed until the token is refreshed externally.
	ErrAuthUnavailable = errors.New("delivery auth unavailable")

	// ErrPermanentDelivery marks an explicit upstream rejection of a push
	// message. The upstream classification is final; the message must not
	// be requeued.
	ErrPermanentDelivery = errors.New("permanent delivery failure")
)
