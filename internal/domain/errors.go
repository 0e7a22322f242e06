package domain

import "errors"

var (
	// ErrMissingCredential is returned when a required upstream credential
	// is absent. Fatal, never retried.
	ErrMissingCredential = errors.New("missing upstream credential")

	// ErrQuotaExhausted is returned by collaborator clients when the
	// upstream rejects a call for quota or auth reasons (403/429). It is
	// the only failure class that triggers the secondary tagging path.
	ErrQuotaExhausted = errors.New("upstream quota exhausted or forbidden")

	// ErrUpstreamUnavailable is returned for transient upstream failures
	// (network errors, timeouts, 5xx responses).
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")

	// ErrMalformedPayload is returned when an upstream response cannot be
	// parsed even after salvage attempts.
	ErrMalformedPayload = errors.New("malformed upstream payload")

	// ErrEmptyOCRText is returned when OCR succeeds but yields no text.
	ErrEmptyOCRText = errors.New("no text detected in image")

	// ErrScanNotFound is returned by the scan store for unknown IDs.
	ErrScanNotFound = errors.New("scan not found")

	// ErrInvalidRequest is returned for malformed API input.
	ErrInvalidRequest = errors.New("invalid request parameters")
)
