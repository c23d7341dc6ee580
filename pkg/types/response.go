// Package types holds the JSON envelopes shared by every API response.
package types

// SuccessEnvelope wraps a single resource or ad-hoc payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ListEnvelope wraps a page of resources together with its paging metadata.
type ListEnvelope struct {
	Data any `json:"data"`
	Meta any `json:"meta"`
}

// APIError is the public shape of a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
