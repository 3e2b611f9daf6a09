package types

// Envelope wraps every successful local API response.
type Envelope[T any] struct {
	Data T     `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta describes a list that was trimmed by a limit.
type Meta struct {
	Limit int `json:"limit,omitempty"`
	Total int `json:"total"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
