package types

// ErrorEnvelope is the uniform error body: {message, error, errors?}.
type ErrorEnvelope struct {
	Message string       `json:"message"`
	Error   string       `json:"error"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type MessageEnvelope struct {
	Message string `json:"message"`
}
