package apperr

type Kind string

type AppError struct {
	Kind      Kind
	Code      string            // stable machine-readable code for the {code,msg} envelope
	PublicMsg string            // safe to show to callers
	Fields    map[string]string // field-level validation errors (optional)
	Err       error             // internal cause (for logs only)
}
