package common

// AppError carries a machine-readable code alongside the HTTP status a
// handler should respond with. Services return it directly; handlers unwrap
// it at the edge and fall back to a 500 for anything else.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
