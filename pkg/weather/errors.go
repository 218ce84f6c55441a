package weather

import (
	"errors"
	"fmt"
)

var (
	ErrDecode   = errors.New("decode error")
	ErrConfig   = errors.New("configuration error")
	ErrNetwork  = errors.New("network error")
	ErrNotFound = errors.New("no weather data found for this city")
)

// UpstreamError is returned when the weather API answers outside the 2xx
// range. Body holds the raw response text.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("weather API error (%d): %s", e.StatusCode, e.Body)
}

type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string {
	return fmt.Sprintf("%v: %v", e.kind, e.err)
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.err}
}

func DecodeError(err error) error { return &kindError{kind: ErrDecode, err: err} }

func ConfigError(err error) error { return &kindError{kind: ErrConfig, err: err} }

func NetworkError(err error) error { return &kindError{kind: ErrNetwork, err: err} }
