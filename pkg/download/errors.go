package download

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSize   = errors.New("server did not report a content length")
	ErrShortRange    = errors.New("response ended before the end of the range")
	ErrRangeOverflow = errors.New("response is longer than the requested range")
)

type HTTPStatusError struct {
	StatusCode int
}

func ErrUnexpectedHTTPStatus(statusCode int) error {
	return HTTPStatusError{StatusCode: statusCode}
}

var _ error = &HTTPStatusError{}

func (c HTTPStatusError) Error() string {
	return fmt.Sprintf("status code %d", c.StatusCode)
}

// ConfigurationError reports input that makes a download impossible before any request is made.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NetworkError wraps a failed probe or range fetch. Range is nil for probes.
type NetworkError struct {
	Op    string
	URL   string
	Range *ByteRange
	Err   error
}

func (e *NetworkError) Error() string {
	if e.Range != nil {
		return fmt.Sprintf("%s %s range %d (%s): %v", e.Op, e.URL, e.Range.Index, e.Range.Header(), e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error {
	return e.Err
}
