package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
)

const DefaultBufferSize = 32 * humanize.KiByte

// RangeWriter commits bytes at an absolute offset of the output and reports how many were
// committed. output.SharedFile is the production implementation.
type RangeWriter interface {
	WriteAt(offset int64, p []byte) (int, error)
}

type Fetcher struct {
	Client *http.Client
	// BufferSize is the largest chunk handed to the writer at once. Zero means DefaultBufferSize.
	BufferSize int
}

// Fetch requests r from url and writes every received chunk at the worker's cursor, which starts at
// r.Start and advances by what the writer commits. It returns the number of bytes committed.
// Nothing past r.End is ever written.
func (f *Fetcher) Fetch(ctx context.Context, url string, r ByteRange, w RangeWriter) (int64, error) {
	fetchErr := func(err error) error {
		return &NetworkError{Op: "fetch", URL: url, Range: &r, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fetchErr(err)
	}
	req.Header.Set("Range", r.Header())

	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, fetchErr(err)
	}
	defer resp.Body.Close()

	// a server that ignores Range answers 200 with the whole body, which is only usable from offset 0
	fullBody := resp.StatusCode == http.StatusOK
	if resp.StatusCode != http.StatusPartialContent && !(fullBody && r.Start == 0) {
		return 0, fetchErr(ErrUnexpectedHTTPStatus(resp.StatusCode))
	}

	bufferSize := f.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	buf := make([]byte, bufferSize)
	cursor := r.Start

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			remaining := r.End - cursor + 1
			overflow := int64(n) > remaining
			if overflow {
				chunk = chunk[:remaining]
			}
			if len(chunk) > 0 {
				written, err := w.WriteAt(cursor, chunk)
				cursor += int64(written)
				if err != nil {
					return cursor - r.Start, writeError(w, err)
				}
				if written < len(chunk) {
					return cursor - r.Start, writeError(w, io.ErrShortWrite)
				}
			}
			if overflow {
				if fullBody {
					return cursor - r.Start, nil
				}
				return cursor - r.Start, fetchErr(ErrRangeOverflow)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return cursor - r.Start, fetchErr(readErr)
		}
	}

	if cursor != r.End+1 {
		return cursor - r.Start, fetchErr(fmt.Errorf("%w: received %d of %d bytes", ErrShortRange, cursor-r.Start, r.Len()))
	}
	return cursor - r.Start, nil
}

func writeError(w RangeWriter, err error) error {
	path := ""
	if named, ok := w.(interface{ Name() string }); ok {
		path = named.Name()
	}
	return &FileSystemError{Op: "write", Path: path, Err: err}
}
