package internal

import (
	stderr "errors"
	"io"
)

// ReadResponseBody reads the full body of a remote response, classifying
// a short/truncated read the way the teacher's frame reader classified a
// truncated header or payload: a read that stops partway through with
// io.ErrUnexpectedEOF (rather than a clean io.EOF on an empty body) is
// reported as a truncated response instead of being silently swallowed.
//
// This adapts ReceiveFrame, which distinguished a clean EOF from a
// truncated mid-frame read via io.ReadFull over a length-prefixed
// header/payload. Since the Unix-socket wire format here is plain HTTP
// (spec mandates it, no custom CRC frame), there is no frame header or
// CRC to verify; only the truncation classification survives.
func ReadResponseBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		if stderr.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	return data, nil
}

// ErrTruncated is returned by ReadResponseBody when the remote closed
// the connection partway through sending its response body.
var ErrTruncated = stderr.New("internal: truncated response body")
