package wire

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Reader errors.
var (
	// ErrBadContentLength indicates the declared body length could not be
	// parsed as a non-negative integer.
	ErrBadContentLength = errors.New("malformed content length")
)

// MessageReader reassembles one header+body message from fragmented chunks.
//
// Feed chunks with Read in arrival order; chunk boundaries may fall
// anywhere, including mid-line. Once BodyComplete reports true the message
// is final and further reads are no-ops. A MessageReader is single-use
// unless reset with Clear.
//
// Not safe for concurrent use; a reader belongs to exactly one connection.
type MessageReader struct {
	headerBuf      []byte
	headers        map[string]string
	headerLines    int
	contentLength  int
	body           []byte
	headerComplete bool
	bodyComplete   bool
}

// NewMessageReader creates an empty reader.
func NewMessageReader() *MessageReader {
	return &MessageReader{headers: make(map[string]string)}
}

// HeaderComplete reports whether the blank end-of-headers line was seen.
func (r *MessageReader) HeaderComplete() bool { return r.headerComplete }

// BodyComplete reports whether the full declared body has been received.
func (r *MessageReader) BodyComplete() bool { return r.bodyComplete }

// ContentLength returns the declared body length. Valid once HeaderComplete
// reports true; a message without a length header declares zero.
func (r *MessageReader) ContentLength() int { return r.contentLength }

// Header returns a header value by case-insensitive name.
func (r *MessageReader) Header(name string) (string, bool) {
	v, ok := r.headers[strings.ToLower(name)]
	return v, ok
}

// Body returns the accumulated body. Complete once BodyComplete reports true.
func (r *MessageReader) Body() []byte { return r.body }

// Clear resets all state so the reader can parse a new message.
func (r *MessageReader) Clear() {
	r.headerBuf = nil
	r.headers = make(map[string]string)
	r.headerLines = 0
	r.contentLength = 0
	r.body = nil
	r.headerComplete = false
	r.bodyComplete = false
}

// Read consumes the next chunk. It returns an error only when a declared
// body length cannot be parsed; any such error poisons this message and the
// connection it came from, not other connections.
func (r *MessageReader) Read(chunk []byte) error {
	if r.bodyComplete {
		return nil
	}
	if r.headerComplete {
		r.appendBody(chunk)
		return nil
	}

	r.headerBuf = append(r.headerBuf, chunk...)
	for {
		nl := bytes.IndexByte(r.headerBuf, '\n')
		if nl < 0 {
			return nil // incomplete line, wait for the next chunk
		}
		line := strings.TrimRight(string(r.headerBuf[:nl]), "\r")
		r.headerBuf = r.headerBuf[nl+1:]

		if sep := strings.IndexByte(line, ':'); sep >= 0 {
			name := strings.TrimSpace(line[:sep])
			value := strings.TrimSpace(line[sep+1:])
			r.headers[strings.ToLower(name)] = value
			r.headerLines++
			continue
		}

		// A separator-less line before any header field is a start line
		// (e.g. "POST /notify HTTP/1.0"); after at least one header field
		// it marks the end of the headers.
		if r.headerLines == 0 {
			continue
		}

		if err := r.parseContentLength(); err != nil {
			return err
		}
		r.headerComplete = true

		// Whatever follows the blank line in this same chunk is already
		// body data.
		rest := r.headerBuf
		r.headerBuf = nil
		r.appendBody(rest)
		return nil
	}
}

// parseContentLength finds the declared body length among the parsed
// headers; a message without one declares zero.
func (r *MessageReader) parseContentLength() error {
	value, ok := r.lengthHeader()
	if !ok {
		r.contentLength = 0
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fmt.Errorf("%w: %q", ErrBadContentLength, value)
	}
	r.contentLength = n
	return nil
}

// lengthHeader locates the length declaration. An exact "content-length"
// header always wins. Brokers are not consistent about the exact name, so
// failing that, a header whose name's final hyphen-separated token is
// "len" or "length" counts too (e.g. "X-Len"); ties break on the lowest
// name so the result never depends on map iteration order.
func (r *MessageReader) lengthHeader() (string, bool) {
	if v, ok := r.headers["content-length"]; ok {
		return v, true
	}
	if v, ok := r.headers["content length"]; ok {
		return v, true
	}

	var found, value string
	for name, v := range r.headers {
		tok := name[strings.LastIndexByte(name, '-')+1:]
		if tok != "len" && tok != "length" {
			continue
		}
		if found == "" || name < found {
			found, value = name, v
		}
	}
	return value, found != ""
}

// appendBody appends body bytes up to the declared length. Accumulated body
// length always equals the bytes actually appended; surplus bytes beyond
// the declared length are discarded.
func (r *MessageReader) appendBody(data []byte) {
	need := r.contentLength - len(r.body)
	if need > 0 {
		if len(data) > need {
			data = data[:need]
		}
		r.body = append(r.body, data...)
	}
	if len(r.body) >= r.contentLength {
		r.bodyComplete = true
	}
}
