// Package httpwire parses raw HTTP/1.1 requests from a byte stream and
// serializes response models back to the socket. It deliberately covers
// only what the engine needs: request line, header block, Content-Length
// bodies and query strings. Chunked transfer encoding is not supported.
package httpwire

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/luciancaetano/portmux"
)

// MaxHeaderBytes caps the request line plus header block.
const MaxHeaderBytes = 8192

var (
	// ErrMalformedRequest reports an unparseable request line or header.
	ErrMalformedRequest = errors.New("malformed http request")

	// ErrChunkedUnsupported reports a Transfer-Encoding: chunked request;
	// the engine answers 501 and closes the connection.
	ErrChunkedUnsupported = errors.New("chunked transfer encoding not supported")

	// ErrHeadersTooLarge reports a header block above MaxHeaderBytes.
	ErrHeadersTooLarge = errors.New("request headers too large")
)

var crlfcrlf = []byte("\r\n\r\n")

// ParseRequest parses one request from buf.
//
// Returns (req, consumed, nil) for a complete request, (nil, 0, nil) when
// more bytes are needed, and an error for malformed or unsupported input.
// The returned request owns copies of its data; buf may be reused.
func ParseRequest(buf []byte) (*portmux.Request, int, error) {
	headerEnd := bytes.Index(buf, crlfcrlf)
	if headerEnd < 0 {
		if len(buf) > MaxHeaderBytes {
			return nil, 0, ErrHeadersTooLarge
		}
		return nil, 0, nil
	}
	if headerEnd > MaxHeaderBytes {
		return nil, 0, ErrHeadersTooLarge
	}

	lines := strings.Split(string(buf[:headerEnd]), "\r\n")
	method, rawPath, proto, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, 0, err
	}

	headers := make(portmux.Headers, len(lines)-1)
	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, 0, ErrMalformedRequest
		}
		// Last value wins on duplicate headers.
		headers.Set(name, strings.TrimSpace(value))
	}

	if headers.HasToken("Transfer-Encoding", "chunked") {
		return nil, 0, ErrChunkedUnsupported
	}

	bodyLen := 0
	if cl := headers.Get("Content-Length"); cl != "" {
		bodyLen, err = strconv.Atoi(cl)
		if err != nil || bodyLen < 0 {
			return nil, 0, fmt.Errorf("%w: bad content-length %q", ErrMalformedRequest, cl)
		}
	}

	bodyStart := headerEnd + len(crlfcrlf)
	if len(buf) < bodyStart+bodyLen {
		return nil, 0, nil
	}
	body := make([]byte, bodyLen)
	copy(body, buf[bodyStart:bodyStart+bodyLen])

	path, query := splitTarget(rawPath)

	return &portmux.Request{
		Method:  method,
		Path:    path,
		Proto:   proto,
		Headers: headers,
		Query:   query,
		Body:    body,
	}, bodyStart + bodyLen, nil
}

func parseRequestLine(line string) (method, target, proto string, err error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return "", "", "", ErrMalformedRequest
	}
	method, target, proto = parts[0], parts[1], parts[2]
	if method == "" || target == "" {
		return "", "", "", ErrMalformedRequest
	}
	if proto != "HTTP/1.1" && proto != "HTTP/1.0" {
		return "", "", "", fmt.Errorf("%w: unsupported protocol %q", ErrMalformedRequest, proto)
	}
	return method, target, proto, nil
}

// splitTarget separates the request target into path and query map.
// Duplicate query keys keep the last occurrence; undecodable parameters
// are kept verbatim rather than failing the request.
func splitTarget(target string) (string, map[string]string) {
	path, rawQuery, _ := strings.Cut(target, "?")
	query := make(map[string]string)
	if rawQuery == "" {
		return path, query
	}
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		query[key] = value
	}
	return path, query
}
