package httpx

import (
	"io"
	"sort"
	"strconv"
	"strings"
)

// Header maps a header name to a single value. Unlike http.Header the keys
// are not canonicalised and a repeated key keeps only the last value.
type Header map[string]string

// Clone returns a copy of h. A nil header clones to an empty one.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// writeTo emits one "key: value" line per header, keys sorted.
func (h Header) writeTo(sb *strings.Builder) {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(h[k])
		sb.WriteString("\r\n")
	}
}

// Request is an inbound request as read off a connection. It is built once
// by the parser and only exposes readers to handlers.
type Request struct {
	method  string
	path    string
	headers Header
	body    string
}

// NewRequest builds a request. The header map is copied.
func NewRequest(method, path string, headers Header, body string) *Request {
	return &Request{method: method, path: path, headers: headers.Clone(), body: body}
}

func (r *Request) Method() string { return r.method }
func (r *Request) Path() string   { return r.path }
func (r *Request) Body() string   { return r.body }

// Header returns the value stored for key, matched case-sensitively.
func (r *Request) Header(key string) (string, bool) {
	v, ok := r.headers[key]
	return v, ok
}

// Headers returns a copy of the request headers.
func (r *Request) Headers() Header { return r.headers.Clone() }

// String renders the request in wire form. The body is written as is, with
// no trailing line terminator.
func (r *Request) String() string {
	var sb strings.Builder
	sb.WriteString(r.method)
	sb.WriteByte(' ')
	sb.WriteString(r.path)
	sb.WriteString(" HTTP/1.1\r\n")
	r.headers.writeTo(&sb)
	sb.WriteString("\r\n")
	sb.WriteString(r.body)
	return sb.String()
}

// Response is the outgoing message a handler fills in. Send appends to the
// body; nothing replaces it.
type Response struct {
	statusCode int
	headers    Header
	body       strings.Builder
}

// NewResponse builds a response seeded with status, headers and body.
func NewResponse(status int, headers Header, body string) *Response {
	res := &Response{statusCode: status, headers: headers.Clone()}
	res.body.WriteString(body)
	return res
}

func (r *Response) SetStatusCode(code int) { r.statusCode = code }

// SetHeader sets key to value, overwriting any previous value.
func (r *Response) SetHeader(key, value string) { r.headers[key] = value }

// Send appends data to the body.
func (r *Response) Send(data string) { r.body.WriteString(data) }

func (r *Response) StatusCode() int { return r.statusCode }
func (r *Response) Body() string    { return r.body.String() }

func (r *Response) Header(key string) (string, bool) {
	v, ok := r.headers[key]
	return v, ok
}

// Headers returns a copy of the response headers.
func (r *Response) Headers() Header { return r.headers.Clone() }

// String renders the response in wire form. The status line carries no
// reason phrase.
func (r *Response) String() string {
	var sb strings.Builder
	sb.WriteString("HTTP/1.1 ")
	sb.WriteString(strconv.Itoa(r.statusCode))
	sb.WriteString("\r\n")
	r.headers.writeTo(&sb)
	sb.WriteString("\r\n")
	sb.WriteString(r.body.String())
	return sb.String()
}

// WriteTo writes the wire form of r to w.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, r.String())
	return int64(n), err
}
