package httpx

import (
	"bufio"
	"strings"
)

// ParseRequest turns raw request text into a Request. It never fails:
// missing fields come back empty and whatever could be read is kept.
//
// The first line gives method, path and version (the version is ignored).
// Header lines follow until a blank line or the end of input; each is split
// on its first ':' and the value is kept verbatim, leading space included.
// Exactly one line after the blank line is taken as the body.
func ParseRequest(raw string) *Request {
	sc := bufio.NewScanner(strings.NewReader(raw))
	// a single line can never exceed the input itself
	sc.Buffer(make([]byte, 0, 4096), len(raw)+1)

	req := &Request{headers: make(Header)}
	if !sc.Scan() {
		return req
	}
	fields := strings.Fields(sc.Text())
	if len(fields) > 0 {
		req.method = fields[0]
	}
	if len(fields) > 1 {
		req.path = fields[1]
	}

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if sc.Scan() {
				req.body = sc.Text()
			}
			return req
		}
		key, value, _ := strings.Cut(line, ":")
		req.headers[key] = value
	}
	return req
}
