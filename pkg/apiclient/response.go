package apiclient

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoData is returned by Decode when the response carries no body
var ErrNoData = errors.New("apiclient: response has no data")

// Response is the envelope every call resolves to: {data?, error?, status}
type Response struct {
	Status int
	Body   []byte
	IsJSON bool
	Error  string
}

// OK reports whether the request reached the server and succeeded
func (r *Response) OK() bool {
	return r.Error == "" && r.Status >= 200 && r.Status < 300
}

// HasData reports whether a successful response carries a body
func (r *Response) HasData() bool {
	return r.OK() && len(r.Body) > 0
}

// Decode unmarshals the JSON body into v
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return ErrNoData
	}
	return json.Unmarshal(r.Body, v)
}

// Text returns the body as a string; JSON string bodies are unquoted
func (r *Response) Text() string {
	if r.IsJSON {
		var s string
		if err := json.Unmarshal(r.Body, &s); err == nil {
			return s
		}
	}
	return strings.TrimSpace(string(r.Body))
}
