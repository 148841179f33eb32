package routes

import (
	"context"
	"encoding/json"
	"net/http"
)

// Content types used by the handlers.
const (
	ContentTypeText        = "text/plain"
	ContentTypeTextUTF8    = "text/plain; charset=utf-8"
	ContentTypeJSON        = "application/json"
	ContentTypeOctetStream = "application/octet-stream"
)

// SendFunc writes one chunk of a streamed response.
type SendFunc func(ctx context.Context, data []byte) error

// Response is what a handler answers with. When Stream is set it is called
// after the status line and headers are written and Body is ignored.
type Response struct {
	Status  int
	Headers []Header
	Body    []byte
	Stream  func(ctx context.Context, send SendFunc) error
}

// ContentType returns the first content-type header, or "".
func (r *Response) ContentType() string {
	for _, h := range r.Headers {
		if h.Name == "content-type" {
			return h.Value
		}
	}
	return ""
}

// Text builds a response with the given content type and body.
func Text(status int, contentType, body string) *Response {
	return &Response{
		Status:  status,
		Headers: []Header{{Name: "content-type", Value: contentType}},
		Body:    []byte(body),
	}
}

// JSON marshals v into a response carrying contentType.
func JSON(status int, contentType string, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Response{
		Status:  status,
		Headers: []Header{{Name: "content-type", Value: contentType}},
		Body:    body,
	}, nil
}

// bodyAllowed reports whether status permits a response body.
func bodyAllowed(status int) bool {
	return !(status >= 100 && status < 200) && status != http.StatusNoContent && status != http.StatusNotModified
}
