package routes

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/testserver/errors"
)

// DefaultSlowDelay is how long /slow_response waits before answering.
const DefaultSlowDelay = 200 * time.Millisecond

const greeting = "Hello, world!"

// Default returns the standard route table.
func Default() *Table {
	return NewTable(HandlerFunc(helloWorld),
		Route{Name: "slow_response", Match: PathPrefix("/slow_response"), Handler: SlowResponse(DefaultSlowDelay)},
		Route{Name: "status", Match: PathPrefix("/status"), Handler: HandlerFunc(statusCode)},
		Route{Name: "echo_path", Match: PathPrefix("/echo_path"), Handler: HandlerFunc(echoPath)},
		Route{Name: "echo_params", Match: PathPrefix("/echo_params"), Handler: HandlerFunc(echoParams)},
		Route{Name: "echo_body", Match: PathPrefix("/echo_body"), Handler: echoBody(ContentTypeText)},
		Route{Name: "echo_binary", Match: PathPrefix("/echo_binary"), Handler: echoBody(ContentTypeOctetStream)},
		Route{Name: "echo_stream", Match: PathPrefix("/echo_stream"), Handler: HandlerFunc(echoStream)},
		Route{Name: "echo_headers", Match: PathPrefix("/echo_headers"), Handler: HandlerFunc(echoHeaders)},
		Route{Name: "echo_cookies", Match: PathPrefix("/echo_cookies"), Handler: HandlerFunc(echoCookies)},
		Route{Name: "set_headers", Match: PathPrefix("/set_headers"), Handler: HandlerFunc(setHeaders)},
		Route{Name: "set_cookies", Match: PathPrefix("/set_cookies"), Handler: HandlerFunc(setCookies)},
		Route{Name: "redirect_301", Match: PathPrefix("/redirect_301"), Handler: HandlerFunc(redirect301)},
		Route{Name: "json", Match: PathPrefix("/json"), Handler: HandlerFunc(helloJSON)},
		Route{Name: "http_proxy", Match: AbsoluteTarget("http"), Handler: fixedJSON(`{"Hello": "http_proxy!"}`)},
		Route{Name: "https_proxy", Match: Method(http.MethodConnect), Handler: fixedJSON(`{"Hello": "https_proxy!"}`)},
	)
}

func helloWorld(ctx context.Context, r *Request) (*Response, error) {
	return Text(http.StatusOK, ContentTypeTextUTF8, greeting), nil
}

func helloJSON(ctx context.Context, r *Request) (*Response, error) {
	return Text(http.StatusOK, ContentTypeJSON, `{"Hello": "world!"}`), nil
}

func fixedJSON(body string) Handler {
	return HandlerFunc(func(ctx context.Context, r *Request) (*Response, error) {
		return Text(http.StatusOK, ContentTypeJSON, body), nil
	})
}

// SlowResponse answers with the greeting after delay. A cancelled request
// ends the wait early.
func SlowResponse(delay time.Duration) Handler {
	return HandlerFunc(func(ctx context.Context, r *Request) (*Response, error) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
		return Text(http.StatusOK, ContentTypeText, greeting), nil
	})
}

func statusCode(ctx context.Context, r *Request) (*Response, error) {
	raw, ok := strings.CutPrefix(r.Path, "/status/")
	if !ok {
		return nil, errors.InvalidInput("status", "expected /status/<code>")
	}
	code, err := strconv.Atoi(raw)
	if err != nil || code < 200 || code > 599 {
		return nil, errors.InvalidInput("status", "status code must be an integer between 200 and 599, got "+strconv.Quote(raw))
	}
	return Text(code, ContentTypeText, greeting), nil
}

func echoPath(ctx context.Context, r *Request) (*Response, error) {
	return JSON(http.StatusOK, ContentTypeText, map[string]string{"path": r.Path})
}

func echoParams(ctx context.Context, r *Request) (*Response, error) {
	return JSON(http.StatusOK, ContentTypeText, map[string]any{"params": ParseQuery(r.RawQuery)})
}

func echoBody(contentType string) Handler {
	return HandlerFunc(func(ctx context.Context, r *Request) (*Response, error) {
		body, err := ReadAll(ctx, r.Body)
		if err != nil {
			return nil, err
		}
		return &Response{
			Status:  http.StatusOK,
			Headers: []Header{{Name: "content-type", Value: contentType}},
			Body:    body,
		}, nil
	})
}

// echoStream relays each request chunk as soon as it arrives.
func echoStream(ctx context.Context, r *Request) (*Response, error) {
	return &Response{
		Status:  http.StatusOK,
		Headers: []Header{{Name: "content-type", Value: ContentTypeOctetStream}},
		Stream: func(ctx context.Context, send SendFunc) error {
			if r.Body == nil {
				return nil
			}
			for {
				chunk, err := r.Body.Receive(ctx)
				if err != nil {
					return err
				}
				if len(chunk.Data) > 0 {
					if err := send(ctx, chunk.Data); err != nil {
						return err
					}
				}
				if !chunk.More {
					return nil
				}
			}
		},
	}, nil
}

func echoHeaders(ctx context.Context, r *Request) (*Response, error) {
	body := make(map[string][]string)
	for _, h := range r.Headers {
		name := Capitalize(h.Name)
		body[name] = append(body[name], h.Value)
	}
	return JSON(http.StatusOK, ContentTypeJSON, body)
}

func echoCookies(ctx context.Context, r *Request) (*Response, error) {
	cookies := make(map[string]string)
	for _, line := range r.HeaderValues("cookie") {
		parsed, err := http.ParseCookie(line)
		if err != nil || len(parsed) == 0 {
			continue
		}
		for _, c := range parsed {
			cookies[c.Name] = c.Value
		}
		break
	}
	return JSON(http.StatusOK, ContentTypeJSON, cookies)
}

func setHeaders(ctx context.Context, r *Request) (*Response, error) {
	return &Response{
		Status: http.StatusOK,
		Headers: []Header{
			{Name: "content-type", Value: ContentTypeText},
			{Name: "x-test", Value: "test"},
			{Name: "x-test", Value: "test2"},
		},
		Body: []byte(greeting),
	}, nil
}

func setCookies(ctx context.Context, r *Request) (*Response, error) {
	return &Response{
		Status: http.StatusOK,
		Headers: []Header{
			{Name: "content-type", Value: ContentTypeText},
			{Name: "set-cookie", Value: "foo=bar"},
		},
		Body: []byte(greeting),
	}, nil
}

func redirect301(ctx context.Context, r *Request) (*Response, error) {
	return &Response{
		Status:  http.StatusMovedPermanently,
		Headers: []Header{{Name: "location", Value: "/"}},
		Body:    []byte("Redirecting..."),
	}, nil
}
