package routes

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
)

// Header is one header field. Names are lower case.
type Header struct {
	Name  string
	Value string
}

// Request is what a handler sees of an incoming request.
type Request struct {
	Method string
	// Path is the decoded path. For absolute-form targets it is the whole
	// target without the query, e.g. "http://example.org/".
	Path     string
	RawQuery string
	// Target is the request target exactly as received.
	Target  string
	Headers []Header
	Body    Receiver
}

// HeaderValues returns all values of the named header in order.
func (r *Request) HeaderValues(name string) []string {
	name = strings.ToLower(name)
	var out []string
	for _, h := range r.Headers {
		if h.Name == name {
			out = append(out, h.Value)
		}
	}
	return out
}

// SortHeaders orders headers by name, keeping the order of repeated names.
func SortHeaders(h []Header) {
	sort.SliceStable(h, func(i, j int) bool { return h[i].Name < h[j].Name })
}

// Chunk is one piece of a body. More is false on the final chunk.
type Chunk struct {
	Data []byte
	More bool
}

// Receiver yields request body chunks. After a chunk with More == false it
// keeps returning empty final chunks.
type Receiver interface {
	Receive(ctx context.Context) (Chunk, error)
}

// DefaultChunkSize is the read size of ReaderReceiver.
const DefaultChunkSize = 32 * 1024

type readerReceiver struct {
	r    io.Reader
	buf  []byte
	done bool
}

// ReaderReceiver delivers r as chunks of at most size bytes.
func ReaderReceiver(r io.Reader, size int) Receiver {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if r == nil {
		r = http.NoBody
	}
	return &readerReceiver{r: r, buf: make([]byte, size)}
}

func (rr *readerReceiver) Receive(ctx context.Context) (Chunk, error) {
	if rr.done {
		return Chunk{}, nil
	}
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}
	n, err := rr.r.Read(rr.buf)
	data := bytes.Clone(rr.buf[:n])
	switch {
	case errors.Is(err, io.EOF):
		rr.done = true
		return Chunk{Data: data}, nil
	case err != nil:
		rr.done = true
		return Chunk{}, err
	}
	return Chunk{Data: data, More: true}, nil
}

// BytesReceiver delivers data as chunks of at most size bytes.
func BytesReceiver(data []byte, size int) Receiver {
	return ReaderReceiver(bytes.NewReader(data), size)
}

// ReadAll accumulates every chunk of rc.
func ReadAll(ctx context.Context, rc Receiver) ([]byte, error) {
	if rc == nil {
		return nil, nil
	}
	var body []byte
	for {
		chunk, err := rc.Receive(ctx)
		if err != nil {
			return nil, err
		}
		body = append(body, chunk.Data...)
		if !chunk.More {
			return body, nil
		}
	}
}
