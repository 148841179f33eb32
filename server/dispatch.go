package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/testserver/errors"
	"github.com/kbukum/testserver/logger"
	"github.com/kbukum/testserver/routes"
	"github.com/kbukum/testserver/server/middleware"
)

// dispatch is the gin fallback handler that feeds every request through the
// route table.
func (s *Server) dispatch(c *gin.Context) {
	ctx := c.Request.Context()
	req := newRequest(c.Request)

	resp, err := s.table().Handle(ctx, req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := writeResponse(ctx, c.Writer, resp); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Debug("Response aborted", logger.Fields(
			"target", req.Target,
			logger.FieldError, err.Error(),
			logger.FieldRequestID, middleware.RequestIDFrom(ctx),
		))
	}
}

// newRequest converts an incoming request into the handler view.
func newRequest(r *http.Request) *routes.Request {
	req := &routes.Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Target:   r.RequestURI,
		Body:     routes.ReaderReceiver(r.Body, 0),
	}
	if r.URL.IsAbs() {
		target, _, _ := strings.Cut(r.RequestURI, "?")
		if unescaped, err := url.PathUnescape(target); err == nil {
			target = unescaped
		}
		req.Path = target
	}

	headers := make([]routes.Header, 0, len(r.Header)+2)
	if r.Host != "" {
		headers = append(headers, routes.Header{Name: "host", Value: r.Host})
	}
	for name, values := range r.Header {
		lower := strings.ToLower(name)
		for _, v := range values {
			headers = append(headers, routes.Header{Name: lower, Value: v})
		}
	}
	// net/http moves these out of the header map.
	if len(r.TransferEncoding) > 0 {
		headers = append(headers, routes.Header{Name: "transfer-encoding", Value: strings.Join(r.TransferEncoding, ", ")})
	}
	routes.SortHeaders(headers)
	req.Headers = headers
	return req
}

func writeResponse(ctx context.Context, w gin.ResponseWriter, resp *routes.Response) error {
	h := w.Header()
	for _, hdr := range resp.Headers {
		h.Add(hdr.Name, hdr.Value)
	}
	if resp.ContentType() == "" {
		// Keep net/http from sniffing one.
		h["Content-Type"] = nil
	}

	w.WriteHeader(resp.Status)
	w.WriteHeaderNow()

	if resp.Stream == nil {
		if len(resp.Body) == 0 {
			return nil
		}
		_, err := w.Write(resp.Body)
		return err
	}

	w.Flush()
	return resp.Stream(ctx, func(ctx context.Context, data []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		w.Flush()
		return nil
	})
}

func (s *Server) writeError(c *gin.Context, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}

	var tooLarge *http.MaxBytesError
	var appErr *apperrors.AppError
	if errors.As(err, &tooLarge) {
		appErr = apperrors.New(apperrors.ErrCodeInvalidInput, "request body too large", http.StatusRequestEntityTooLarge).
			WithDetail("limit", tooLarge.Limit)
	} else {
		appErr = apperrors.FromError(err)
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		s.log.Error("Handler failed", logger.ErrorFields("dispatch", err))
	}
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}
