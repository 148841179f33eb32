package middleware

import "net/http"

// FullDuplex lets HTTP/1.1 handlers keep reading the request body after the
// response has started, which streaming echo handlers rely on. HTTP/2
// streams are always full duplex and ignore the call.
func FullDuplex() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = http.NewResponseController(w).EnableFullDuplex()
			next.ServeHTTP(w, r)
		})
	}
}
