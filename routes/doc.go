// Package routes holds the request handlers of the harness server.
//
// Handlers see a transport-independent Request record whose body arrives as
// a sequence of Chunks, and answer with a Response record that either
// carries a complete body or streams chunks. A Table dispatches a request to
// the first Route whose predicate matches and falls back to a default
// handler otherwise.
//
// Default builds the standard table:
//
//	/slow_response   200ms delay, then "Hello, world!"
//	/status/<code>   responds with <code>
//	/echo_path       {"path": ...}
//	/echo_params     {"params": {name: [values]}}
//	/echo_body       request body as text/plain
//	/echo_binary     request body as application/octet-stream
//	/echo_stream     request body relayed chunk by chunk
//	/echo_headers    {Name: [values]}
//	/echo_cookies    {name: value} from the first well-formed Cookie header
//	/set_headers     x-test: test, x-test: test2
//	/set_cookies     set-cookie: foo=bar
//	/redirect_301    301 to /
//	/json            {"Hello": "world!"}
//	http://...       {"Hello": "http_proxy!"}
//	CONNECT          {"Hello": "https_proxy!"}
//	anything else    "Hello, world!"
package routes
