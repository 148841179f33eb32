package routes

import (
	"net/url"
	"strings"
)

// ParseQuery splits a raw query into name -> values. Pairs without a value
// are dropped, so "a=&b=1" yields only b. Undecodable escapes are kept
// verbatim.
func ParseQuery(raw string) map[string][]string {
	params := make(map[string][]string)
	for _, pair := range strings.Split(raw, "&") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || value == "" {
			continue
		}
		name, value = unescape(name), unescape(value)
		params[name] = append(params[name], value)
	}
	return params
}

func unescape(s string) string {
	if out, err := url.QueryUnescape(s); err == nil {
		return out
	}
	return strings.ReplaceAll(s, "+", " ")
}

// Capitalize upper-cases the first letter and lower-cases the rest:
// "x-test" becomes "X-test" and "Content-Type" becomes "Content-type".
func Capitalize(name string) string {
	if name == "" {
		return name
	}
	lower := strings.ToLower(name)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
