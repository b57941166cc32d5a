package routes

import "net/http"

// Route binds an HTTP method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Patterns returns the ServeMux patterns of every route in groups, in
// registration order.
func Patterns(groups ...Group) []string {
	var out []string
	for _, g := range groups {
		out = appendPatterns(out, "", g)
	}
	return out
}

func appendPatterns(out []string, parent string, g Group) []string {
	prefix := parent + g.Prefix
	for _, r := range g.Routes {
		out = append(out, r.Method+" "+prefix+r.Pattern)
	}
	for _, child := range g.Children {
		out = appendPatterns(out, prefix, child)
	}
	return out
}
