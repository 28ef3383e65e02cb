package httpadapter

import (
	"context"
	"net/http"
	"sort"
	"strings"
)

// StaticLink rewrites exact request paths.
func StaticLink(links map[string]string) RequestMiddleware {
	return RequestMiddlewareFunc(func(ctx context.Context, req *http.Request, next RequestHandler) (*Response, error) {
		if dstPath, ok := links[req.URL.Path]; ok {
			req = rewrite(req, dstPath)
		}
		return next.Handle(ctx, req)
	})
}

// PrefixLink replaces the longest matching path prefix.
func PrefixLink(links map[string]string) RequestMiddleware {
	prefixes := make([]string, 0, len(links))
	for prefix := range links {
		prefixes = append(prefixes, prefix)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})

	return RequestMiddlewareFunc(func(ctx context.Context, req *http.Request, next RequestHandler) (*Response, error) {
		for _, oldPrefix := range prefixes {
			if strings.HasPrefix(req.URL.Path, oldPrefix) {
				req = rewrite(req, strings.Replace(req.URL.Path, oldPrefix, links[oldPrefix], 1))
				break
			}
		}
		return next.Handle(ctx, req)
	})
}

// HeaderLink routes requests carrying one of the given headers to the
// header's value under the configured prefix. The header is removed.
func HeaderLink(links map[string]string) RequestMiddleware {
	keys := make([]string, 0, len(links))
	for key := range links {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return RequestMiddlewareFunc(func(ctx context.Context, req *http.Request, next RequestHandler) (*Response, error) {
		for _, key := range keys {
			value := req.Header.Get(key)
			if value == "" {
				continue
			}
			strs := []string{strings.TrimRight(links[key], "/"), strings.TrimLeft(value, "/")}
			req = rewrite(req, strings.Join(strs, "/"))
			req.Header.Del(key)
			break
		}
		return next.Handle(ctx, req)
	})
}

func rewrite(req *http.Request, path string) *http.Request {
	r := req.Clone(req.Context())
	r.URL.Path = path
	r.URL.RawPath = ""
	r.RequestURI = r.URL.RequestURI()
	return r
}
