package relay

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Coalesce returns middleware that deduplicates identical in-flight
// read attempts. Concurrent GET and HEAD attempts with the same method,
// URL, and query share one traversal of the inner layers; followers
// receive a copy of the leader's response view. Other methods pass
// through untouched.
//
// Each Coalesce() value owns its own flight group, so coalescing is
// scoped to wherever the middleware is registered.
func Coalesce() Middleware {
	var group singleflight.Group

	return func(c *Context, next Next) error {
		if c.Req.Method != http.MethodGet && c.Req.Method != http.MethodHead {
			return next()
		}

		key := coalesceKey(c.Req)
		v, err, _ := group.Do(key, func() (any, error) {
			if err := next(); err != nil {
				return nil, err
			}
			return snapshotResponse(c.Res), nil
		})
		if err != nil {
			return err
		}

		if res, ok := v.(*Response); ok {
			c.Res = snapshotResponse(res)
		}
		return nil
	}
}

// coalesceKey builds a stable identity for an attempt: method, URL, and
// sorted query parameters.
func coalesceKey(req *Request) string {
	var params []string
	for k, vs := range req.Query {
		sorted := append([]string(nil), vs...)
		sort.Strings(sorted)
		for _, v := range sorted {
			params = append(params, k+"="+v)
		}
	}
	sort.Strings(params)

	h := sha256.Sum256([]byte(req.Method + "|" + req.URL + "|" + strings.Join(params, "&")))
	return hex.EncodeToString(h[:])
}

// snapshotResponse copies a response view so each call owns its own.
func snapshotResponse(r *Response) *Response {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Header = r.Header.Clone()
	return &clone
}
