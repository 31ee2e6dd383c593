package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"ProductCatalog/pkg/kit"
)

const apiPrefix = "/api"

// NewReverseProxy forwards to target. Upstream failures become a JSON 502 so
// clients see the same error shape as the catalog itself returns.
func NewReverseProxy(target string, log *zap.Logger) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse upstream %q: %w", target, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream %q must be an absolute URL", target)
	}

	p := httputil.NewSingleHostReverseProxy(u)
	p.ModifyResponse = func(resp *http.Response) error {
		// the gateway already echoes the same id
		resp.Header.Del(kit.RequestIDHeader)
		return nil
	}
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		if log != nil {
			log.Warn("upstream request failed",
				zap.String("upstream", u.Host),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
		kit.WriteError(w, r, http.StatusBadGateway, "catalog unavailable", nil)
	}
	return p, nil
}

// ForwardRequestID hands the gateway's request id to the upstream so both
// access logs share it.
func ForwardRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			r.Header.Set(kit.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

func StripAPIPrefix(next http.Handler) http.Handler {
	return http.StripPrefix(apiPrefix, next)
}
