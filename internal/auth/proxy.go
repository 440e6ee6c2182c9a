// Package auth проксирует /api/auth/* во внешний провайдер аутентификации.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// ErrNoUpstream возвращается, если адрес провайдера не задан.
var ErrNoUpstream = errors.New("auth upstream is not configured")

// NewProxy создает обратный прокси к upstream. Путь запроса передается без изменений.
func NewProxy(upstream string) (http.Handler, error) {
	if upstream == "" {
		return nil, ErrNoUpstream
	}
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid auth upstream %q: %w", upstream, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid auth upstream %q: scheme and host are required", upstream)
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if id := middleware.GetReqID(pr.In.Context()); id != "" {
				pr.Out.Header.Set(middleware.RequestIDHeader, id)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.WithError(err).
				WithField("path", r.URL.Path).
				Error("auth upstream request failed")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"success":false,"data":null,"message":"Auth provider is unavailable"}`))
		},
	}
	return proxy, nil
}
