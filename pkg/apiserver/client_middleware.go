package apiserver

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/trititantech/server/pkg/model"
)

type ContextKey string

const ClientInfo ContextKey = "clientInfo"

// realIP returns the first of X-Forwarded-For (first hop), X-Real-IP and the socket host.
func realIP(req *http.Request) string {
	if hop, _, _ := strings.Cut(req.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(hop) != "" {
		return strings.TrimSpace(hop)
	}
	if ip := strings.TrimSpace(req.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// clientInfoMiddleware captures the request metadata stored alongside records.
func clientInfoMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := model.ClientInfo{
			IP:        realIP(r),
			UserAgent: r.UserAgent(),
		}
		ctx := context.WithValue(r.Context(), ClientInfo, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientInfoFromContext(ctx context.Context) model.ClientInfo {
	info, _ := ctx.Value(ClientInfo).(model.ClientInfo)
	return info
}
