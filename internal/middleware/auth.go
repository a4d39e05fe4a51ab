package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/liftlog-app/liftlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=auth_mocks_test.go -package=middleware_test

type loginChecker interface {
	IsLogged(ctx context.Context, token string) (bool, error)
}

// sessionGate reports whether a user session is currently active. While no
// user is logged in, the service runs against the local store only, and the
// workout endpoints stay open.
type sessionGate interface {
	Authenticated() bool
}

type AuthMiddlewareHandler struct {
	loginChecker loginChecker
	sessionGate  sessionGate
	allowedPaths map[string]bool
}

func NewAuthMiddlewareHandler(
	loginChecker loginChecker,
	sessionGate sessionGate,
) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		loginChecker: loginChecker,
		sessionGate:  sessionGate,
		allowedPaths: map[string]bool{
			"/":         true,
			"/version":  true,
			"/a/login":  true,
			"/a/logout": true,
		},
	}
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.allowedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			// without an active session there is no token to check the
			// workout requests against, they go straight to the local store
			if strings.HasPrefix(r.URL.Path, "/workouts") && !h.sessionGate.Authenticated() {
				span.SetStatus(codes.Ok, "local-mode")
				next.ServeHTTP(w, r)
				return
			}

			// a non-standard req. header is set, and thus - browser makes a preflight/OPTIONS request:
			//	https://developer.mozilla.org/en-US/docs/Web/HTTP/CORS#preflighted_requests
			// TODO: use Authorization header, not this custom one
			authToken := r.Header.Get("X-LIFTLOG-TOKEN")

			if authToken == "" {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			isLogged, err := h.loginChecker.IsLogged(ctx, authToken)
			if err != nil {
				log.Errorf("[failed login check] => %s: %s", r.URL.Path, err)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "check-logged-err")
				span.RecordError(err)
				return
			}
			if !isLogged {
				log.Tracef("[invalid token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "not-logged")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r)
		})
	}
}
