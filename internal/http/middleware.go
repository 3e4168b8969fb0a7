package http

import (
	"net/http"
	"strings"

	"painel/internal/auth"
	plog "painel/internal/log"
)

// authenticate resolves the bearer token into the request user.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, auth.ErrMissingToken)
			return
		}
		userID, err := s.deps.Auth.Validate(token)
		if err != nil {
			plog.FromContext(r.Context()).Debug("Rejected token",
				plog.FieldComponent, plog.ComponentAuth,
				plog.FieldError, err)
			writeError(w, r, err)
			return
		}
		ctx := auth.WithUser(r.Context(), userID)
		ctx = plog.NewContext(ctx, plog.FromContext(ctx).WithUser(userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// limitWrites rate limits mutating requests per user. Reads pass through.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.rateKey, func(w http.ResponseWriter, r *http.Request) {
		plog.FromContext(r.Context()).Warn("Rate limit exceeded",
			plog.FieldComponent, plog.ComponentRateLimit,
			plog.FieldMethod, r.Method,
			plog.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "muitas requisições, tente novamente mais tarde"})
	})(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

func (s *Server) rateKey(r *http.Request) string {
	if userID, ok := auth.UserFrom(r.Context()); ok {
		return "user:" + userID
	}
	return "ip:" + s.detector.ClientIP(r)
}

// userID is only called behind authenticate.
func userID(r *http.Request) string {
	id, _ := auth.UserFrom(r.Context())
	return id
}
