package middleware

import (
	"crypto/rsa"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/pkg/logger"
)

// AccessClaims is the token payload the identity provider signs for us.
type AccessClaims struct {
	Role         string `json:"role"`
	DepartmentID string `json:"department_id,omitempty"`
	jwt.RegisteredClaims
}

// Auth verifies the RS256 bearer token and attaches the resulting
// principal to the request context. Requests without a valid token get 401.
func Auth(publicKey *rsa.PublicKey, lg *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeUnauthorized(w, "missing authorization token")
				return
			}

			var claims AccessClaims
			parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return publicKey, nil
			})
			if err != nil || !parsed.Valid {
				lg.Warn("token validation failed", "error", err)
				writeUnauthorized(w, "invalid token")
				return
			}

			role := internal.Role(claims.Role)
			if role != internal.RoleAdmin {
				role = internal.RoleEmployee
			}
			principal := internal.Principal{
				UserID:       claims.Subject,
				Role:         role,
				DepartmentID: claims.DepartmentID,
			}

			ctx := internal.ContextWithPrincipal(r.Context(), principal)
			ctx = logger.With(ctx, "user_id", principal.UserID, "role", string(principal.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
