package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/sgtreasury/tally/internal/logger"
	"gitlab.com/sgtreasury/tally/internal/service"
)

// SessionCookie carries the identity provider's session token.
const SessionCookie = "__session"

// SignInPath is where unauthenticated page loads are sent.
const SignInPath = "/sign-in"

var (
	// ErrMissingToken means no bearer header or session cookie was sent.
	ErrMissingToken = errors.New("missing session token")
	// ErrInvalidToken means the token failed verification.
	ErrInvalidToken = errors.New("invalid session token")
)

// Claims are the session token claims. Subject is the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 session tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier creates a verifier. An empty issuer skips the iss check.
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses the token and returns the actor it names.
func (v *TokenVerifier) Verify(token string) (service.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return service.Actor{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return service.Actor{}, ErrInvalidToken
	}
	return service.Actor{UserID: claims.Subject, Email: strings.ToLower(strings.TrimSpace(claims.Email))}, nil
}

// Sign issues a token for actor. It is used by tests and local tooling.
func (v *TokenVerifier) Sign(actor service.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: actor.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func tokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func isPublicPath(path string) bool {
	switch path {
	case SignInPath, "/sign-up", "/healthz", "/metrics", "/favicon.ico":
		return true
	}
	return strings.HasPrefix(path, SignInPath+"/") ||
		strings.HasPrefix(path, "/sign-up/") ||
		strings.HasPrefix(path, "/assets/")
}

// AuthGate puts the verified actor on the request context. Public paths
// pass through; other API calls get a 401 envelope and page loads are
// redirected to the sign-in page.
func AuthGate(v *TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := tokenFromRequest(r)
			err := ErrMissingToken
			var actor service.Actor
			if token != "" {
				actor, err = v.Verify(token)
			}
			if err != nil {
				logger.Log.Debug().Err(err).Str("path", r.URL.Path).Msg("Unauthenticated request")
				if strings.HasPrefix(r.URL.Path, "/api/") {
					respondError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				http.Redirect(w, r, SignInPath, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
		})
	}
}
