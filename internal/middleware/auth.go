package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// DevUserHeader carries the user id when DEV_MODE bypasses token checks.
const DevUserHeader = "X-Dev-User-Id"

type claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 bearer tokens whose subject is the user id.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (v *JWTVerifier) Verify(_ context.Context, credential string) (models.Identity, error) {
	var c claims
	token, err := v.parser.ParseWithClaims(credential, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return models.Identity{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	if c.Subject == "" {
		return models.Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return models.Identity{UserID: models.UserID(c.Subject), Email: c.Email, Name: c.Name}, nil
}

// IssueToken signs an HS256 token for id that expires after ttl.
func IssueToken(secret []byte, id models.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(id.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
}

type ctxKey int

const (
	identityKey ctxKey = iota
	holderKey
)

// identityHolder lets an outer middleware see the user authenticated by an
// inner one.
type identityHolder struct {
	user models.UserID
}

func withHolder(ctx context.Context, h *identityHolder) context.Context {
	return context.WithValue(ctx, holderKey, h)
}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	if h, ok := ctx.Value(holderKey).(*identityHolder); ok {
		h.user = id.UserID
	}
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}

// UserID returns the authenticated user, or "" outside RequireAuth.
func UserID(ctx context.Context) models.UserID {
	id, _ := IdentityFrom(ctx)
	return id.UserID
}

type AuthMiddleware struct {
	verifier models.Verifier
	devMode  bool
	log      *zap.Logger
}

func NewAuthMiddleware(verifier models.Verifier, devMode bool, log *zap.Logger) *AuthMiddleware {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthMiddleware{verifier: verifier, devMode: devMode, log: log}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.devMode {
			if dev := strings.TrimSpace(r.Header.Get(DevUserHeader)); dev != "" {
				id := models.Identity{
					UserID: models.UserID(dev),
					Email:  dev + "@dev.local",
					Name:   "Dev User " + dev,
				}
				m.log.Debug("dev mode identity", zap.String("user_id", dev))
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
				return
			}
		}

		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			unauthorized(w, "Missing or invalid authorization header")
			return
		}
		id, err := m.verifier.Verify(r.Context(), strings.TrimPrefix(authz, "Bearer "))
		if err != nil {
			m.log.Debug("token rejected", zap.Error(err))
			unauthorized(w, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "data": nil, "message": msg})
}
