package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-GarageBooking/internal/api/handlers"
	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

const (
	msgUnauthorized = "требуется авторизация"
	msgInvalidToken = "недействительный токен"
	msgForbidden    = "доступ запрещен"
)

var ErrInvalidToken = errors.New("middleware: invalid token")

type principalKey struct{}

// Claims содержимое токена: sub = ID пользователя, role = роль
type Claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

type Logger interface {
	Debug(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Auth проверяет HS256 токен из заголовка Authorization и кладёт Principal в контекст
type Auth struct {
	secret []byte
	logger Logger
}

func NewAuth(secret string, logger Logger) *Auth {
	return &Auth{secret: []byte(secret), logger: logger}
}

// Middleware отклоняет запросы без валидного токена
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			a.logger.Debug("Auth: missing bearer token: %s %s", r.Method, r.URL.Path)
			handlers.RespondUnauthorized(w, msgUnauthorized)
			return
		}

		principal, err := a.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			a.logger.Warn("Auth: rejected token: %s %s: %v", r.Method, r.URL.Path, err)
			handlers.RespondUnauthorized(w, msgInvalidToken)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// Parse проверяет подпись и срок действия токена
func (a *Auth) Parse(tokenString string) (domain.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.Principal{}, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return domain.Principal{}, fmt.Errorf("%w: subject %q is not a user id", ErrInvalidToken, claims.Subject)
	}

	role := domain.Role(claims.Role)
	if !role.IsValid() {
		return domain.Principal{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return domain.Principal{UserID: userID, Role: role}, nil
}

// Sign выпускает токен для principal (используется в тестах и локальных утилитах)
func (a *Auth) Sign(principal domain.Principal, expiresAt int64) (string, error) {
	claims := Claims{
		Role: string(principal.Role),
		StandardClaims: jwt.StandardClaims{
			Subject:   strconv.FormatInt(principal.UserID, 10),
			ExpiresAt: expiresAt,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// RequireRole пропускает только пользователей с одной из ролей
func RequireRole(roles ...domain.Role) mux.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				handlers.RespondUnauthorized(w, msgUnauthorized)
				return
			}
			if _, ok := allowed[principal.Role]; !ok {
				handlers.RespondForbidden(w, msgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal кладёт пользователя в контекст
func WithPrincipal(ctx context.Context, principal domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// GetPrincipal извлекает пользователя, положенного Auth
func GetPrincipal(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(domain.Principal)
	return principal, ok
}
