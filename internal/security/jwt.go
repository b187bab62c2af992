package security

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"signature-web-server/config"
	"signature-web-server/internal/model"
	"signature-web-server/internal/util"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

type Claims struct {
	UserUUID         string `json:"user_uuid"`
	RefreshTokenUUID string `json:"refresh_token_id"`
	IsAdmin          bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

type JWTService struct {
	*config.JWTConfig
}

func NewJWTService(cfg *config.JWTConfig) *JWTService {
	return &JWTService{cfg}
}

// GenerateAccessRefreshTokens : access токен HS512 и связанный с ним refresh токен
func (service *JWTService) GenerateAccessRefreshTokens(userUUID string, isAdmin bool) (*model.TokensPair, *model.RefreshToken, error) {
	refreshToken, refreshTokenStr, err := GenerateRefreshToken()
	if err != nil {
		return nil, nil, util.LogError("[JWTService] ошибка генерации рефреш токена", err)
	}

	now := time.Now()
	refreshToken.UserUUID = userUUID
	refreshToken.ExpireAt = now.Add(service.RefreshTokenTTL.Duration).UTC()

	claims := Claims{
		UserUUID:         userUUID,
		RefreshTokenUUID: refreshToken.UUID,
		IsAdmin:          isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(service.AccessTokenTTL.Duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    service.Issuer,
		},
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	accessToken, err := jwtToken.SignedString([]byte(service.SecretKey))
	if err != nil {
		return nil, nil, util.LogError("[JWTService] ошибка подписи токена", err)
	}

	return &model.TokensPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenStr,
	}, refreshToken, nil
}

func GenerateRefreshToken() (*model.RefreshToken, string, error) {
	jwtTokenBytes := make([]byte, 32)
	_, err := rand.Read(jwtTokenBytes)
	if err != nil {
		return nil, "", util.LogError("ошибка генерации", err)
	}
	refreshTokenStr := base64.StdEncoding.EncodeToString(jwtTokenBytes)

	hashedToken, err := bcrypt.GenerateFromPassword([]byte(refreshTokenStr), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", util.LogError("ошибка хэширования", err)
	}

	// refreshTokenStr отдается клиенту
	// hashedToken сохраняется в БД
	return &model.RefreshToken{
		UUID:      uuid.New().String(),
		TokenHash: string(hashedToken),
		Used:      false,
	}, refreshTokenStr, nil
}

// ValidateJWT : проверяет подпись HS512 и срок действия
func (service *JWTService) ValidateJWT(jwtTokenStr string) (*Claims, error) {
	var claims = &Claims{}

	jwtToken, err := jwt.ParseWithClaims(jwtTokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS512.Alg() {
			return nil, fmt.Errorf("неверный способ подписи токена: %v", token.Header["alg"])
		}
		return []byte(service.SecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("невалидный токен: %w", err)
	}
	if !jwtToken.Valid {
		return nil, fmt.Errorf("невалидный токен")
	}

	return claims, nil
}

// RefreshTokenFinder : то, что нужно middleware от хранилища refresh токенов
type RefreshTokenFinder interface {
	FindByUUID(ctx context.Context, uuid string) (*model.RefreshToken, error)
}

// JWTMiddleware : пропускает запрос только с действующим access токеном,
// чей refresh токен ещё не использован
func JWTMiddleware(jwtService *JWTService, tokens RefreshTokenFinder) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(handleAuthentication(jwtService, tokens, next))
	}
}

func handleAuthentication(jwtService *JWTService, tokens RefreshTokenFinder, next http.Handler) func(writer http.ResponseWriter, request *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		authorizationHeader := request.Header.Get("Authorization")
		if !strings.HasPrefix(authorizationHeader, "Bearer ") {
			util.HandleErrorCode(writer, "unauthorized", "отсутствует Bearer токен", http.StatusUnauthorized)
			return
		}

		token := strings.TrimPrefix(authorizationHeader, "Bearer ")

		claims, err := jwtService.ValidateJWT(token)
		if err != nil {
			zap.L().Debug("невалидный токен", zap.Error(err))
			util.HandleErrorCode(writer, "unauthorized", "невалидный токен", http.StatusUnauthorized)
			return
		}

		refreshToken, err := tokens.FindByUUID(request.Context(), claims.RefreshTokenUUID)
		if err != nil {
			zap.L().Debug("рефреш токен не найден", zap.Error(err))
			util.HandleErrorCode(writer, "unauthorized", "сессия не найдена", http.StatusUnauthorized)
			return
		}

		if refreshToken.Used {
			util.HandleErrorCode(writer, "unauthorized", "сессия завершена", http.StatusUnauthorized)
			return
		}

		req := request.WithContext(context.WithValue(request.Context(), UserContextKey, claims))
		next.ServeHTTP(writer, req)
	}
}

// RequireAdmin : вызывается после JWTMiddleware
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := GetClaimsFromContext(r.Context())
		if err != nil {
			util.HandleErrorCode(w, "unauthorized", "пользователь не авторизован", http.StatusUnauthorized)
			return
		}
		if !claims.IsAdmin {
			util.HandleErrorCode(w, "forbidden", "требуются права администратора", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(UserContextKey).(*Claims)
	if !ok || claims == nil {
		return nil, model.ErrUnauthorized
	}
	return claims, nil
}

// ActorFromRequest : личность вызывающего для передачи в сервисы
func ActorFromRequest(r *http.Request) (model.Actor, error) {
	claims, err := GetClaimsFromContext(r.Context())
	if err != nil {
		return model.Actor{}, err
	}
	return model.Actor{
		UserUUID:  claims.UserUUID,
		IsAdmin:   claims.IsAdmin,
		IP:        ClientIP(r),
		UserAgent: r.UserAgent(),
	}, nil
}
