package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTTL    = 24 * time.Hour
	tokenIssuer = "exercise_grid_go"
	// AccessSubject - субъект токена общего доступа к API.
	AccessSubject = "grid"
)

// ErrInvalidPassword - пароль доступа не подошел.
var ErrInvalidPassword = errors.New("invalid access password")

// Claims структура для JWT.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Service выдает и проверяет токены. Без хеша пароля проверка выключена.
type Service struct {
	key          []byte
	passwordHash []byte
	now          func() time.Time
}

// NewService создает сервис. secret обязателен, если задан passwordHash.
func NewService(secret, passwordHash string) (*Service, error) {
	if passwordHash != "" && secret == "" {
		return nil, fmt.Errorf("auth: секрет JWT не задан")
	}
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("auth: неверный bcrypt-хеш пароля: %w", err)
		}
	}
	return &Service{key: []byte(secret), passwordHash: []byte(passwordHash), now: time.Now}, nil
}

// Enabled сообщает, требует ли API токен.
func (s *Service) Enabled() bool {
	return s != nil && len(s.passwordHash) > 0
}

// CheckPassword сверяет пароль с хешем.
func (s *Service) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

// GenerateToken создает новый JWT.
func (s *Service) GenerateToken(scope string) (string, time.Time, error) {
	now := s.now()
	expirationTime := now.Add(tokenTTL)

	claims := &Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   AccessSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("could not sign token: %w", err)
	}
	return tokenString, expirationTime, nil
}

// ValidateToken проверяет JWT и возвращает claims, если токен валиден.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})

	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, fmt.Errorf("token is malformed")
			case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
				return nil, fmt.Errorf("token is expired or not active yet")
			}
		}
		return nil, fmt.Errorf("couldn't handle this token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	return claims, nil
}

// HashPassword возвращает bcrypt-хеш для GRID_ACCESS_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("HashPassword: %w", err)
	}
	return string(hash), nil
}
