package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "github.com/alangunning/nomulus/pkg/domain"
	dErrors "github.com/alangunning/nomulus/pkg/domain-errors"
)

// Claims are the JWT claims of a registrar session token.
type Claims struct {
	RegistrarID string `json:"registrar_id"`
	SessionID   string `json:"session_id"`
	jwt.RegisteredClaims
}

// JWTService issues and validates registrar session tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateSessionToken signs a token identifying registrarID for expiresIn.
func (s *JWTService) GenerateSessionToken(
	registrarID id.RegistrarID,
	sessionID uuid.UUID,
	expiresIn time.Duration) (string, error) {
	if registrarID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "registrar id is required")
	}
	now := time.Now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegistrarID: registrarID.String(),
		SessionID:   sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   registrarID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if _, err := id.ParseRegistrarID(claims.RegistrarID); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
