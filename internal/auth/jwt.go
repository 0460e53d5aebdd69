package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kotche/notes/internal/model"
)

// Claims are the fields of a provider-issued access token this service reads.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the verified caller.
type Identity struct {
	UserID model.UserID
	Email  string
}

// Verifier checks HS256 bearer tokens signed with the provider's secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// ParseToken validates signature and expiry and returns the caller. Every
// failure is reported as model.ErrUnauthorized.
func (v *Verifier) ParseToken(tokenStr string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", model.ErrUnauthorized, err)
	}
	if !token.Valid {
		return Identity{}, model.ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: subject is not a user id", model.ErrUnauthorized)
	}

	return Identity{UserID: userID, Email: claims.Email}, nil
}

// ParseHeader accepts an Authorization header value of the form "Bearer <token>".
func (v *Verifier) ParseHeader(header string) (Identity, error) {
	if header == "" {
		return Identity{}, fmt.Errorf("%w: missing authorization header", model.ErrUnauthorized)
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return Identity{}, fmt.Errorf("%w: malformed authorization header", model.ErrUnauthorized)
	}

	return v.ParseToken(strings.TrimSpace(parts[1]))
}
