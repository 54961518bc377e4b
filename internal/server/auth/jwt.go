// Package auth issues and verifies signed bearer tokens and decides whether a
// token holder may touch an owned resource.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/common"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// PurposePasswordReset scopes a token to the password-reset flow.
const PurposePasswordReset = "password_reset"

// Identity is what a verified token says about its bearer.
type Identity struct {
	UserID string
	Email  string
	Role   models.Role
}

// Claims is the JWT payload: the registered claims plus the identity.
// Purpose is empty for access tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Purpose string `json:"purpose,omitempty"`
}

// TokenService signs and verifies HS256 tokens. It holds only the secret,
// which is copied at construction and never changed afterwards.
type TokenService struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

func NewTokenService(secret []byte, validity time.Duration) *TokenService {
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenService{secret: key, validity: validity, now: time.Now}
}

// Validity is how long issued access tokens stay valid.
func (s *TokenService) Validity() time.Duration { return s.validity }

// Issue returns a signed access token for id.
func (s *TokenService) Issue(id Identity) (string, error) {
	return s.sign(id, "", s.validity)
}

// IssuePurpose returns a token usable only for purpose, valid for validity.
func (s *TokenService) IssuePurpose(id Identity, purpose string, validity time.Duration) (string, error) {
	if purpose == "" {
		return "", errors.New("purpose is required")
	}
	return s.sign(id, purpose, validity)
}

// Verify checks signature, expiry and shape of an access token.
func (s *TokenService) Verify(token string) (*Identity, error) {
	return s.parse(token, "")
}

// VerifyPurpose is Verify for tokens issued by IssuePurpose.
func (s *TokenService) VerifyPurpose(token, purpose string) (*Identity, error) {
	if purpose == "" {
		return nil, common.ErrInvalidToken
	}
	return s.parse(token, purpose)
}

func (s *TokenService) sign(id Identity, purpose string, validity time.Duration) (string, error) {
	if !id.Role.Valid() {
		return "", fmt.Errorf("cannot issue token: unknown role %q", id.Role)
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UserID:  id.UserID,
		Email:   id.Email,
		Role:    string(id.Role),
		Purpose: purpose,
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func (s *TokenService) parse(tokenString, purpose string) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: wrong token purpose", common.ErrInvalidToken)
	}

	role, err := models.ParseRole(claims.Role)
	if err != nil || claims.UserID == "" {
		return nil, fmt.Errorf("%w: bad identity claims", common.ErrInvalidToken)
	}

	return &Identity{UserID: claims.UserID, Email: claims.Email, Role: role}, nil
}
