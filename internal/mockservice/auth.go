package mockservice

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/verustcode/reportviewer/consts"
	"github.com/verustcode/reportviewer/pkg/errors"
)

// TokenResponse is the OAuth2 token endpoint reply
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// oauthError writes an RFC 6749 error body
func oauthError(c *gin.Context, status int, code, description string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":             code,
		"error_description": description,
	})
}

// token handles POST /api/oauth/token (client credentials grant)
func (s *Service) token(c *gin.Context) {
	if grant := c.PostForm("grant_type"); grant != "client_credentials" {
		oauthError(c, http.StatusBadRequest, "unsupported_grant_type", "only client_credentials is supported")
		return
	}

	clientID, clientSecret, ok := c.Request.BasicAuth()
	if !ok {
		clientID = c.PostForm("client_id")
		clientSecret = c.PostForm("client_secret")
	}

	auth := s.cfg.Auth
	if clientID != auth.ClientID {
		s.log.Warn("Token request for unknown client", zap.String("client_id", clientID))
		oauthError(c, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(auth.ClientSecretHash), []byte(clientSecret)); err != nil {
		s.log.Warn("Token request with bad secret", zap.String("client_id", clientID))
		oauthError(c, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	}

	ttl := auth.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   clientID,
		Issuer:    consts.ServiceName,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(auth.JWTSecret))
	if err != nil {
		s.log.Error("Failed to sign token", zap.Error(err))
		_ = c.Error(errors.Wrap(errors.ErrCodeInternal, "failed to issue token", err))
		return
	}

	s.log.Debug("Token issued", zap.String("client_id", clientID))
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
	})
}

// ValidateToken checks a bearer token issued by the token endpoint and
// returns its subject. Implements middleware.TokenValidator.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	secret := s.cfg.Auth.JWTSecret
	if secret == "" {
		return "", fmt.Errorf("jwt secret not configured")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrSignatureInvalid
	}
	return claims.Subject, nil
}
