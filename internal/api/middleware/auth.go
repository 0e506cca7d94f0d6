package middleware

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/tokencart/settlement/internal/domain"
	"github.com/tokencart/settlement/internal/logger"
)

const (
	AUTH_TYPE_KEY       = "auth_type"
	CALLER_IDENTITY_KEY = "caller_identity"
	JWT_CLAIMS_KEY      = "jwt_claims"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// JWTPublicKey is an RSA public key in PEM format; the token subject is
	// the caller's ledger identity
	JWTPublicKey string
	// APIKeyIdentities maps an API key to the ledger identity it
	// authenticates as (payment processor, administrator)
	APIKeyIdentities map[string]string
}

// AuthResult holds the result of authentication
type AuthResult struct {
	Success  bool
	AuthType string // "jwt" or "apikey"
	Claims   *jwt.RegisteredClaims
	Identity domain.Identity
	Error    error
}

// Authenticate validates the Authorization header and resolves the caller's
// ledger identity. Privileged handlers take the caller from this result,
// never from the request body.
func Authenticate(authHeader string, cfg AuthConfig) AuthResult {
	result := AuthResult{
		Success: false,
	}

	if authHeader == "" {
		result.Error = errors.New("missing Authorization header")
		return result
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		result.Error = errors.New("invalid Authorization header format")
		return result
	}

	authType := strings.ToLower(parts[0])
	credentials := parts[1]

	switch authType {
	case "bearer":
		claims, err := validateJWT(credentials, cfg.JWTPublicKey)
		if err != nil {
			result.Error = err
			return result
		}
		identity, err := domain.NewIdentity(claims.Subject)
		if err != nil {
			result.Error = fmt.Errorf("token subject is not a ledger identity: %w", err)
			return result
		}
		result.Success = true
		result.AuthType = "jwt"
		result.Claims = claims
		result.Identity = identity

	case "apikey":
		identity, err := resolveAPIKey(credentials, cfg.APIKeyIdentities)
		if err != nil {
			result.Error = err
			return result
		}
		result.Success = true
		result.AuthType = "apikey"
		result.Identity = identity

	default:
		result.Error = fmt.Errorf("unsupported authorization type: %s", authType)
		return result
	}

	return result
}

// Auth returns a gin middleware for authentication
// It supports both JWT (Bearer token) and API Key authentication
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		result := Authenticate(authHeader, cfg)

		if !result.Success {
			logger.Warn("Authentication failed",
				zap.Error(result.Error),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Authentication failed",
					"details": result.Error.Error(),
				},
			})
			return
		}

		c.Set(AUTH_TYPE_KEY, result.AuthType)
		c.Set(CALLER_IDENTITY_KEY, result.Identity)
		if result.Claims != nil {
			c.Set(JWT_CLAIMS_KEY, result.Claims)
		}
		logger.Debug("Authentication successful",
			zap.String("path", c.Request.URL.Path),
			zap.String("auth_type", result.AuthType),
			zap.String("caller", result.Identity.String()),
		)

		c.Next()
	}
}

// CallerIdentity returns the authenticated ledger identity stored by Auth
func CallerIdentity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(CALLER_IDENTITY_KEY)
	if !ok {
		return "", false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}

// validateJWT validates a JWT token with RSA signature and returns claims
func validateJWT(tokenString string, publicKeyPEM string) (*jwt.RegisteredClaims, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("JWT public key not configured")
	}

	publicKey, err := parseRSAPublicKey(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is RSA
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return publicKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	now := time.Now()

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(now) {
		return nil, errors.New("token has expired")
	}

	if claims.NotBefore != nil && claims.NotBefore.After(now) {
		return nil, errors.New("token not yet valid")
	}

	return claims, nil
}

// parseRSAPublicKey parses an RSA public key from PEM format
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing public key")
	}

	// Try parsing as PKIX (most common format)
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// Try parsing as PKCS1 format
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an RSA key")
	}

	return rsaKey, nil
}

// resolveAPIKey resolves an API key to its configured ledger identity
func resolveAPIKey(apiKey string, keyIdentities map[string]string) (domain.Identity, error) {
	if len(keyIdentities) == 0 {
		return "", errors.New("no API keys configured")
	}

	raw, ok := keyIdentities[apiKey]
	if !ok || apiKey == "" {
		return "", errors.New("invalid API key")
	}

	identity, err := domain.NewIdentity(raw)
	if err != nil {
		return "", fmt.Errorf("API key identity misconfigured: %w", err)
	}

	return identity, nil
}
