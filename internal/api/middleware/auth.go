package middleware

import (
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-name-registry/internal/api/shared/errors"
	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/logger"
)

const (
	CALLER_KEY     = "caller"
	JWT_CLAIMS_KEY = "jwt_claims"

	API_KEY_HEADER = "X-API-Key"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string // RSA public key in PEM format
	APIKeys      []string
}

// Authenticator verifies caller tokens and admin API keys
type Authenticator struct {
	publicKey *rsa.PublicKey
	apiKeys   [][]byte
}

// NewAuthenticator parses the configured public key once.
// An empty key leaves JWT authentication disabled and every bearer token is rejected.
func NewAuthenticator(cfg AuthConfig) (*Authenticator, error) {
	a := &Authenticator{}
	if cfg.JWTPublicKey != "" {
		key, err := parseRSAPublicKey(cfg.JWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		a.publicKey = key
	}
	for _, k := range cfg.APIKeys {
		if k != "" {
			a.apiKeys = append(a.apiKeys, []byte(k))
		}
	}
	return a, nil
}

// AuthResult holds the result of authentication
type AuthResult struct {
	Caller common.Address
	Claims *jwt.RegisteredClaims
}

// Authenticate validates a "Bearer <jwt>" Authorization header. The subject
// claim must be a hex address, which becomes the caller.
func (a *Authenticator) Authenticate(authHeader string) (*AuthResult, error) {
	if authHeader == "" {
		return nil, errors.New("missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return nil, errors.New("invalid Authorization header format")
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return nil, fmt.Errorf("unsupported authorization type: %s", parts[0])
	}

	claims, err := a.validateJWT(parts[1])
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(claims.Subject) {
		return nil, fmt.Errorf("subject is not an address: %q", claims.Subject)
	}
	caller := common.HexToAddress(claims.Subject)
	if domain.IsZeroAddress(caller) {
		return nil, errors.New("subject is the zero address")
	}
	return &AuthResult{Caller: caller, Claims: claims}, nil
}

// Auth returns a gin middleware that requires a valid JWT and stores the caller in the context
func Auth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := a.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		setCaller(c, result)
		c.Next()
	}
}

// OptionalAuth authenticates the caller when an Authorization header is present.
// Anonymous requests proceed with the zero caller.
func OptionalAuth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		result, err := a.Authenticate(header)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		setCaller(c, result)
		c.Next()
	}
}

// APIKeyAuth requires one of the configured API keys in the X-API-Key header
func APIKeyAuth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.validateAPIKey(c.GetHeader(API_KEY_HEADER)); err != nil {
			abortUnauthorized(c, err)
			return
		}
		c.Next()
	}
}

// Caller returns the authenticated caller, or the zero address for anonymous requests
func Caller(c *gin.Context) common.Address {
	if v, ok := c.Get(CALLER_KEY); ok {
		if addr, ok := v.(common.Address); ok {
			return addr
		}
	}
	return common.Address{}
}

func setCaller(c *gin.Context, result *AuthResult) {
	c.Set(CALLER_KEY, result.Caller)
	c.Set(JWT_CLAIMS_KEY, result.Claims)
	c.Request = c.Request.WithContext(logger.WithFields(c.Request.Context(), zap.String("caller", result.Caller.Hex())))
	logger.DebugCtx(c.Request.Context(), "JWT authentication successful",
		zap.String("path", c.Request.URL.Path),
	)
}

func abortUnauthorized(c *gin.Context, err error) {
	logger.WarnCtx(c.Request.Context(), "Authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("client_ip", c.ClientIP()),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized, apierrors.NewUnauthorizedError("Authentication failed", err.Error()))
}

// validateJWT validates a JWT token with RSA signature and returns claims
func (a *Authenticator) validateJWT(tokenString string) (*jwt.RegisteredClaims, error) {
	if a.publicKey == nil {
		return nil, errors.New("JWT public key not configured")
	}

	// Expiry and not-before are checked by the parser
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
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

// validateAPIKey validates an API key in constant time
func (a *Authenticator) validateAPIKey(apiKey string) error {
	if len(a.apiKeys) == 0 {
		return errors.New("no API keys configured")
	}
	if apiKey == "" {
		return fmt.Errorf("missing %s header", API_KEY_HEADER)
	}
	for _, k := range a.apiKeys {
		if subtle.ConstantTimeCompare(k, []byte(apiKey)) == 1 {
			return nil
		}
	}
	return errors.New("invalid API key")
}
