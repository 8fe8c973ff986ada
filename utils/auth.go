package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"tradedash/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/pbkdf2"
)

// --- Password Hashing ---

// Hashing parameters. PBKDF2-SHA256 keeps the stored credential as a
// separate (hash, salt) pair of hex strings.
const (
	hashIterations = 100_000
	hashKeyLength  = 32
	saltByteLength = 16
)

// HashPassword derives a hash for the given password. If salt is empty a
// fresh random salt is generated. Both the hash and the salt are returned
// as hex strings and must be stored together.
func HashPassword(password, salt string) (string, string, error) {
	if salt == "" {
		saltBytes := make([]byte, saltByteLength)
		if _, err := rand.Read(saltBytes); err != nil {
			log.Printf("ERROR: Failed to generate password salt: %v", err)
			return "", "", fmt.Errorf("failed to generate salt: %w", err)
		}
		salt = hex.EncodeToString(saltBytes)
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), hashIterations, hashKeyLength, sha256.New)
	return hex.EncodeToString(key), salt, nil
}

// VerifyPassword checks a password against a stored hash and salt.
// Returns false (never an error) when the stored material is absent.
func VerifyPassword(password, storedHash, salt string) bool {
	if storedHash == "" || salt == "" {
		return false
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), hashIterations, hashKeyLength, sha256.New)
	return hmac.Equal([]byte(hex.EncodeToString(key)), []byte(storedHash))
}

// --- JWT Session Handling ---

// SessionClaims defines the JWT claims carried by a dashboard session.
// A session is created at login and destroyed at logout; every request
// resolves its profile from these claims, never from ambient state.
type SessionClaims struct {
	SessionID  string `json:"session_id"` // Dashless UUID
	Profile    string `json:"profile"`
	SuperAdmin bool   `json:"super_admin"`
	jwt.RegisteredClaims
}

// GenerateSessionToken creates a signed session token for the given profile.
func GenerateSessionToken(profile string, superAdmin bool, cfg *config.Config) (string, error) {
	if cfg.JwtSecret == "" {
		log.Println("CRITICAL: JWT Secret is empty. Cannot generate token.")
		return "", errors.New("JWT secret is not configured")
	}

	expirationTime := time.Now().Add(cfg.TokenLifetime)
	claims := &SessionClaims{
		SessionID:  GenerateDashlessUUID(),
		Profile:    profile,
		SuperAdmin: superAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "tradedash",
			Subject:   profile,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JwtSecret))
	if err != nil {
		log.Printf("ERROR: Failed to sign session token: %v", err)
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateSessionToken parses and validates a session token string.
// Returns the claims if valid, otherwise returns an error.
func ValidateSessionToken(tokenString string, cfg *config.Config) (*SessionClaims, error) {
	if cfg.JwtSecret == "" {
		log.Println("CRITICAL: JWT Secret is empty. Cannot validate token.")
		return nil, errors.New("JWT secret is not configured")
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.JwtSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Printf("INFO: Session validation failed: token expired")
			return nil, errors.New("token has expired")
		}
		log.Printf("WARN: Session validation failed: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		log.Printf("WARN: Session validation failed: token marked as invalid")
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// AuthMiddleware creates a Gin middleware function to protect routes.
// It validates the session token from the Authorization header and stores
// the session claims in the request context.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			GinUnauthorized(c, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			GinError(c, http.StatusBadRequest, "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := ValidateSessionToken(parts[1], cfg)
		if err != nil {
			GinUnauthorized(c, fmt.Sprintf("Invalid token: %v", err))
			return
		}

		c.Set("sessionProfile", claims.Profile)
		c.Set("superAdmin", claims.SuperAdmin)
		c.Set("sessionID", claims.SessionID)

		c.Next()
	}
}

// AdminOnly is a middleware that rejects sessions without the super-admin
// role. Must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("superAdmin") {
			GinForbidden(c, "Super admin privileges required")
			return
		}
		c.Next()
	}
}

// SessionProfile returns the profile name bound to the current session.
func SessionProfile(c *gin.Context) string {
	return c.GetString("sessionProfile")
}

// IsSuperAdmin reports whether the current session has the super-admin role.
func IsSuperAdmin(c *gin.Context) bool {
	return c.GetBool("superAdmin")
}
