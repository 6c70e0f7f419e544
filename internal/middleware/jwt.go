package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"krypto_store/internal/models"
)

const claimsKey = "claims"

// Claims identify who is calling and which account they signed in to.
type Claims struct {
	Account string      `json:"account"`
	Actor   string      `json:"actor"`
	Role    models.Role `json:"role"`
	UserID  string      `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and checks HS256 tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

func (t *TokenIssuer) GenerateToken(account, actor string, role models.Role, userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		Account: account,
		Actor:   actor,
		Role:    role,
		UserID:  userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *TokenIssuer) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ActiveAccounter reports the account currently loaded in the ledger.
type ActiveAccounter interface {
	ActiveAccount() string
}

// RequireAuth ensures a valid JWT is present and was issued for the account
// that is loaded right now.
func RequireAuth(tokens *TokenIssuer, store ActiveAccounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, tokens, store) {
			c.Next()
		}
	}
}

// RequireAuthWithRole ensures the JWT is valid and carries one of roles.
func RequireAuthWithRole(tokens *TokenIssuer, store ActiveAccounter, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, tokens, store) {
			return
		}
		if claims := ClaimsFrom(c); !slices.Contains(roles, claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions", "kind": "forbidden"})
			return
		}
		c.Next()
	}
}

// authenticate stores the claims on c, or aborts and returns false.
func authenticate(c *gin.Context, tokens *TokenIssuer, store ActiveAccounter) bool {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header", "kind": "unauthorized"})
		return false
	}

	claims, err := tokens.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "kind": "unauthorized"})
		return false
	}
	if active := store.ActiveAccount(); active == "" || active != claims.Account {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Token account is not the active account", "kind": "no_active_account"})
		return false
	}

	c.Set(claimsKey, claims)
	return true
}

// ClaimsFrom returns the claims stored by RequireAuth, or nil.
func ClaimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
