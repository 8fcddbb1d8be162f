package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// AccountKey is the gin context key the identity middleware stores the
// caller account under.
const AccountKey = "account"

// Identity extracts the caller account from the X-Account header. Real
// signature verification is the hosting platform's job; this stands in for
// that collaborator so handlers can treat identity as established.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := c.GetHeader("X-Account")
		if account == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Account header required"})
			return
		}
		c.Set(AccountKey, account)
		c.Next()
	}
}

// RequireOperator rejects callers other than the exchange operator.
func RequireOperator(operator string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(AccountKey) != operator {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "operator account required"})
			return
		}
		c.Next()
	}
}

// RateLimiter enforces a minimum interval between requests per account.
type RateLimiter struct {
	clients map[string]time.Time
	mu      sync.Mutex
	limit   time.Duration
}

func NewRateLimiter(limit time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]time.Time),
		limit:   limit,
	}
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := c.GetString(AccountKey)
		r.mu.Lock()
		last, exists := r.clients[account]
		if exists && time.Since(last) < r.limit {
			r.mu.Unlock()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		r.clients[account] = time.Now()
		r.mu.Unlock()
		c.Next()
	}
}
