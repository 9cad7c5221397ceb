package security

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter throttles per-client attempts on the entry endpoints.
// Parent codes and admin passwords are short enough to guess, so each
// client IP gets a budget of attempts that refills once per window.
type RateLimiter struct {
	clients map[string]*attemptBudget
	mu      sync.RWMutex
	rate    int
	window  time.Duration
}

type attemptBudget struct {
	remaining  int
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter allows rate attempts per window for each client IP
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*attemptBudget),
		rate:    rate,
		window:  window,
	}
	go rl.evictIdleClients()
	return rl
}

// Allow reports whether a client IP has attempt budget left, consuming
// one attempt when it does
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	budget, exists := rl.clients[ip]
	if !exists {
		budget = &attemptBudget{
			remaining:  rl.rate,
			lastRefill: time.Now(),
		}
		rl.clients[ip] = budget
	}
	rl.mu.Unlock()

	budget.mu.Lock()
	defer budget.mu.Unlock()

	now := time.Now()
	if now.Sub(budget.lastRefill) >= rl.window {
		budget.remaining = rl.rate
		budget.lastRefill = now
	}

	if budget.remaining > 0 {
		budget.remaining--
		return true
	}

	return false
}

// evictIdleClients drops clients that have been quiet for two full
// windows so the map does not grow with every IP ever seen
func (rl *RateLimiter) evictIdleClients() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, budget := range rl.clients {
			budget.mu.Lock()
			if now.Sub(budget.lastRefill) > rl.window*2 {
				delete(rl.clients, ip)
			}
			budget.mu.Unlock()
		}
		rl.mu.Unlock()
	}
}

// GetClientIP resolves the client address, preferring proxy headers over
// the raw RemoteAddr
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
