package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agrolease/agrolease-backend/api/responses"
	pkgerrors "github.com/agrolease/agrolease-backend/pkg/errors"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	WindowRemaining(ctx context.Context, scope string) (time.Duration, error)
}

// RateLimitPolicy throttles one auth endpoint. Zero limits disable that
// counter; a zero window disables the policy.
type RateLimitPolicy struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

// counter is one throttled dimension of a request.
type counter struct {
	kind  string
	value string
	limit int
}

func (p RateLimitPolicy) scope(c counter) string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		name = "auth"
	}
	return c.kind + ":" + name + ":" + c.value
}

// AuthRateLimit counts each request against the client IP and, when the JSON
// body carries one, the hashed email. The email counter stops a single
// account being sprayed from many addresses.
func AuthRateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || policy.Window <= 0 || (policy.PerIP <= 0 && policy.PerEmail <= 0) {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			counters, err := countersFor(r, policy)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			for _, c := range counters {
				scope := policy.scope(c)
				allowed, hits, err := store.FixedWindowAllow(ctx, scope, int64(c.limit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":   policy.Name,
							"counter":  c.kind,
							"key":      c.value,
							"attempts": hits,
							"limit":    c.limit,
						}), "auth.rate_limited")
					}
					w.Header().Set("Retry-After", retryAfter(ctx, store, scope, policy.Window))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// countersFor leaves r.Body readable for the next handler.
func countersFor(r *http.Request, policy RateLimitPolicy) ([]counter, error) {
	var out []counter
	if ip := clientIP(r); policy.PerIP > 0 && ip != "" {
		out = append(out, counter{kind: "ip", value: ip, limit: policy.PerIP})
	}
	if policy.PerEmail <= 0 || r.Body == nil {
		return out, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var creds struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &creds) == nil {
		if email := strings.ToLower(strings.TrimSpace(creds.Email)); email != "" {
			out = append(out, counter{kind: "email", value: digest([]byte(email)), limit: policy.PerEmail})
		}
	}
	return out, nil
}

// retryAfter is in whole seconds, rounded up. The full window is the fallback
// when the store cannot say.
func retryAfter(ctx context.Context, store rateLimiterStore, scope string, window time.Duration) string {
	wait := window
	if remaining, err := store.WindowRemaining(ctx, scope); err == nil && remaining > 0 {
		wait = remaining
	}
	return strconv.Itoa(int(math.Ceil(wait.Seconds())))
}

// clientIP trusts the first X-Forwarded-For hop; the API runs behind a load
// balancer that sets it.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
