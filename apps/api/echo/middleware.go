package echoapi

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/darulhuda/madrasa/core/auth"
)

// roleMiddleware lets through the users having one of roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// gateMiddleware requires the admin session of the request to be unlocked, sliding its idle timeout.
func gateMiddleware(gate *auth.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			ok, err := gate.Pass(ctx.Request().Context(), claims.SessionID)
			if err != nil {
				return errors.Wrap(err, "passing admin gate")
			}
			if !ok {
				return errGateLocked
			}
			return next(ctx)
		}
	}
}

const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter holds one token bucket per client IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	perMin   int
	lastGC   time.Time
}

func newIPRateLimiter(perMin int) *ipRateLimiter {
	return &ipRateLimiter{visitors: make(map[string]*visitor), perMin: perMin}
}

func (l *ipRateLimiter) limiter(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > limiterIdleTTL {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(l.visitors, k)
			}
		}
		l.lastGC = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(float64(l.perMin)/60.0), l.perMin)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// middleware answers 429 once a client exceeds perMin requests per minute. A non-positive perMin disables it.
func (l *ipRateLimiter) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if l.perMin <= 0 {
			return next
		}
		return func(ctx echo.Context) error {
			lim := l.limiter(ctx.RealIP(), time.Now())
			if !lim.Allow() {
				ctx.Response().Header().Set("Retry-After", "60")
				ctx.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(l.perMin))
				return errTooManyReqs
			}
			return next(ctx)
		}
	}
}
