package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/campuspoints/points-api/internal/pkg/response"
)

// RateLimit returns middleware that limits requests per client IP using a
// Redis counter with a fixed window. Disabled when Redis is not configured.
func RateLimit(rdb *redis.Client, name string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rdb == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("ratelimit:%s:%s", name, getClientIP(r))

			count, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				// Redis trouble must not take the endpoint down
				log.Warn().Err(err).Str("key", key).Msg("rate limit counter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(r.Context(), key, window)
			}

			if count > int64(limit) {
				response.TooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
