package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

const HeaderKey = "Idempotency-Key"

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(scope, subject, requestKey string) string {
	return fmt.Sprintf("idem:%s:%s:%s", scope, subject, requestKey)
}

// Seen claims key and reports whether it had already been claimed.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Release drops a claim so the request can be retried.
func (s *Store) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Middleware rejects a replayed Idempotency-Key with 409. subject scopes keys
// per caller (usually the authenticated user id). Requests without the header
// pass through, and a redis outage fails open. Keys of requests that did not
// succeed are released.
func (s *Store) Middleware(log *slog.Logger, scope string, subject func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqKey := r.Header.Get(HeaderKey)
			if reqKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := s.Key(scope, subject(r), reqKey)
			seen, err := s.Seen(r.Context(), key)
			if err != nil {
				log.Error("idempotency check failed", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if seen {
				log.Info("duplicate request rejected", "key", key)
				httpx.Error(w, r, log, apperr.Conflict("duplicate request for %s %q", HeaderKey, reqKey))
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if ww.Status() >= http.StatusBadRequest {
				if err := s.Release(context.WithoutCancel(r.Context()), key); err != nil {
					log.Error("idempotency release failed", "key", key, "err", err)
				}
			}
		})
	}
}
