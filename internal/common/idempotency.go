package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader names the request header carrying the client key.
const IdempotencyHeader = "Idempotency-Key"

// Idem rejects replays of write requests carrying the same Idempotency-Key.
// Keys are scoped to the caller and route so two operators cannot collide.
// Claims go to Redis when R is set, otherwise to the Local cache.
type Idem struct {
	R     redis.UniversalClient
	Local *cache.Cache
	TTL   time.Duration
}

func idemKey(subject, method, path, key string) string {
	sum := sha256.Sum256([]byte(subject + "\x00" + method + "\x00" + path + "\x00" + key))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware enforces idempotency semantics for write endpoints. Requests
// without the header, or with no store configured, pass through.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || (i.R == nil && i.Local == nil) {
			next.ServeHTTP(w, r)
			return
		}
		ttl := i.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		subject, _ := Subject(r.Context())
		key := idemKey(subject, r.Method, r.URL.Path, header)

		if i.R == nil {
			if err := i.Local.Add(key, struct{}{}, ttl); err != nil {
				JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		ok, err := i.R.SetNX(r.Context(), key, "locked", ttl).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		defer func() {
			// the key must expire even if the handler panics
			_ = i.R.Expire(context.Background(), key, ttl).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
