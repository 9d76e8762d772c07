package middlewares

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"wagerd/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const IdempotencyHeader = "Idempotency-Key"

type IdempotencyRecord struct {
	RequestHash string `json:"request_hash"`
	Done        bool   `json:"done"`
	Status      int    `json:"status,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// IdempotencyStore keeps the first response seen for a key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	// Reserve claims key for requestHash. It reports false when the key is
	// already taken.
	Reserve(ctx context.Context, key, requestHash string, ttl time.Duration) (bool, error)
	Complete(ctx context.Context, key string, rec IdempotencyRecord, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type RedisIdempotency struct {
	client *redis.Client
	prefix string
}

func NewRedisIdempotency(client *redis.Client) *RedisIdempotency {
	return &RedisIdempotency{client: client, prefix: "wagerd:idem:"}
}

func (r *RedisIdempotency) Get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RedisIdempotency) Reserve(ctx context.Context, key, requestHash string, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(IdempotencyRecord{RequestHash: requestHash})
	if err != nil {
		return false, err
	}
	return r.client.SetNX(ctx, r.prefix+key, raw, ttl).Result()
}

func (r *RedisIdempotency) Complete(ctx context.Context, key string, rec IdempotencyRecord, ttl time.Duration) error {
	rec.Done = true
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, raw, ttl).Err()
}

func (r *RedisIdempotency) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Idempotency replays the stored response when a request repeats its
// Idempotency-Key. A key reused with a different request is rejected.
// Responses with a 5xx status are not kept.
func Idempotency(store IdempotencyStore, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(IdempotencyHeader)
		if store == nil || key == "" {
			return c.Next()
		}

		ctx := c.UserContext()
		scoped := string(Caller(c)) + ":" + key
		hash := requestHash(c)

		rec, err := store.Get(ctx, scoped)
		if err != nil {
			log.Warnf("⚠️ idempotency lookup %s: %v", scoped, err)
			return c.Next()
		}
		if rec != nil {
			return replay(c, rec, hash)
		}

		reserved, err := store.Reserve(ctx, scoped, hash, ttl)
		if err != nil {
			log.Warnf("⚠️ idempotency reserve %s: %v", scoped, err)
			return c.Next()
		}
		if !reserved {
			return helpers.JSONErrorStatus(c, fiber.StatusConflict, "IDEMPOTENCY_IN_PROGRESS")
		}

		if err := c.Next(); err != nil {
			_ = store.Release(ctx, scoped)
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			_ = store.Release(ctx, scoped)
			return nil
		}
		body := append([]byte(nil), c.Response().Body()...)
		if err := store.Complete(ctx, scoped, IdempotencyRecord{RequestHash: hash, Status: status, Body: body}, ttl); err != nil {
			log.Warnf("⚠️ idempotency complete %s: %v", scoped, err)
		}
		return nil
	}
}

func replay(c *fiber.Ctx, rec *IdempotencyRecord, hash string) error {
	if rec.RequestHash != hash {
		return helpers.JSONErrorStatus(c, fiber.StatusConflict, "IDEMPOTENCY_CONFLICT")
	}
	if !rec.Done {
		return helpers.JSONErrorStatus(c, fiber.StatusConflict, "IDEMPOTENCY_IN_PROGRESS")
	}
	c.Set("Idempotent-Replayed", "true")
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(rec.Status).Send(rec.Body)
}

func requestHash(c *fiber.Ctx) string {
	h := sha256.New()
	h.Write([]byte(c.Method()))
	h.Write([]byte{0})
	h.Write([]byte(c.Path()))
	h.Write([]byte{0})
	h.Write(c.Body())
	return hex.EncodeToString(h.Sum(nil))
}
