// Package testutil holds shared helpers for tests that need Redis or signed
// session credentials.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TestingTB is the subset of testing.TB the helpers need.
type TestingTB interface {
	Helper()
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
	Cleanup(func())
}

const tokenSecret = "testutil-secret"

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes"
}

func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }

// FixedTimeFunc returns a function that always returns the same time.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time {
		return t
	}
}

// TestTime returns a fixed time for testing.
func TestTime() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

// SignedToken mints an HS256 session credential for userID expiring at exp.
func SignedToken(t TestingTB, userID string, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": exp.Unix(),
	}).SignedString([]byte(tokenSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// TokenExpiry reads the exp claim of token without verifying the signature.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// RedisAddr returns the first answering Redis address: REDIS_ADDR, then the
// compose service name, then localhost.
func RedisAddr(t TestingTB) (string, bool) {
	t.Helper()
	candidates := []string{"redis:6379", "localhost:6379", "localhost:56379"}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		candidates = []string{addr}
	}
	for _, addr := range candidates {
		err := pingRedis(addr)
		if err == nil {
			return addr, true
		}
		t.Logf("redis not available at %s: %v", addr, err)
	}
	return "", false
}

func pingRedis(addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

// RedisNamespace is a client plus a key prefix owned by a single test. Every key
// under Prefix is deleted when the test ends, so tests can share one database.
type RedisNamespace struct {
	Client *redis.Client
	Prefix string
}

// SetupTestRedis connects to the test Redis and reserves a fresh namespace.
// The test is skipped when Redis is unreachable unless TEST_REQUIRE_REDIS is set.
func SetupTestRedis(t TestingTB) RedisNamespace {
	t.Helper()

	addr, ok := RedisAddr(t)
	if !ok {
		if requireRedis() {
			t.Fatal("Redis not available for testing")
		}
		t.Skip("Redis not available for testing")
	}

	db := 0
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			db = i
		}
	}
	ns := RedisNamespace{
		Client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		Prefix: "vaultline:test:" + uuid.NewString()[:8] + ":",
	}
	t.Cleanup(func() {
		if err := DropNamespace(ns); err != nil {
			t.Logf("warning: drop redis namespace %s: %v", ns.Prefix, err)
		}
		if err := ns.Client.Close(); err != nil {
			t.Logf("warning: close redis client: %v", err)
		}
	})
	return ns
}

// DropNamespace deletes every key under ns.Prefix.
func DropNamespace(ns RedisNamespace) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	iter := ns.Client.Scan(ctx, 0, ns.Prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", ns.Prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	return ns.Client.Del(ctx, keys...).Err()
}
