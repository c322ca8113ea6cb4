package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/catalog-backend/pkg/config"
)

func TestIncrWithTTLArmsExpiryOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("mutation:10.0.0.1")

	for want := int64(1); want <= 3; want++ {
		got, err := client.IncrWithTTL(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("incr %d: %v", want, err)
		}
		if got != want {
			t.Fatalf("expected counter %d got %d", want, got)
		}
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expected one expiry, got %d", len(mock.expireCalls))
	}
	if mock.expireCalls[0].ttl != time.Minute {
		t.Fatalf("unexpected ttl %s", mock.expireCalls[0].ttl)
	}
}

func TestIncrWithTTLWithoutWindow(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}

	if _, err := client.IncrWithTTL(context.Background(), "k", 0); err != nil {
		t.Fatalf("incr: %v", err)
	}
	if len(mock.expireCalls) != 0 {
		t.Fatal("no expiry expected without a window")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://:pw@cache.internal:6380/2",
		DB:          5,
		PoolSize:    7,
		DialTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "cache.internal:6380" || opts.Password != "pw" {
		t.Fatalf("unexpected addr/password %s/%s", opts.Addr, opts.Password)
	}
	if opts.DB != 2 {
		t.Fatalf("url db must win, got %d", opts.DB)
	}
	if opts.PoolSize != 7 || opts.DialTimeout != 3*time.Second {
		t.Fatalf("pool settings not applied: %+v", opts)
	}

	opts, err = optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 1})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 1 {
		t.Fatalf("unexpected address options %+v", opts)
	}

	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
}

func TestGetBytesAndDel(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if err := client.Set(ctx, "catalog:cache:k", "payload", 10*time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	raw, err := client.GetBytes(ctx, "catalog:cache:k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(raw) != "payload" {
		t.Fatalf("expected stored payload, got %q", raw)
	}

	if err := client.Del(ctx, "catalog:cache:k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.GetBytes(ctx, "catalog:cache:k"); !IsNil(err) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.Incr(context.Background(), "x"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if err := client.Del(context.Background()); err != nil {
		t.Fatalf("deleting nothing should not fail: %v", err)
	}
}

func TestCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.LockKey("cron-worker:dev")

	if ok, err := client.SetNX(ctx, key, "owner-a", time.Minute); err != nil || !ok {
		t.Fatalf("setnx: ok=%v err=%v", ok, err)
	}
	removed, err := client.CompareAndDelete(ctx, key, "owner-b")
	if err != nil {
		t.Fatalf("compare and delete: %v", err)
	}
	if removed {
		t.Fatal("foreign owner must not release the lock")
	}
	removed, err = client.CompareAndDelete(ctx, key, "owner-a")
	if err != nil || !removed {
		t.Fatalf("owner release failed: removed=%v err=%v", removed, err)
	}
	if _, err := client.Get(ctx, key); !IsNil(err) {
		t.Fatalf("expected key gone, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.CacheKey("list", "3", "/api/products?page=1"); got != "catalog:cache:list:3:/api/products?page=1" {
		t.Fatalf("unexpected cache key %s", got)
	}
	if got := client.GenerationKey("list"); got != "catalog:gen:list" {
		t.Fatalf("unexpected generation key %s", got)
	}
	if got := client.RateLimitKey("scope"); got != "catalog:rate_limit:scope" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.LockKey("cron"); got != "catalog:lock:cron" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.CacheKey("detail", "", "7"); got != "catalog:cache:detail:7" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

type mockCmdable struct {
	data        map[string]string
	incr        map[string]int64
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if raw, ok := value.([]byte); ok {
		m.data[key] = string(raw)
		return redis.NewStatusResult("OK", nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, fmt.Errorf("unexpected script call"))
	}
	if script == incrWithExpiry {
		m.incr[keys[0]]++
		if m.incr[keys[0]] == 1 {
			ms, _ := args[0].(int64)
			m.expireCalls = append(m.expireCalls, expireCall{key: keys[0], ttl: time.Duration(ms) * time.Millisecond})
		}
		return redis.NewCmdResult(m.incr[keys[0]], nil)
	}
	if script != compareAndDelete {
		return redis.NewCmdResult(nil, fmt.Errorf("unknown script"))
	}
	if v, ok := m.data[keys[0]]; ok && v == fmt.Sprint(args[0]) {
		delete(m.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}
