package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c Cache = Noop{}
	if err := c.Set(ctx, Stock, "levels", []int{1, 2}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got []int
	hit, err := c.Get(ctx, Stock, "levels", &got)
	if err != nil || hit {
		t.Errorf("Get = (%v, %v), want miss", hit, err)
	}
}

func TestConnect_EmptyURLDisablesCache(t *testing.T) {
	c, err := Connect("", time.Minute)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, ok := c.(Noop); !ok {
		t.Errorf("Connect(\"\") = %T, want Noop", c)
	}
}

func TestKey(t *testing.T) {
	if got := key(PurchaseOrders, "list:all"); got != "fieldservice:purchase_orders:list:all" {
		t.Errorf("key = %q", got)
	}
}

// TestRedis_RoundTripAndInvalidate needs a reachable Redis in TEST_REDIS_URL.
func TestRedis_RoundTripAndInvalidate(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis test")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	c := NewRedis(redis.NewClient(opt), time.Minute)
	defer c.Close()
	ctx := context.Background()

	type view struct {
		Code string `json:"code"`
	}
	if err := c.Set(ctx, PurchaseOrders, "1", view{Code: "CMD-0001"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, WorkOrders, "awaiting", []int{10, 11}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got view
	hit, err := c.Get(ctx, PurchaseOrders, "1", &got)
	if err != nil || !hit || got.Code != "CMD-0001" {
		t.Fatalf("Get = (%v, %v, %+v)", hit, err, got)
	}

	if err := c.Invalidate(ctx, PurchaseOrders); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if hit, _ := c.Get(ctx, PurchaseOrders, "1", &got); hit {
		t.Error("purchase order view survived invalidation")
	}
	var ids []int
	if hit, _ := c.Get(ctx, WorkOrders, "awaiting", &ids); !hit {
		t.Error("work order view was invalidated with another namespace")
	}
	_ = c.Invalidate(ctx, WorkOrders)
}
