package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"onam_fest/helper"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

// checkCounterStore runs the found/not-found/duplicate contract every backend
// must honour.
func checkCounterStore(t *testing.T, s helper.CounterStore) {
	t.Helper()
	ctx := context.Background()

	if _, found, err := s.Increment(ctx, "order_20250905"); err != nil || found {
		t.Fatalf("missing counter: found=%v err=%v", found, err)
	}
	if err := s.Create(ctx, "order_20250905"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(ctx, "order_20250905"); !errors.Is(err, helper.ErrCounterExists) {
		t.Fatalf("second create: %v", err)
	}
	for want := int64(2); want <= 3; want++ {
		seq, found, err := s.Increment(ctx, "order_20250905")
		if err != nil || !found || seq != want {
			t.Fatalf("increment: seq=%d found=%v err=%v, want %d", seq, found, err, want)
		}
	}
	if _, found, err := s.Increment(ctx, "order_20250906"); err != nil || found {
		t.Fatalf("other day: found=%v err=%v", found, err)
	}
}

// checkGapless has n callers race for numbers on a fresh day and expects
// exactly 1..n back.
func checkGapless(t *testing.T, s helper.CounterStore, n int) {
	t.Helper()
	now := time.Date(2025, 9, 5, 10, 0, 0, 0, time.UTC)
	a := helper.NewOrderNumberAllocator(s, helper.AllocatorConfig{
		Prefix:   "ONAM",
		Location: time.UTC,
		Timeout:  5 * time.Second,
		Now:      func() time.Time { return now },
	})

	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			numbers <- a.Next(context.Background())
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for num := range numbers {
		if seen[num] {
			t.Errorf("duplicate %s", num)
		}
		seen[num] = true
	}
	for i := 1; i <= n; i++ {
		if want := fmt.Sprintf("ONAM-20250905-%04d", i); !seen[want] {
			t.Errorf("missing %s", want)
		}
	}
}

func TestMemoryCounterStore(t *testing.T) {
	checkCounterStore(t, NewMemoryCounterStore())
}

func TestMemoryCounterStore_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryCounterStore()
	if _, _, err := s.Increment(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("increment: %v", err)
	}
	if err := s.Create(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("create: %v", err)
	}
}

func TestMemoryCounterStore_ConcurrentAllocator(t *testing.T) {
	checkGapless(t, NewMemoryCounterStore(), 100)
}

func TestGormCounterStore(t *testing.T) {
	checkCounterStore(t, NewGormCounterStore(openTestDB(t)))
}

func TestGormCounterStore_ConcurrentAllocator(t *testing.T) {
	checkGapless(t, NewGormCounterStore(openTestDB(t)), 30)
}

func TestGormCounterStore_Unavailable(t *testing.T) {
	db := openTestDB(t)
	closeTestDB(t, db)
	s := NewGormCounterStore(db)

	if _, _, err := s.Increment(context.Background(), "order_20250905"); err == nil {
		t.Fatal("increment on a closed database succeeded")
	}
	if err := s.Create(context.Background(), "order_20250905"); err == nil || errors.Is(err, helper.ErrCounterExists) {
		t.Fatalf("create on a closed database: %v", err)
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCounterStore(t *testing.T) {
	mr, client := newTestRedis(t)
	checkCounterStore(t, NewRedisCounterStore(client))

	got, err := mr.Get("counter:order_20250905")
	if err != nil || got != "3" {
		t.Fatalf("stored value %q err=%v", got, err)
	}
}

func TestRedisCounterStore_ConcurrentAllocator(t *testing.T) {
	_, client := newTestRedis(t)
	checkGapless(t, NewRedisCounterStore(client), 50)
}

func TestRedisCounterStore_Unavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	mr.Close()
	s := NewRedisCounterStore(client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, _, err := s.Increment(ctx, "order_20250905"); err == nil {
		t.Fatal("increment against a stopped server succeeded")
	}
	if err := s.Create(ctx, "order_20250905"); err == nil || errors.Is(err, helper.ErrCounterExists) {
		t.Fatalf("create against a stopped server: %v", err)
	}
}

func TestMongoCounterStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("increment existing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "order_20250905"},
			{Key: "sequence", Value: int64(7)},
		}}))
		seq, found, err := NewMongoCounterStore(mt.DB).Increment(ctx, "order_20250905")
		if err != nil || !found || seq != 7 {
			mt.Fatalf("seq=%d found=%v err=%v", seq, found, err)
		}
	})

	mt.Run("increment missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))
		_, found, err := NewMongoCounterStore(mt.DB).Increment(ctx, "order_20250905")
		if err != nil || found {
			mt.Fatalf("found=%v err=%v", found, err)
		}
	})

	mt.Run("create", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		if err := NewMongoCounterStore(mt.DB).Create(ctx, "order_20250905"); err != nil {
			mt.Fatal(err)
		}
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: onam.counters",
		}))
		err := NewMongoCounterStore(mt.DB).Create(ctx, "order_20250905")
		if !errors.Is(err, helper.ErrCounterExists) {
			mt.Fatalf("got %v", err)
		}
	})

	mt.Run("server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad value",
		}))
		if _, _, err := NewMongoCounterStore(mt.DB).Increment(ctx, "order_20250905"); err == nil {
			mt.Fatal("expected error")
		}
	})
}

func TestNewCounterStore(t *testing.T) {
	if s, err := NewCounterStore("memory", nil, nil, nil); err != nil || s == nil {
		t.Fatalf("memory: %v", err)
	}
	for _, kind := range []string{"postgres", "redis", "mongo", "etcd"} {
		if _, err := NewCounterStore(kind, nil, nil, nil); err == nil {
			t.Errorf("%s: expected error without a backend", kind)
		}
	}
}
