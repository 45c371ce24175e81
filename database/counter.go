package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"onam_fest/helper"
	"onam_fest/model"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCounterStore keeps counters in the counters table.
type GormCounterStore struct {
	db *gorm.DB
}

func NewGormCounterStore(db *gorm.DB) *GormCounterStore {
	return &GormCounterStore{db: db}
}

func (s *GormCounterStore) Increment(ctx context.Context, counterID string) (int64, bool, error) {
	var seq int64
	res := s.db.WithContext(ctx).
		Raw("UPDATE counters SET sequence = sequence + 1, updated_at = ? WHERE counter_id = ? RETURNING sequence", time.Now(), counterID).
		Scan(&seq)
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	return seq, true, nil
}

func (s *GormCounterStore) Create(ctx context.Context, counterID string) error {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Counter{CounterID: counterID, Sequence: 1})
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) || (res.Error == nil && res.RowsAffected == 0) {
		return helper.ErrCounterExists
	}
	return res.Error
}

// MongoCounterStore keeps counters in a collection keyed by _id.
type MongoCounterStore struct {
	coll *mongo.Collection
}

func NewMongoCounterStore(db *mongo.Database) *MongoCounterStore {
	return &MongoCounterStore{coll: db.Collection("counters")}
}

func (s *MongoCounterStore) Increment(ctx context.Context, counterID string) (int64, bool, error) {
	var counter model.Counter
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": counterID},
		bson.M{
			"$inc": bson.M{"sequence": 1},
			"$set": bson.M{"updatedAt": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(false),
	).Decode(&counter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return counter.Sequence, true, nil
}

func (s *MongoCounterStore) Create(ctx context.Context, counterID string) error {
	_, err := s.coll.InsertOne(ctx, model.Counter{CounterID: counterID, Sequence: 1, UpdatedAt: time.Now()})
	if mongo.IsDuplicateKeyError(err) {
		return helper.ErrCounterExists
	}
	return err
}

// INCR only when the key is already there, so creation stays explicit.
var incrIfExists = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("INCR", KEYS[1])
end
return 0
`)

// RedisCounterStore keeps each counter in a plain integer key.
type RedisCounterStore struct {
	client *redis.Client
	prefix string
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client, prefix: "counter:"}
}

func (s *RedisCounterStore) Increment(ctx context.Context, counterID string) (int64, bool, error) {
	seq, err := incrIfExists.Run(ctx, s.client, []string{s.prefix + counterID}).Int64()
	if err != nil {
		return 0, false, err
	}
	if seq == 0 {
		return 0, false, nil
	}
	return seq, true, nil
}

func (s *RedisCounterStore) Create(ctx context.Context, counterID string) error {
	ok, err := s.client.SetNX(ctx, s.prefix+counterID, 1, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return helper.ErrCounterExists
	}
	return nil
}

// MemoryCounterStore is a process-local counter store. Sequences are only
// unique within one process, so it is meant for development and tests.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]int64)}
}

func (s *MemoryCounterStore) Increment(ctx context.Context, counterID string) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.counters[counterID]
	if !ok {
		return 0, false, nil
	}
	seq++
	s.counters[counterID] = seq
	return seq, true, nil
}

func (s *MemoryCounterStore) Create(ctx context.Context, counterID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.counters[counterID]; ok {
		return helper.ErrCounterExists
	}
	s.counters[counterID] = 1
	return nil
}

// Sequence returns the current value of a counter, 0 if it does not exist.
func (s *MemoryCounterStore) Sequence(counterID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[counterID]
}

// NewCounterStore picks the counter backend named by kind.
func NewCounterStore(kind string, db *gorm.DB, rdb *redis.Client, mdb *mongo.Database) (helper.CounterStore, error) {
	switch kind {
	case "", "postgres":
		if db == nil {
			return nil, errors.New("postgres counter store needs a database")
		}
		return NewGormCounterStore(db), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis counter store needs REDIS_ADDR")
		}
		return NewRedisCounterStore(rdb), nil
	case "mongo":
		if mdb == nil {
			return nil, errors.New("mongo counter store needs MONGO_URI")
		}
		return NewMongoCounterStore(mdb), nil
	case "memory":
		return NewMemoryCounterStore(), nil
	default:
		return nil, fmt.Errorf("unknown COUNTER_STORE %q", kind)
	}
}
