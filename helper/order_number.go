package helper

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"onam_fest/utils"

	"github.com/google/uuid"
)

// ErrCounterExists is returned by CounterStore.Create when another caller
// created the counter first.
var ErrCounterExists = errors.New("counter already exists")

// CounterStore is a persisted set of named sequences. Both operations must be
// atomic in the backing store.
type CounterStore interface {
	// Increment adds one to an existing counter and returns the new value.
	// found is false when no counter with that id exists.
	Increment(ctx context.Context, counterID string) (seq int64, found bool, err error)
	// Create inserts the counter with sequence 1.
	Create(ctx context.Context, counterID string) error
}

type AllocatorConfig struct {
	Prefix   string
	Width    int
	Location *time.Location
	// Timeout bounds each round trip to the counter store.
	Timeout time.Duration
	Now     func() time.Time
	Metrics *utils.Metrics
}

// OrderNumberAllocator hands out PREFIX-YYYYMMDD-NNNN order numbers backed by a
// per-day counter. When the counter store misbehaves it degrades to a
// timestamp+random number instead of failing the order.
type OrderNumberAllocator struct {
	store CounterStore
	cfg   AllocatorConfig
}

func NewOrderNumberAllocator(store CounterStore, cfg AllocatorConfig) *OrderNumberAllocator {
	if cfg.Prefix == "" {
		cfg.Prefix = "ONAM"
	}
	if cfg.Width <= 0 {
		cfg.Width = 4
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &OrderNumberAllocator{store: store, cfg: cfg}
}

func DatePrefix(t time.Time) string {
	return t.Format("20060102")
}

func CounterID(datePrefix string) string {
	return "order_" + datePrefix
}

// Next always returns a non-empty order number.
func (a *OrderNumberAllocator) Next(ctx context.Context) string {
	now := a.cfg.Now().In(a.cfg.Location)
	datePrefix := DatePrefix(now)
	counterID := CounterID(datePrefix)

	number := ""
	mode := utils.AllocationSequential
	seq, err := a.nextSequence(ctx, counterID)
	if err == nil && seq > 0 {
		number = fmt.Sprintf("%s-%s-%0*d", a.cfg.Prefix, datePrefix, a.cfg.Width, seq)
	} else {
		utils.Log.Warnw("order counter unavailable, using fallback order number",
			"counterId", counterID, "sequence", seq, "error", err)
		mode = utils.AllocationFallback
		number = a.fallback(now, datePrefix)
	}

	if strings.TrimSpace(number) == "" {
		mode = utils.AllocationEmergency
		number = a.emergency(now, datePrefix)
		utils.Log.Errorw("fallback order number was blank, assigned emergency number", "orderNumber", number)
	}

	if a.cfg.Metrics != nil {
		a.cfg.Metrics.NumbersAllocated.WithLabelValues(mode).Inc()
	}
	return number
}

func (a *OrderNumberAllocator) nextSequence(ctx context.Context, counterID string) (int64, error) {
	if a.store == nil {
		return 0, errors.New("no counter store configured")
	}

	seq, found, err := a.increment(ctx, counterID)
	if err != nil {
		return 0, err
	}
	if found {
		return seq, nil
	}

	// first order of the day
	err = a.create(ctx, counterID)
	if err == nil {
		return 1, nil
	}
	if !errors.Is(err, ErrCounterExists) {
		return 0, err
	}

	// lost the creation race; the row exists now
	seq, found, err = a.increment(ctx, counterID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("counter %s missing after create conflict", counterID)
	}
	return seq, nil
}

func (a *OrderNumberAllocator) increment(ctx context.Context, counterID string) (int64, bool, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.store.Increment(ctx, counterID)
}

func (a *OrderNumberAllocator) create(ctx context.Context, counterID string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.store.Create(ctx, counterID)
}

func (a *OrderNumberAllocator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

const fallbackAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var randomSuffix = randomString

// fallback is PREFIX-DATE-<last 6 digits of unix millis><4 random base36 chars>.
// It returns "" if the random source fails.
func (a *OrderNumberAllocator) fallback(now time.Time, datePrefix string) string {
	suffix, err := randomSuffix(4)
	if err != nil {
		utils.Log.Errorw("random source failed for fallback order number", "error", err)
		return ""
	}
	return fmt.Sprintf("%s-%s-%06d%s", a.cfg.Prefix, datePrefix, now.UnixMilli()%1000000, suffix)
}

func (a *OrderNumberAllocator) emergency(now time.Time, datePrefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s-%s-X%d%s", a.cfg.Prefix, datePrefix, now.UnixNano(), id[:8])
}

func randomString(n int) (string, error) {
	base := big.NewInt(int64(len(fallbackAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		b[i] = fallbackAlphabet[idx.Int64()]
	}
	return string(b), nil
}
