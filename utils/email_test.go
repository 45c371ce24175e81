package utils

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"onam_fest/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gopkg.in/gomail.v2"
)

type fakeConn struct {
	mu      sync.Mutex
	fail    int
	block   chan struct{}
	sent    []string
	closed  bool
	lastErr error
}

func (f *fakeConn) Send(from string, to []string, msg io.WriterTo) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail > 0 {
		f.fail--
		f.lastErr = errors.New("421 service not available")
		return f.lastErr
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return err
	}
	f.sent = append(f.sent, buf.String())
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
}

func (d *fakeDialer) dial() (gomail.SendCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dials >= len(d.conns) {
		return nil, errors.New("dial refused")
	}
	c := d.conns[d.dials]
	d.dials++
	return c, nil
}

var testMailConfig = MailConfig{Host: "smtp.test", Port: 587, From: "fest@college.test"}

func testMessage() *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", "fest@college.test")
	msg.SetHeader("To", "student@college.test")
	msg.SetHeader("Subject", "hello")
	msg.SetBody("text/plain", "hi")
	return msg
}

func TestMailer_ReusesConnection(t *testing.T) {
	conn := &fakeConn{}
	d := &fakeDialer{conns: []*fakeConn{conn}}
	m := NewMailerWithDialer(testMailConfig, d.dial, nil)

	for i := 0; i < 3; i++ {
		if err := m.Send(context.Background(), testMessage()); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if d.dials != 1 {
		t.Fatalf("dialed %d times, want 1", d.dials)
	}
	if len(conn.sent) != 3 {
		t.Fatalf("sent %d messages", len(conn.sent))
	}
}

func TestMailer_ReconnectsAfterFailedSend(t *testing.T) {
	stale := &fakeConn{fail: 1}
	fresh := &fakeConn{}
	d := &fakeDialer{conns: []*fakeConn{stale, fresh}}
	m := NewMailerWithDialer(testMailConfig, d.dial, nil)

	if err := m.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !stale.closed {
		t.Fatal("broken connection was not closed")
	}
	if d.dials != 2 || len(fresh.sent) != 1 {
		t.Fatalf("dials=%d sentOnFresh=%d", d.dials, len(fresh.sent))
	}

	// later sends keep using the replacement
	if err := m.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("second send: %v", err)
	}
	if d.dials != 2 || len(fresh.sent) != 2 {
		t.Fatalf("dials=%d sentOnFresh=%d", d.dials, len(fresh.sent))
	}
}

func TestMailer_FailsWhenRedialFails(t *testing.T) {
	d := &fakeDialer{conns: []*fakeConn{{fail: 1}}}
	m := NewMailerWithDialer(testMailConfig, d.dial, nil)
	if err := m.Send(context.Background(), testMessage()); err == nil {
		t.Fatal("expected error")
	}
	// the next attempt dials again instead of reusing the dead connection
	d.conns = append(d.conns, &fakeConn{})
	if err := m.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("send after recovery: %v", err)
	}
}

func TestMailer_Timeout(t *testing.T) {
	conn := &fakeConn{block: make(chan struct{})}
	defer close(conn.block)
	d := &fakeDialer{conns: []*fakeConn{conn}}
	cfg := testMailConfig
	cfg.Timeout = 20 * time.Millisecond
	m := NewMailerWithDialer(cfg, d.dial, nil)

	start := time.Now()
	err := m.Send(context.Background(), testMessage())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("Send did not honour the timeout")
	}
}

func TestMailer_TimeoutDropsStuckConnection(t *testing.T) {
	stuck := &fakeConn{block: make(chan struct{})}
	defer close(stuck.block)
	healthy := &fakeConn{}
	d := &fakeDialer{conns: []*fakeConn{stuck, healthy}}
	cfg := testMailConfig
	cfg.Timeout = 50 * time.Millisecond
	m := NewMailerWithDialer(cfg, d.dial, nil)

	if err := m.Send(context.Background(), testMessage()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("first send: want deadline exceeded, got %v", err)
	}
	if err := m.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("second send: %v", err)
	}
	d.mu.Lock()
	dials := d.dials
	d.mu.Unlock()
	if dials != 2 || healthy.sentCount() != 1 {
		t.Fatalf("dials=%d sentOnHealthy=%d", dials, healthy.sentCount())
	}

	deadline := time.Now().Add(time.Second)
	for !stuck.isClosed() {
		if time.Now().After(deadline) {
			t.Fatal("stuck connection was never closed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	closed := make(chan error, 1)
	go func() { closed <- m.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("close: %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Close blocked")
	}
	if !healthy.isClosed() {
		t.Fatal("idle connection not closed")
	}
	if err := m.Send(context.Background(), testMessage()); !errors.Is(err, ErrMailerClosed) {
		t.Fatalf("send after close: %v", err)
	}
}

func TestMailer_Disabled(t *testing.T) {
	metrics := NewMetrics()
	m := NewMailerWithDialer(MailConfig{}, func() (gomail.SendCloser, error) {
		t.Fatal("disabled mailer dialed")
		return nil, nil
	}, metrics)

	err := m.SendOrderConfirmation(context.Background(), model.Order{OrderNumber: "ONAM-20250905-0001"})
	if !errors.Is(err, ErrMailerDisabled) {
		t.Fatalf("got %v", err)
	}
	if n := testutil.CollectAndCount(metrics.EmailsSent); n != 0 {
		t.Fatalf("disabled mailer recorded %d metric series", n)
	}
}

func TestMailer_SendOrderConfirmation(t *testing.T) {
	conn := &fakeConn{}
	d := &fakeDialer{conns: []*fakeConn{conn}}
	metrics := NewMetrics()
	m := NewMailerWithDialer(testMailConfig, d.dial, metrics)

	order := model.Order{
		OrderNumber: "ONAM-20250905-0001",
		StudentInfo: model.StudentInfo{Name: "Anu", Email: "anu@college.test"},
		OrderItems:  []model.OrderItem{{ID: "sadhya", Name: "Sadhya", Quantity: 1, UnitPrice: 150, LineTotal: 150}},
		Payment:     model.Payment{Method: "cash"},
		TotalAmount: 150,
		Status:      "pending",
		OrderDate:   time.Date(2025, 9, 5, 10, 0, 0, 0, time.UTC),
	}
	if err := m.SendOrderConfirmation(context.Background(), order); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("sent %d messages", len(conn.sent))
	}
	body := conn.sent[0]
	for _, want := range []string{"ONAM-20250905-0001", "anu@college.test", "qr_code"} {
		if !strings.Contains(body, want) {
			t.Errorf("message does not contain %q", want)
		}
	}
	if v := testutil.ToFloat64(metrics.EmailsSent.WithLabelValues("ok")); v != 1 {
		t.Fatalf("ok metric = %v", v)
	}
}
