package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"sync"
	"time"

	"onam_fest/model"

	"gopkg.in/gomail.v2"
)

var (
	ErrMailerDisabled = errors.New("mailer disabled: SMTP_HOST not configured")
	ErrMailerClosed   = errors.New("mailer closed")

	errSendAbandoned = errors.New("send abandoned after timeout")
)

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// Mailer owns one SMTP connection. The connection is opened on first use and
// replaced after a failed or timed-out send; callers never see a half-broken
// handle.
type Mailer struct {
	cfg     MailConfig
	dial    func() (gomail.SendCloser, error)
	metrics *Metrics

	// one send at a time; released by Send even if the attempt is stuck
	sem chan struct{}

	mu     sync.Mutex
	conn   gomail.SendCloser
	closed bool
}

// sendCall tracks the connection used by one attempt so a timed-out attempt
// can be cut loose.
type sendCall struct {
	conn      gomail.SendCloser
	abandoned bool
}

func NewMailer(cfg MailConfig, metrics *Metrics) *Mailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return NewMailerWithDialer(cfg, d.Dial, metrics)
}

// NewMailerWithDialer builds a Mailer around a custom dial function.
func NewMailerWithDialer(cfg MailConfig, dial func() (gomail.SendCloser, error), metrics *Metrics) *Mailer {
	return &Mailer{cfg: cfg, dial: dial, metrics: metrics, sem: make(chan struct{}, 1)}
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != ""
}

// Send delivers msg, waiting at most the configured timeout. On timeout the
// connection in use is dropped so the next send dials a fresh one.
func (m *Mailer) Send(ctx context.Context, msg *gomail.Message) error {
	if !m.Enabled() {
		return ErrMailerDisabled
	}
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}
	defer func() { <-m.sem }()

	call := &sendCall{}
	done := make(chan error, 1)
	go func() { done <- m.send(call, msg) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		m.abandon(call)
		return fmt.Errorf("send email: %w", ctx.Err())
	}
}

func (m *Mailer) send(call *sendCall, msg *gomail.Message) error {
	conn, err := m.connect(call)
	if err != nil {
		return err
	}

	err = gomail.Send(conn, msg)
	if err == nil {
		return nil
	}

	// the relay may have dropped us (idle timeout, auth expiry); reconnect once
	Log.Warnw("smtp send failed, reconnecting", "error", err)
	m.discard(conn)

	conn, dialErr := m.connect(call)
	if dialErr != nil {
		return fmt.Errorf("redial smtp: %w (send error: %v)", dialErr, err)
	}
	return gomail.Send(conn, msg)
}

// connect returns the shared connection, dialing one if there is none.
func (m *Mailer) connect(call *sendCall) (gomail.SendCloser, error) {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return nil, ErrMailerClosed
	case call.abandoned:
		m.mu.Unlock()
		return nil, errSendAbandoned
	case m.conn != nil:
		call.conn = m.conn
		m.mu.Unlock()
		return call.conn, nil
	}
	m.mu.Unlock()

	conn, err := m.dial()
	if err != nil {
		return nil, fmt.Errorf("dial smtp: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || call.abandoned {
		go func() { _ = conn.Close() }()
		return nil, errSendAbandoned
	}
	m.conn = conn
	call.conn = conn
	return conn, nil
}

func (m *Mailer) discard(conn gomail.SendCloser) {
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
	}
	m.mu.Unlock()
	_ = conn.Close()
}

// abandon detaches a stuck attempt. Closing runs in the background because
// QUIT on a dead relay blocks as long as the send did.
func (m *Mailer) abandon(call *sendCall) {
	m.mu.Lock()
	call.abandoned = true
	conn := call.conn
	if conn != nil && m.conn == conn {
		m.conn = nil
	}
	m.mu.Unlock()

	if conn != nil {
		Log.Warn("smtp send timed out, dropping connection")
		go func() { _ = conn.Close() }()
	}
}

// Close drops the idle connection. It does not wait for a send in flight.
func (m *Mailer) Close() error {
	m.mu.Lock()
	m.closed = true
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

type orderConfirmationData struct {
	OrderNumber   string
	Name          string
	Items         []model.OrderItem
	TotalAmount   float64
	PaymentMethod string
	Status        string
	OrderDate     string
}

var orderConfirmationTmpl = template.Must(template.New("order_confirmation").Parse(`<h2>Thank you, {{.Name}}!</h2>
<p>Your order <strong>{{.OrderNumber}}</strong> was received on {{.OrderDate}}.</p>
<table>
{{range .Items}}<tr><td>{{.Name}}</td><td>x{{.Quantity}}</td><td>{{printf "%.2f" .LineTotal}}</td></tr>
{{end}}</table>
<p>Total: <strong>{{printf "%.2f" .TotalAmount}}</strong> ({{.PaymentMethod}}) - status: {{.Status}}</p>
<p><img src="cid:qr_code" alt="{{.OrderNumber}}"></p>`))

func (m *Mailer) buildOrderConfirmation(order model.Order) (*gomail.Message, error) {
	var body bytes.Buffer
	err := orderConfirmationTmpl.Execute(&body, orderConfirmationData{
		OrderNumber:   order.OrderNumber,
		Name:          order.StudentInfo.Name,
		Items:         order.OrderItems,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: order.Payment.Method,
		Status:        order.Status,
		OrderDate:     order.OrderDate.Format("02 Jan 2006 15:04"),
	})
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", order.StudentInfo.Email)
	msg.SetHeader("Subject", "Order confirmation #"+order.OrderNumber)
	msg.SetBody("text/html", body.String())

	if qrBytes, err := GenerateQRCode(order.OrderNumber, 300); err == nil {
		msg.Embed("qr.png", gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(qrBytes)
			return err
		}), gomail.SetHeader(map[string][]string{
			"Content-Type": {"image/png"},
			"Content-ID":   {"<qr_code>"},
		}))
	}
	return msg, nil
}

func (m *Mailer) SendOrderConfirmation(ctx context.Context, order model.Order) error {
	msg, err := m.buildOrderConfirmation(order)
	if err == nil {
		err = m.Send(ctx, msg)
	}
	if m.metrics != nil && !errors.Is(err, ErrMailerDisabled) {
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.metrics.EmailsSent.WithLabelValues(result).Inc()
	}
	return err
}
