package handler

import (
	"context"
	"sync"
	"time"

	"onam_fest/config"
	"onam_fest/database"
	"onam_fest/model"
	"onam_fest/utils"
)

type OrderNumberAllocator interface {
	Next(ctx context.Context) string
}

type ConfirmationSender interface {
	SendOrderConfirmation(ctx context.Context, order model.Order) error
}

// Handler holds the dependencies shared by the HTTP handlers.
type Handler struct {
	Orders    database.OrderStore
	Users     database.UserStore
	Allocator OrderNumberAllocator
	Mailer    ConfirmationSender
	Metrics   *utils.Metrics

	public       config.PublicSettings
	emailTimeout time.Duration
	secureCookie bool
	started      time.Time
	emails       sync.WaitGroup
}

func NewHandler(orders database.OrderStore, users database.UserStore, allocator OrderNumberAllocator,
	mailer ConfirmationSender, metrics *utils.Metrics, settings config.Settings) *Handler {
	timeout := settings.EmailTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		Orders:       orders,
		Users:        users,
		Allocator:    allocator,
		Mailer:       mailer,
		Metrics:      metrics,
		public:       settings.Public,
		emailTimeout: timeout,
		secureCookie: settings.IsProduction(),
		started:      time.Now(),
	}
}

// WaitForEmails blocks until background confirmation emails have finished or
// ctx is done.
func (h *Handler) WaitForEmails(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.emails.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
