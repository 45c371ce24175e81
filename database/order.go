package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"onam_fest/model"
	"onam_fest/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderStore interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id string) (*model.Order, error)
	List(ctx context.Context, filter model.FilterOrder) ([]model.Order, int64, error)
	UpdateStatus(ctx context.Context, id string, status string, notes *string) (*model.Order, error)
}

type GormOrderStore struct {
	db *gorm.DB
}

func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{db: db}
}

func (s *GormOrderStore) Ping(ctx context.Context) error {
	if err := PingDB(ctx, s.db); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *GormOrderStore) Create(ctx context.Context, order *model.Order) error {
	return classify(ctx, s.db, s.db.WithContext(ctx).Create(order).Error)
}

func (s *GormOrderStore) FindByID(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, classify(ctx, s.db, err)
	}
	return &order, nil
}

func (s *GormOrderStore) List(ctx context.Context, filter model.FilterOrder) ([]model.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Order{})
	if filter.StudentID != "" {
		query = query.Where("student_student_id = ?", filter.StudentID)
	}
	if filter.Email != "" {
		query = query.Where("LOWER(student_email) = ?", strings.ToLower(filter.Email))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, classify(ctx, s.db, err)
	}

	var orders []model.Order
	query = utils.ApplyPagination(query.Order("order_date desc"), filter.Limit, filter.Page)
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, classify(ctx, s.db, err)
	}
	return orders, total, nil
}

func (s *GormOrderStore) UpdateStatus(ctx context.Context, id string, status string, notes *string) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&order).Error; err != nil {
			return err
		}
		if !model.CanTransition(order.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
		}
		updates := map[string]interface{}{"status": status}
		if notes != nil {
			updates["notes"] = *notes
		}
		if err := tx.Model(&order).Updates(updates).Error; err != nil {
			return err
		}
		order.Status = status
		if notes != nil {
			order.Notes = *notes
		}
		return nil
	})
	if errors.Is(err, ErrInvalidTransition) {
		return nil, err
	}
	if err != nil {
		return nil, classify(ctx, s.db, err)
	}
	return &order, nil
}
