package model

import "time"

// Counter is a named, monotonically increasing sequence. One row per
// calendar day backs order numbering ("order_YYYYMMDD").
type Counter struct {
	CounterID string    `gorm:"primaryKey;size:64" bson:"_id" json:"counterId"`
	Sequence  int64     `gorm:"not null;default:0" bson:"sequence" json:"sequence"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
