package database

import (
	"time"

	"github.com/google/uuid"
)

// PowerRun records one stored output series
type PowerRun struct {
	RunID       uuid.UUID `gorm:"primaryKey;type:uuid;column:run_id"`
	Kind        string    `gorm:"primaryKey;column:kind"`
	Name        string    `gorm:"primaryKey;column:name"`
	ComputedAt  time.Time `gorm:"column:computed_at;not null"`
	Rows        int       `gorm:"column:rows;not null"`
	InvalidRows int       `gorm:"column:invalid_rows;not null"`
	ClampedRows int       `gorm:"column:clamped_rows;not null"`
}

// TableName specifies the table name for PowerRun
func (PowerRun) TableName() string {
	return "power_runs"
}

// PowerOutput is one time step of a stored output series. Power is NULL for invalid rows.
type PowerOutput struct {
	Time  time.Time `gorm:"column:time;not null"`
	RunID uuid.UUID `gorm:"type:uuid;column:run_id;not null"`
	Kind  string    `gorm:"column:kind;not null"`
	Name  string    `gorm:"column:name;not null"`
	Power *float64  `gorm:"column:power"`
}

// TableName specifies the table name for PowerOutput
func (PowerOutput) TableName() string {
	return "power_output"
}
