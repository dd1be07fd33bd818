// Package rulesdb persists and loads user-defined scan filters, the
// durable counterpart to the in-memory rete.ScanRule the RETE network
// actually evaluates (spec §7.3).
package rulesdb

import "time"

// UserScannerFilter is the GORM model backing the user_scanner_filters
// table: one saved filter a user has configured in the scanner UI.
type UserScannerFilter struct {
	ID         int64     `gorm:"primaryKey;column:id"`
	UserID     string    `gorm:"column:user_id;index"`
	Name       string    `gorm:"column:name"`
	Enabled    bool      `gorm:"column:enabled;index"`
	Priority   int       `gorm:"column:priority"`
	Parameters JSONMap   `gorm:"column:parameters;type:jsonb"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

// TableName pins the GORM table name to match the original schema.
func (UserScannerFilter) TableName() string {
	return "user_scanner_filters"
}
