package model

import "time"

// AuditLog is an append-only record of a mutating API call.
type AuditLog struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	UserID       int64     `gorm:"index;not null" json:"user_id"`
	Action       string    `gorm:"size:100;not null" json:"action"`
	ResourceType string    `gorm:"size:50;not null;index" json:"resource_type"`
	ResourceID   int64     `json:"resource_id"`
	Details      string    `gorm:"type:text" json:"details"`
	IPAddress    string    `gorm:"size:45" json:"ip_address"`
	CreatedAt    time.Time `gorm:"index;not null" json:"created_at"`
}

// TableName keeps the historical table name.
func (AuditLog) TableName() string {
	return "audit_log"
}
