package staff

import (
	"strings"
	"time"
)

// Role names stored on a membership.
const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

// Membership binds a provider login to the restaurant it works for.
type Membership struct {
	Provider    string    `gorm:"column:provider;primaryKey;size:32;not null"`
	Subject     string    `gorm:"column:subject;primaryKey;size:190;not null"`
	TenantID    string    `gorm:"column:tenant_id;size:190;not null;index"`
	Role        string    `gorm:"column:role;size:16;not null"`
	Email       string    `gorm:"column:user_email;size:320"`
	DisplayName string    `gorm:"column:user_display_name;size:320"`
	LastSeenAt  time.Time `gorm:"column:last_seen_at"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing staff memberships.
func (Membership) TableName() string {
	return "staff_memberships"
}

func normalize(value string) string {
	return strings.TrimSpace(value)
}
