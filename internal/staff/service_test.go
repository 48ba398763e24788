package staff

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/apperr"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/auth"
	sqlite "github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "staff.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Membership{}); err != nil {
		t.Fatalf("failed to migrate membership schema: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database: db,
		Clock: func() time.Time {
			return time.Unix(1700000000, 0)
		},
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service, db
}

func claimsFor(userID, tenantID string) auth.SessionClaims {
	return auth.SessionClaims{
		UserID:    userID,
		UserEmail: "staff@example.com",
		TenantID:  tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID,
		},
	}
}

func TestResolveTenantEnrollsOnFirstUse(t *testing.T) {
	service, db := newTestService(t)

	tenantID, err := service.ResolveTenant(context.Background(), claimsFor("google:12345", "trattoria-1"))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if tenantID.String() != "trattoria-1" {
		t.Fatalf("unexpected tenant %q", tenantID)
	}

	var stored Membership
	if err := db.Where("provider = ? AND subject = ?", "google", "12345").Take(&stored).Error; err != nil {
		t.Fatalf("expected membership to be stored: %v", err)
	}
	if stored.Role != RoleStaff {
		t.Fatalf("expected default staff role, got %q", stored.Role)
	}

	tenantID, err = service.ResolveTenant(context.Background(), claimsFor("google:12345", ""))
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if tenantID.String() != "trattoria-1" {
		t.Fatalf("expected stored tenant to be reused, got %q", tenantID)
	}
}

func TestResolveTenantRefusesMismatchAndUnknownLogins(t *testing.T) {
	service, _ := newTestService(t)
	if _, err := service.ResolveTenant(context.Background(), claimsFor("staff-1", "trattoria-1")); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	_, err := service.ResolveTenant(context.Background(), claimsFor("staff-1", "osteria-2"))
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for tenant mismatch, got %v", err)
	}

	_, err = service.ResolveTenant(context.Background(), claimsFor("stranger", ""))
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for unknown login, got %v", err)
	}
}

func TestGrantReplacesBinding(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	if _, err := service.ResolveTenant(ctx, claimsFor("staff-9", "trattoria-1")); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if err := service.Grant(ctx, Membership{Subject: "staff-9", TenantID: "osteria-2", Role: RoleOwner}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	tenantID, err := service.ResolveTenant(ctx, claimsFor("staff-9", ""))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if tenantID.String() != "osteria-2" {
		t.Fatalf("expected granted tenant, got %q", tenantID)
	}

	if err := service.Grant(ctx, Membership{Subject: " ", TenantID: "osteria-2"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for blank subject, got %v", err)
	}
}
