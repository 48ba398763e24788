package staff

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/apperr"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/auth"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	opResolveTenant = "staff.resolve_tenant"
	opGrant         = "staff.grant"
	defaultProvider = "default"
)

var (
	// ErrInvalidIdentity indicates the claims did not contain a usable identifier.
	ErrInvalidIdentity = errors.New("staff: invalid identity")
	errNoMembership    = errors.New("staff: login is not bound to a restaurant")
	errTenantMismatch  = errors.New("staff: session tenant differs from membership")
	errMissingDatabase = errors.New("staff: database connection required")
)

// ServiceConfig describes the dependencies required for membership resolution.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service maps staff logins to the tenant they act for.
type Service struct {
	db     *gorm.DB
	now    func() time.Time
	logger *zap.Logger
	cache  sync.Map
}

// NewService constructs the membership service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, now: clock, logger: logger}, nil
}

// ResolveTenant returns the tenant the session may act for.
//
// A known login resolves to its stored tenant, and a session naming a different tenant is
// refused. An unknown login carrying a tenant claim is enrolled on first use.
func (s *Service) ResolveTenant(ctx context.Context, claims auth.SessionClaims) (venue.TenantID, error) {
	provider, subject := deriveProviderSubject(claims)
	if subject == "" {
		return "", apperr.New(opResolveTenant, "invalid_identity", apperr.ErrForbidden, ErrInvalidIdentity)
	}
	claimedTenant := normalize(claims.TenantID)

	cacheKey := provider + ":" + subject
	if cached, ok := s.cache.Load(cacheKey); ok {
		if tenantID, ok := cached.(string); ok {
			return s.checkTenant(tenantID, claimedTenant)
		}
	}

	var membership Membership
	err := s.db.WithContext(ctx).
		Where("provider = ? AND subject = ?", provider, subject).
		Take(&membership).
		Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if claimedTenant == "" {
			return "", apperr.New(opResolveTenant, "no_membership", apperr.ErrForbidden, errNoMembership)
		}
		role := normalize(claims.Role)
		if role == "" {
			role = RoleStaff
		}
		membership = Membership{
			Provider:    provider,
			Subject:     subject,
			TenantID:    claimedTenant,
			Role:        role,
			Email:       normalize(claims.UserEmail),
			DisplayName: normalize(claims.UserDisplayName),
			LastSeenAt:  s.now().UTC(),
		}
		if err := s.db.WithContext(ctx).Create(&membership).Error; err != nil {
			s.logger.Error("staff membership insert failed", zap.String("subject", subject), zap.Error(err))
			return "", apperr.New(opResolveTenant, "membership_insert_failed", apperr.ErrTransient, err)
		}
		s.logger.Info("staff membership enrolled",
			zap.String("provider", provider),
			zap.String("subject", subject),
			zap.String("tenant_id", claimedTenant))
	case err != nil:
		return "", apperr.New(opResolveTenant, "membership_query_failed", apperr.ErrTransient, err)
	default:
		updates := map[string]interface{}{"last_seen_at": s.now().UTC()}
		if email := normalize(claims.UserEmail); email != "" && email != membership.Email {
			updates["user_email"] = email
		}
		if display := normalize(claims.UserDisplayName); display != "" && display != membership.DisplayName {
			updates["user_display_name"] = display
		}
		_ = s.db.WithContext(ctx).Model(&Membership{}).
			Where("provider = ? AND subject = ?", provider, subject).
			Updates(updates).
			Error
	}

	s.cache.Store(cacheKey, membership.TenantID)
	return s.checkTenant(membership.TenantID, claimedTenant)
}

// Grant binds a login to a tenant, replacing any previous binding.
func (s *Service) Grant(ctx context.Context, membership Membership) error {
	membership.Provider = normalize(membership.Provider)
	if membership.Provider == "" {
		membership.Provider = defaultProvider
	}
	membership.Subject = normalize(membership.Subject)
	if membership.Subject == "" {
		return apperr.New(opGrant, "invalid_identity", apperr.ErrValidation, ErrInvalidIdentity)
	}
	tenantID, err := venue.NewTenantID(membership.TenantID)
	if err != nil {
		return apperr.New(opGrant, "invalid_tenant_id", apperr.ErrValidation, err)
	}
	membership.TenantID = tenantID.String()
	if normalize(membership.Role) == "" {
		membership.Role = RoleStaff
	}
	membership.LastSeenAt = s.now().UTC()
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&membership).Error; err != nil {
		return apperr.New(opGrant, "membership_upsert_failed", apperr.ErrTransient, err)
	}
	s.cache.Delete(membership.Provider + ":" + membership.Subject)
	return nil
}

func (s *Service) checkTenant(stored, claimed string) (venue.TenantID, error) {
	if claimed != "" && claimed != stored {
		return "", apperr.New(opResolveTenant, "tenant_mismatch", apperr.ErrForbidden, errTenantMismatch)
	}
	tenantID, err := venue.NewTenantID(stored)
	if err != nil {
		return "", apperr.New(opResolveTenant, "invalid_tenant_id", apperr.ErrInternal, err)
	}
	return tenantID, nil
}

func deriveProviderSubject(claims auth.SessionClaims) (string, string) {
	provider := defaultProvider
	subject := normalize(claims.Subject)

	raw := normalize(claims.UserID)
	if raw != "" {
		if strings.Contains(raw, ":") {
			segments := strings.SplitN(raw, ":", 2)
			if normalize(segments[0]) != "" && normalize(segments[1]) != "" {
				provider = normalize(segments[0])
				subject = normalize(segments[1])
			}
		} else if subject == "" {
			subject = raw
		}
	}

	if subject == "" {
		subject = normalize(claims.UserEmail)
	}
	return provider, subject
}
