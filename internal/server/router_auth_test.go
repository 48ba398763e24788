package server

import (
	contextpkg "context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/apperr"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/auth"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuthorizeRequestLogsExpiredTokenAtInfoLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/api/reservations", http.NoBody)
	request.Header.Set("Authorization", "Bearer expired-token")
	ctx.Request = request

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	expired := fmt.Errorf("%w: token is expired", auth.ErrExpiredSessionToken)
	handler := &httpHandler{
		sessions: stubSessionValidator{validateErr: expired},
		tenants:  stubTenantResolver{},
		logger:   logger,
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.InfoLevel {
		t.Fatalf("expected info level for expired token, got %s", entry.Level)
	}
	if entry.Message != "token validation failed" {
		t.Fatalf("unexpected log message: %q", entry.Message)
	}
	hasExpired := false
	for _, field := range entry.Context {
		if field.Type == zapcore.ErrorType && errors.Is(field.Interface.(error), auth.ErrExpiredSessionToken) {
			hasExpired = true
			break
		}
	}
	if !hasExpired {
		t.Fatalf("expected expired token error context, got %v", entry.Context)
	}
}

func TestAuthorizeRequestLogsUnexpectedTokenErrorAtWarnLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/api/reservations", http.NoBody)
	request.Header.Set("Authorization", "Bearer invalid-token")
	ctx.Request = request

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	handler := &httpHandler{
		sessions: stubSessionValidator{validateErr: errors.New("signature mismatch")},
		tenants:  stubTenantResolver{},
		logger:   logger,
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for unexpected error, got %s", entry.Level)
	}
	if entry.Message != "token validation failed" {
		t.Fatalf("unexpected log message: %q", entry.Message)
	}
}

func TestAuthorizeRequestStoresResolvedTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/reservations", http.NoBody)

	handler := &httpHandler{
		sessions: stubSessionValidator{claims: auth.SessionClaims{UserID: "chef", TenantID: "osteria"}},
		tenants:  stubTenantResolver{tenantID: "trattoria-1"},
		logger:   zap.NewNop(),
	}

	handler.authorizeRequest(ctx)

	if ctx.IsAborted() {
		t.Fatalf("expected request to proceed, got status %d", recorder.Code)
	}
	if got := ctx.GetString(tenantIDContextKey); got != "trattoria-1" {
		t.Fatalf("expected resolved tenant in context, got %q", got)
	}
	if got := ctx.GetString(userIDContextKey); got != "chef" {
		t.Fatalf("expected user id in context, got %q", got)
	}
}

func TestAuthorizeRequestRejectsForbiddenTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/reservations", http.NoBody)

	handler := &httpHandler{
		sessions: stubSessionValidator{claims: auth.SessionClaims{UserID: "chef"}},
		tenants: stubTenantResolver{
			err: apperr.New("staff.resolve_tenant", "no_membership", apperr.ErrForbidden, errors.New("no membership")),
		},
		logger: zap.NewNop(),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected forbidden, got %d", recorder.Code)
	}
}

func TestStatusForError(t *testing.T) {
	testCases := []struct {
		kind error
		want int
	}{
		{kind: apperr.ErrValidation, want: http.StatusBadRequest},
		{kind: apperr.ErrForbidden, want: http.StatusForbidden},
		{kind: apperr.ErrNotFound, want: http.StatusNotFound},
		{kind: apperr.ErrConflict, want: http.StatusConflict},
		{kind: apperr.ErrTransient, want: http.StatusServiceUnavailable},
		{kind: apperr.ErrInternal, want: http.StatusInternalServerError},
	}
	for _, testCase := range testCases {
		err := apperr.New("op", "reason", testCase.kind, nil)
		if got := statusForError(err); got != testCase.want {
			t.Fatalf("%v: expected %d, got %d", testCase.kind, testCase.want, got)
		}
	}
	if got := statusForError(errors.New("plain")); got != http.StatusInternalServerError {
		t.Fatalf("expected internal error for plain errors, got %d", got)
	}
}

type stubSessionValidator struct {
	claims      auth.SessionClaims
	validateErr error
}

func (s stubSessionValidator) ValidateRequest(*http.Request) (auth.SessionClaims, error) {
	return s.claims, s.validateErr
}

type stubTenantResolver struct {
	tenantID venue.TenantID
	err      error
}

func (s stubTenantResolver) ResolveTenant(contextpkg.Context, auth.SessionClaims) (venue.TenantID, error) {
	return s.tenantID, s.err
}
