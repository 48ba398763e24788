package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testSessionSigningSecret = "secret"
	testSessionCookieName    = "gofood_session"
	testSessionUserID        = "staff-123"
	testSessionUserEmail     = "staff@example.com"
	testSessionTenantID      = "trattoria-1"
)

func signTestToken(t *testing.T, claims SessionClaims, secret string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func validClaims(now time.Time) SessionClaims {
	return SessionClaims{
		UserID:    testSessionUserID,
		UserEmail: testSessionUserEmail,
		TenantID:  testSessionTenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultSessionIssuer,
			Subject:   testSessionUserID,
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func newTestValidator(t *testing.T, now time.Time) *SessionValidator {
	t.Helper()
	validator, err := NewSessionValidator(SessionValidatorConfig{
		SigningSecret: []byte(testSessionSigningSecret),
		CookieName:    testSessionCookieName,
		Clock: func() time.Time {
			return now
		},
	})
	if err != nil {
		t.Fatalf("failed to construct validator: %v", err)
	}
	return validator
}

func TestSessionValidatorValidateToken(t *testing.T) {
	clockNow := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	validator := newTestValidator(t, clockNow)

	claims, err := validator.ValidateToken(signTestToken(t, validClaims(clockNow), testSessionSigningSecret))
	if err != nil {
		t.Fatalf("unexpected validation failure: %v", err)
	}
	if claims.UserID != testSessionUserID || claims.TenantID != testSessionTenantID {
		t.Fatalf("unexpected claims: %#v", claims)
	}
}

func TestSessionValidatorRejectsBadTokens(t *testing.T) {
	clockNow := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	validator := newTestValidator(t, clockNow)

	expired := validClaims(clockNow)
	expired.IssuedAt = jwt.NewNumericDate(clockNow.Add(-2 * time.Hour))
	expired.NotBefore = nil
	expired.ExpiresAt = jwt.NewNumericDate(clockNow.Add(-time.Hour))

	foreignIssuer := validClaims(clockNow)
	foreignIssuer.Issuer = "someone-else"

	noSubject := validClaims(clockNow)
	noSubject.Subject = ""

	testCases := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "expired", token: signTestToken(t, expired, testSessionSigningSecret), wantErr: ErrExpiredSessionToken},
		{name: "wrong secret", token: signTestToken(t, validClaims(clockNow), "other"), wantErr: ErrInvalidSessionToken},
		{name: "foreign issuer", token: signTestToken(t, foreignIssuer, testSessionSigningSecret), wantErr: ErrInvalidSessionToken},
		{name: "missing subject", token: signTestToken(t, noSubject, testSessionSigningSecret), wantErr: ErrMissingSessionSubject},
		{name: "empty", token: "  ", wantErr: ErrMissingSessionToken},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := validator.ValidateToken(testCase.token)
			if !errors.Is(err, testCase.wantErr) {
				t.Fatalf("expected %v, got %v", testCase.wantErr, err)
			}
		})
	}
}

func TestSessionValidatorValidateRequestSources(t *testing.T) {
	validator, err := NewSessionValidator(SessionValidatorConfig{
		SigningSecret: []byte(testSessionSigningSecret),
		CookieName:    testSessionCookieName,
	})
	if err != nil {
		t.Fatalf("failed to construct validator: %v", err)
	}
	signed := signTestToken(t, validClaims(time.Now()), testSessionSigningSecret)

	cookieRequest := httptest.NewRequest(http.MethodGet, "/reservations", http.NoBody)
	cookieRequest.AddCookie(&http.Cookie{Name: testSessionCookieName, Value: signed})

	bearerRequest := httptest.NewRequest(http.MethodGet, "/reservations", http.NoBody)
	bearerRequest.Header.Set("Authorization", "Bearer "+signed)

	queryRequest := httptest.NewRequest(http.MethodGet, "/reservations/stream?access_token="+signed, http.NoBody)

	for name, request := range map[string]*http.Request{"cookie": cookieRequest, "bearer": bearerRequest, "query": queryRequest} {
		t.Run(name, func(t *testing.T) {
			claims, err := validator.ValidateRequest(request)
			if err != nil {
				t.Fatalf("validation failed: %v", err)
			}
			if claims.UserID != testSessionUserID {
				t.Fatalf("unexpected user id: %s", claims.UserID)
			}
		})
	}

	anonymous := httptest.NewRequest(http.MethodGet, "/reservations", http.NoBody)
	if _, err := validator.ValidateRequest(anonymous); !errors.Is(err, ErrMissingSessionToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestNewSessionValidatorRequiresSecretAndCookie(t *testing.T) {
	if _, err := NewSessionValidator(SessionValidatorConfig{CookieName: testSessionCookieName}); !errors.Is(err, ErrMissingSessionSigningKey) {
		t.Fatalf("expected missing signing key error, got %v", err)
	}
	if _, err := NewSessionValidator(SessionValidatorConfig{SigningSecret: []byte("x")}); !errors.Is(err, ErrMissingSessionCookieName) {
		t.Fatalf("expected missing cookie name error, got %v", err)
	}
}
