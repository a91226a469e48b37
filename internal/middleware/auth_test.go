package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/benvon/smart-bookmarks/internal/request"
	"github.com/google/uuid"
)

// mockVerifier accepts any token and uses it as the subject, except "bad"
type mockVerifier struct{}

func (mockVerifier) Verify(token string) (*models.AccessClaims, error) {
	if token == "bad" {
		return nil, errors.New("signature mismatch")
	}
	return &models.AccessClaims{Subject: token, ID: token}, nil
}

type mockUserLoader struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	err   error
	calls int
}

func (m *mockUserLoader) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u, nil
}

func TestAuth(t *testing.T) {
	t.Parallel()

	active := &models.User{ID: uuid.New(), Email: "a@example.com", Status: models.UserStatusActive}
	blocked := &models.User{ID: uuid.New(), Email: "b@example.com", Status: models.UserStatusBlocked}
	pending := &models.User{ID: uuid.New(), Email: "p@example.com", Status: models.UserStatusPending}

	tests := []struct {
		name        string
		header      string
		loaderErr   error
		wantStatus  int
		wantMessage string
	}{
		{name: "active user passes", header: "Bearer " + active.ID.String(), wantStatus: http.StatusOK},
		{name: "scheme is case-insensitive", header: "bearer " + active.ID.String(), wantStatus: http.StatusOK},
		{name: "missing header", wantStatus: http.StatusUnauthorized, wantMessage: "Missing Authorization header"},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantMessage: "Invalid Authorization header format"},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized, wantMessage: "Invalid Authorization header format"},
		{name: "invalid token", header: "Bearer bad", wantStatus: http.StatusUnauthorized, wantMessage: "Invalid or expired token"},
		{name: "subject is not a uuid", header: "Bearer someone", wantStatus: http.StatusUnauthorized, wantMessage: "Invalid or expired token"},
		{name: "deleted user", header: "Bearer " + uuid.NewString(), wantStatus: http.StatusUnauthorized, wantMessage: "User no longer exists"},
		{name: "blocked user", header: "Bearer " + blocked.ID.String(), wantStatus: http.StatusUnauthorized, wantMessage: "User account is not active"},
		{name: "pending user", header: "Bearer " + pending.ID.String(), wantStatus: http.StatusUnauthorized, wantMessage: "User account is not active"},
		{name: "database failure", header: "Bearer " + active.ID.String(), loaderErr: errors.New("conn reset"), wantStatus: http.StatusInternalServerError, wantMessage: "Database error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			users := &mockUserLoader{
				users: map[uuid.UUID]*models.User{active.ID: active, blocked.ID: blocked, pending.ID: pending},
				err:   tt.loaderErr,
			}
			var seen *models.User
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = request.UserFromContext(r)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("GET", "/api/v1/bookmarks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			Auth(mockVerifier{}, users, nil)(next).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if seen == nil || seen.ID != active.ID {
					t.Errorf("handler saw user %+v, want %s", seen, active.ID)
				}
				return
			}
			var body ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success || body.Message != tt.wantMessage {
				t.Errorf("body = %+v, want message %q", body, tt.wantMessage)
			}
		})
	}
}
