package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/bacaltosclinic/portal-api/internal/identity"
	"github.com/bacaltosclinic/portal-api/internal/models"
	"github.com/bacaltosclinic/portal-api/internal/provisioning"
	"github.com/bacaltosclinic/portal-api/internal/queue"
)

const testAdminToken = "admin-token"

// stubRepo is a minimal in-memory user repository for handler tests
type stubRepo struct {
	records map[uuid.UUID]*models.UserRecord
}

func (s *stubRepo) Create(ctx context.Context, user *models.UserRecord) error {
	user.CreatedAt = time.Now()
	clone := *user
	s.records[user.ID] = &clone
	return nil
}

func (s *stubRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.UserRecord, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}
	clone := *record
	return &clone, nil
}

func (s *stubRepo) GetByEmail(ctx context.Context, email string) (*models.UserRecord, error) {
	for _, record := range s.records {
		if record.Email == email {
			clone := *record
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

func (s *stubRepo) List(ctx context.Context, roleFilter *models.Role) ([]*models.UserRecord, error) {
	out := []*models.UserRecord{}
	for _, record := range s.records {
		if roleFilter != nil && record.Role != *roleFilter {
			continue
		}
		clone := *record
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *stubRepo) Update(ctx context.Context, id uuid.UUID, email *string, role *models.Role) (*models.UserRecord, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}
	if email != nil {
		record.Email = *email
	}
	if role != nil {
		record.Role = *role
	}
	clone := *record
	return &clone, nil
}

func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}
	delete(s.records, id)
	return nil
}

// stubProvider is a minimal identity provider for handler tests
type stubProvider struct {
	identities map[uuid.UUID]*models.Identity
	tokens     map[string]uuid.UUID
	passwords  map[string]string
}

func (s *stubProvider) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*models.Identity, *models.Session, error) {
	for _, ident := range s.identities {
		if ident.Email == email {
			return nil, nil, identity.ErrEmailTaken
		}
	}
	id := uuid.New()
	ident := &models.Identity{ID: id, Email: email, Metadata: metadata}
	s.identities[id] = ident
	s.passwords[email] = password
	token := "token-" + id.String()
	s.tokens[token] = id
	return ident, &models.Session{AccessToken: token, TokenType: "bearer"}, nil
}

func (s *stubProvider) SignInWithPassword(ctx context.Context, email, password string) (*models.Identity, *models.Session, error) {
	stored, ok := s.passwords[email]
	if !ok || stored != password {
		return nil, nil, identity.ErrInvalidCredentials
	}
	for id, ident := range s.identities {
		if ident.Email == email {
			token := "token-" + id.String()
			s.tokens[token] = id
			return ident, &models.Session{AccessToken: token, TokenType: "bearer"}, nil
		}
	}
	return nil, nil, identity.ErrInvalidCredentials
}

func (s *stubProvider) GetUser(ctx context.Context, accessToken string) (*models.Identity, error) {
	id, ok := s.tokens[accessToken]
	if !ok {
		return nil, identity.ErrInvalidCredentials
	}
	ident, ok := s.identities[id]
	if !ok {
		return nil, identity.ErrInvalidCredentials
	}
	return ident, nil
}

func (s *stubProvider) AdminDeleteUser(ctx context.Context, id uuid.UUID) error {
	delete(s.identities, id)
	return nil
}

// newTestHandlers builds a coordinator over stubs, seeded with one admin and
// one seeded doctor record, and returns everything handler tests need.
func newTestHandlers(t *testing.T) (*provisioning.Coordinator, *stubRepo, *stubProvider) {
	t.Helper()

	repo := &stubRepo{records: make(map[uuid.UUID]*models.UserRecord)}
	provider := &stubProvider{
		identities: make(map[uuid.UUID]*models.Identity),
		tokens:     make(map[string]uuid.UUID),
		passwords:  make(map[string]string),
	}

	adminID := uuid.New()
	provider.identities[adminID] = &models.Identity{ID: adminID, Email: "admin@clinic.test"}
	provider.tokens[testAdminToken] = adminID
	provider.passwords["admin@clinic.test"] = "secret1"
	repo.records[adminID] = &models.UserRecord{ID: adminID, Email: "admin@clinic.test", Role: models.RoleAdmin, CreatedAt: time.Now().Add(-time.Hour)}

	doctorID := uuid.New()
	provider.identities[doctorID] = &models.Identity{ID: doctorID, Email: "doctor@clinic.test"}
	provider.tokens["doctor-token"] = doctorID
	provider.passwords["doctor@clinic.test"] = "secret1"
	repo.records[doctorID] = &models.UserRecord{ID: doctorID, Email: "doctor@clinic.test", Role: models.RoleDoctor, CreatedAt: time.Now().Add(-30 * time.Minute)}

	return provisioning.New(repo, provider, queue.NopPublisher{}, zap.NewNop()), repo, provider
}

// doRequest runs an HTTP request through the router and decodes the JSON body
func doRequest(t *testing.T, router *mux.Router, method, path, token, body string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.NewDecoder(rec.Body).Decode(&decoded); err != nil {
			t.Fatalf("failed to decode response body: %v", err)
		}
	}
	return rec.Code, decoded
}

func wantError(t *testing.T, gotStatus int, body map[string]any, wantStatus int, wantMessage string) {
	t.Helper()
	if gotStatus != wantStatus {
		t.Errorf("expected status %d, got %d", wantStatus, gotStatus)
	}
	if got, _ := body["error"].(string); got != wantMessage {
		t.Errorf("expected error %q, got %q", wantMessage, got)
	}
}
