package provisioning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bacaltosclinic/portal-api/internal/identity"
	"github.com/bacaltosclinic/portal-api/internal/models"
	"github.com/bacaltosclinic/portal-api/internal/queue"
)

// fakeRepo is an in-memory UserRepositoryInterface with failure injection and
// call counters.
type fakeRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.UserRecord

	failCreate error
	failUpdate error
	failDelete error

	createCalls int
	updateCalls int
	deleteCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[uuid.UUID]*models.UserRecord)}
}

func (f *fakeRepo) put(record *models.UserRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.ID] = record
}

func (f *fakeRepo) Create(ctx context.Context, user *models.UserRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreate != nil {
		return f.failCreate
	}
	user.CreatedAt = time.Now()
	clone := *user
	f.records[user.ID] = &clone
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}
	clone := *record
	return &clone, nil
}

func (f *fakeRepo) GetByEmail(ctx context.Context, email string) (*models.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.Email == email {
			clone := *record
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

func (f *fakeRepo) List(ctx context.Context, roleFilter *models.Role) ([]*models.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.UserRecord{}
	for _, record := range f.records {
		if roleFilter != nil && record.Role != *roleFilter {
			continue
		}
		clone := *record
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeRepo) Update(ctx context.Context, id uuid.UUID, email *string, role *models.Role) (*models.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}
	record, ok := f.records[id]
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

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failDelete != nil {
		return f.failDelete
	}
	if _, ok := f.records[id]; !ok {
		return fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}
	delete(f.records, id)
	return nil
}

// fakeProvider is an in-memory identity.Provider with failure injection and
// call counters. Tokens resolve via the tokens map.
type fakeProvider struct {
	mu         sync.Mutex
	identities map[uuid.UUID]*models.Identity
	tokens     map[string]uuid.UUID
	passwords  map[string]string

	failSignUp      error
	failAdminDelete error

	signUpCalls      int
	signInCalls      int
	getUserCalls     int
	adminDeleteCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		identities: make(map[uuid.UUID]*models.Identity),
		tokens:     make(map[string]uuid.UUID),
		passwords:  make(map[string]string),
	}
}

// seed registers an identity resolvable by the given token
func (f *fakeProvider) seed(id uuid.UUID, email, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities[id] = &models.Identity{ID: id, Email: email}
	if token != "" {
		f.tokens[token] = id
	}
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*models.Identity, *models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUpCalls++
	if f.failSignUp != nil {
		return nil, nil, f.failSignUp
	}
	for _, ident := range f.identities {
		if ident.Email == email {
			return nil, nil, identity.ErrEmailTaken
		}
	}
	id := uuid.New()
	ident := &models.Identity{ID: id, Email: email, Metadata: metadata}
	f.identities[id] = ident
	f.passwords[email] = password
	token := "token-" + id.String()
	f.tokens[token] = id
	return ident, &models.Session{AccessToken: token, TokenType: "bearer"}, nil
}

func (f *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (*models.Identity, *models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signInCalls++
	stored, ok := f.passwords[email]
	if !ok || stored != password {
		return nil, nil, identity.ErrInvalidCredentials
	}
	for id, ident := range f.identities {
		if ident.Email == email {
			token := "token-" + id.String()
			f.tokens[token] = id
			return ident, &models.Session{AccessToken: token, RefreshToken: "refresh-" + id.String(), TokenType: "bearer"}, nil
		}
	}
	return nil, nil, identity.ErrInvalidCredentials
}

func (f *fakeProvider) GetUser(ctx context.Context, accessToken string) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getUserCalls++
	id, ok := f.tokens[accessToken]
	if !ok {
		return nil, identity.ErrInvalidCredentials
	}
	ident, ok := f.identities[id]
	if !ok {
		return nil, identity.ErrInvalidCredentials
	}
	return ident, nil
}

func (f *fakeProvider) AdminDeleteUser(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adminDeleteCalls++
	if f.failAdminDelete != nil {
		return f.failAdminDelete
	}
	delete(f.identities, id)
	return nil
}

// hasIdentityWithEmail reports whether any identity carries the email
func (f *fakeProvider) hasIdentityWithEmail(email string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ident := range f.identities {
		if ident.Email == email {
			return true
		}
	}
	return false
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []*queue.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event *queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) HealthCheck(ctx context.Context) error { return nil }

func (p *recordingPublisher) eventsOfType(t queue.EventType) []*queue.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []*queue.Event{}
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var errBoom = errors.New("boom")
