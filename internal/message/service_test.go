package message

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/litter/internal/auth"
	"github.com/hitoshi/litter/internal/metrics"
	"github.com/hitoshi/litter/internal/model"
	"github.com/hitoshi/litter/internal/repository"
)

// --- モック ---

type mockMessageRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.Message, error)
	listByProducerFn func(ctx context.Context, producerID string) ([]*model.Message, error)
	listAllFn        func(ctx context.Context) ([]*model.Message, error)
	createFn         func(ctx context.Context, msg *model.Message) error
	deleteFn         func(ctx context.Context, id string) error

	deleted []string
}

func (m *mockMessageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockMessageRepo) ListByProducer(ctx context.Context, producerID string) ([]*model.Message, error) {
	if m.listByProducerFn != nil {
		return m.listByProducerFn(ctx, producerID)
	}
	return nil, nil
}

func (m *mockMessageRepo) ListAll(ctx context.Context) ([]*model.Message, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	if m.createFn != nil {
		return m.createFn(ctx, msg)
	}
	return nil
}

func (m *mockMessageRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// directory はユーザー名でユーザーを引くCallerResolverとUserFinderの両方を満たす。
type directory map[string]*model.User

func (d directory) ResolveCaller(_ context.Context, claims *auth.Claims) (*model.User, error) {
	if claims == nil || claims.Subject == "" {
		return nil, model.NewEmptyTokenSubjectError()
	}
	u, ok := d[claims.Subject]
	if !ok {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}

func (d directory) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return d[username], nil
}

type publishCounter struct {
	metrics.NopCollector
	published int
}

func (c *publishCounter) RecordMessagePublished() { c.published++ }

const existingMessageID = "7f1c2a3b-0000-4000-8000-000000000001"

func newDirectory() directory {
	return directory{
		"author": {ID: "u-author", Username: "author", Roles: []string{model.RoleSubscriber, model.RoleProducer}},
		"reader": {ID: "u-reader", Username: "reader", Roles: []string{model.RoleSubscriber}},
		"other1": {ID: "u-other", Username: "other1", Roles: []string{model.RoleSubscriber, model.RoleProducer}},
		"admin1": {ID: "u-admin", Username: "admin1", Roles: []string{model.RoleAdmin}},
	}
}

func repoWithMessage() *mockMessageRepo {
	return &mockMessageRepo{
		findByIDFn: func(_ context.Context, id string) (*model.Message, error) {
			if id != existingMessageID {
				return nil, nil
			}
			return &model.Message{ID: existingMessageID, ProducerID: "u-author", Content: "hello"}, nil
		},
	}
}

func claimsFor(username string) *auth.Claims {
	c := &auth.Claims{}
	c.Subject = username
	return c
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError with code %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

// --- テスト ---

func TestIsAuthorizedToDelete(t *testing.T) {
	msg := &model.Message{ID: "m1", ProducerID: "u-author"}
	dir := newDirectory()

	tests := []struct {
		name string
		user *model.User
		want bool
	}{
		{"author", dir["author"], true},
		{"admin", dir["admin1"], true},
		{"other producer", dir["other1"], false},
		{"subscriber", dir["reader"], false},
		{"nil user", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthorizedToDelete(tt.user, msg); got != tt.want {
				t.Errorf("IsAuthorizedToDelete = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"empty", "", false},
		{"single char", "a", true},
		{"max length", strings.Repeat("a", 512), true},
		{"over max", strings.Repeat("a", 513), false},
		{"multibyte within limit", strings.Repeat("あ", 512), true},
		{"multibyte over limit", strings.Repeat("あ", 513), false},
		{"newlines allowed", "line1\nline2", true},
		{"control characters allowed", "tab\there\x1b", true},
		{"NUL rejected", "before\x00after", false},
		{"only NUL", "\x00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidContent(tt.content); got != tt.want {
				t.Errorf("ValidContent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestService_Create_Success(t *testing.T) {
	var stored *model.Message
	repo := &mockMessageRepo{
		createFn: func(_ context.Context, msg *model.Message) error {
			stored = msg
			return nil
		},
	}
	dir := newDirectory()
	counter := &publishCounter{}
	svc := NewService(repo, dir, dir, counter)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("JST", 9*60*60))
	svc.now = func() time.Time { return fixed }

	msg, err := svc.Create(context.Background(), claimsFor("author"), "hello world")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if stored != msg {
		t.Error("expected created message to be persisted")
	}
	if msg.ProducerID != "u-author" {
		t.Errorf("ProducerID = %q, want u-author", msg.ProducerID)
	}
	if !msg.CreatedAt.Equal(fixed) || msg.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt = %v, want %v in UTC", msg.CreatedAt, fixed)
	}
	if counter.published != 1 {
		t.Errorf("published count = %d, want 1", counter.published)
	}
}

func TestService_Create_InvalidContent(t *testing.T) {
	dir := newDirectory()
	repo := &mockMessageRepo{
		createFn: func(_ context.Context, _ *model.Message) error {
			t.Fatal("Create must not be called for invalid content")
			return nil
		},
	}
	svc := NewService(repo, dir, dir, nil)

	_, err := svc.Create(context.Background(), claimsFor("author"), "")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidMessageContent)

	_, err = svc.Create(context.Background(), claimsFor("author"), strings.Repeat("x", 513))
	assertAPIErrorCode(t, err, model.ErrCodeInvalidMessageContent)

	_, err = svc.Create(context.Background(), claimsFor("author"), "hello\x00world")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidMessageContent)
}

func TestService_Create_NotAProducer(t *testing.T) {
	dir := newDirectory()
	svc := NewService(&mockMessageRepo{}, dir, dir, nil)

	_, err := svc.Create(context.Background(), claimsFor("reader"), "hello")
	assertAPIErrorCode(t, err, model.ErrCodeNotAProducer)
}

func TestService_Create_RepositoryError(t *testing.T) {
	dir := newDirectory()
	dbErr := errors.New("disk full")
	repo := &mockMessageRepo{
		createFn: func(_ context.Context, _ *model.Message) error { return dbErr },
	}
	svc := NewService(repo, dir, dir, nil)

	_, err := svc.Create(context.Background(), claimsFor("author"), "hello")
	if !errors.Is(err, dbErr) {
		t.Errorf("expected wrapped repository error, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	tests := []struct {
		name     string
		caller   string
		id       string
		wantCode string
	}{
		{"author deletes own message", "author", existingMessageID, ""},
		{"admin deletes any message", "admin1", existingMessageID, ""},
		{"other producer forbidden", "other1", existingMessageID, model.ErrCodeNotAuthorized},
		{"subscriber forbidden", "reader", existingMessageID, model.ErrCodeNotAuthorized},
		{"unknown id", "author", "7f1c2a3b-0000-4000-8000-000000000099", model.ErrCodeMessageNotFound},
		{"malformed id", "author", "not-a-uuid", model.ErrCodeMessageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repoWithMessage()
			dir := newDirectory()
			svc := NewService(repo, dir, dir, nil)

			err := svc.Delete(context.Background(), claimsFor(tt.caller), tt.id)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Delete returned error: %v", err)
				}
				if len(repo.deleted) != 1 || repo.deleted[0] != existingMessageID {
					t.Errorf("deleted = %v, want [%s]", repo.deleted, existingMessageID)
				}
				return
			}
			assertAPIErrorCode(t, err, tt.wantCode)
			if len(repo.deleted) != 0 {
				t.Errorf("expected no deletion, got %v", repo.deleted)
			}
		})
	}
}

func TestService_Delete_ConcurrentRemoval(t *testing.T) {
	repo := repoWithMessage()
	repo.deleteFn = func(_ context.Context, _ string) error {
		return fmt.Errorf("delete: %w", repository.ErrNotFound)
	}
	dir := newDirectory()
	svc := NewService(repo, dir, dir, nil)

	err := svc.Delete(context.Background(), claimsFor("author"), existingMessageID)
	assertAPIErrorCode(t, err, model.ErrCodeMessageNotFound)
}

func TestService_Get(t *testing.T) {
	dir := newDirectory()
	svc := NewService(repoWithMessage(), dir, dir, nil)

	msg, err := svc.Get(context.Background(), existingMessageID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want hello", msg.Content)
	}

	_, err = svc.Get(context.Background(), "7f1c2a3b-0000-4000-8000-000000000099")
	assertAPIErrorCode(t, err, model.ErrCodeMessageNotFound)
}

func TestService_ListByProducer(t *testing.T) {
	dir := newDirectory()
	var queried string
	repo := &mockMessageRepo{
		listByProducerFn: func(_ context.Context, producerID string) ([]*model.Message, error) {
			queried = producerID
			return []*model.Message{{ID: "m1", ProducerID: producerID}}, nil
		},
	}
	svc := NewService(repo, dir, dir, nil)

	msgs, err := svc.ListByProducer(context.Background(), "author")
	if err != nil {
		t.Fatalf("ListByProducer returned error: %v", err)
	}
	if queried != "u-author" {
		t.Errorf("queried producer = %q, want u-author", queried)
	}
	if len(msgs) != 1 {
		t.Errorf("len(msgs) = %d, want 1", len(msgs))
	}
}

func TestService_ListByProducer_Errors(t *testing.T) {
	dir := newDirectory()
	svc := NewService(&mockMessageRepo{}, dir, dir, nil)

	_, err := svc.ListByProducer(context.Background(), "ab")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidRequest)

	_, err = svc.ListByProducer(context.Background(), "nobody")
	assertAPIErrorCode(t, err, model.ErrCodeProducerNotFound)
}
