// Package user はユーザー登録・ログイン・呼び出し元解決のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/litter/internal/auth"
	"github.com/hitoshi/litter/internal/logger"
	"github.com/hitoshi/litter/internal/metrics"
	"github.com/hitoshi/litter/internal/model"
	"github.com/hitoshi/litter/internal/repository"
)

// PasswordHasher は一方向・ソルト付きのパスワードハッシュのインターフェース。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// TokenIssuer はユーザーのトークンを発行するインターフェース。
type TokenIssuer interface {
	Issue(user *model.User) (string, error)
}

// dummyPassword はユーザー不存在時にも検証コストを払うためのダミー平文。
const dummyPassword = "Dummy-Passw0rd!"

// Service はユーザーディレクトリのサービス層。
// 形式チェックは常にストア参照より先に行う。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	metrics  metrics.MetricsCollector

	dummyOnce   sync.Once
	dummyDigest string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		metrics:  metrics.OrNop(collector),
	}
}

// Register はユーザーを登録する。
// ロールは購読者のみで作成され、パスワードはハッシュ化して保存する。
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, error) {
	if !ValidUsername(username) || !ValidPassword(password) {
		return nil, model.NewInvalidCredentialsShapeError()
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewUsernameTakenError()
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: digest,
		Roles:        model.DefaultRoles(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// 事前チェックと挿入の間に同名ユーザーが作られた場合
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewUsernameTakenError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	s.metrics.RecordRegistration()
	slog.Info("user registered",
		logger.SafeString("username", user.Username),
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// Login はユーザー名とパスワードを検証し、トークンを発行する。
// ユーザー不存在とパスワード不一致は同一のエラーを返す。
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if !ValidUsername(username) || !ValidPassword(password) {
		s.metrics.RecordLogin(metrics.LoginResultInvalidShape)
		return "", model.NewInvalidCredentialsShapeError()
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		s.burnVerification(password)
		return "", s.badCredentials(username)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("パスワードの検証に失敗しました: %w", err)
	}
	if !ok {
		return "", s.badCredentials(username)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	s.metrics.RecordLogin(metrics.LoginResultSuccess)
	slog.Info("user logged in", logger.SafeString("username", user.Username))

	return token, nil
}

func (s *Service) badCredentials(username string) error {
	s.metrics.RecordLogin(metrics.LoginResultBadCredentials)
	slog.Warn("login failed", logger.SafeString("username", username))
	return model.NewBadCredentialsError()
}

// burnVerification はユーザーが存在しない場合にも1回分の検証を行い、応答時間の差を抑える。
func (s *Service) burnVerification(password string) {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			slog.Error("failed to prepare dummy digest", slog.String("error", err.Error()))
			return
		}
		s.dummyDigest = digest
	})
	if s.dummyDigest != "" {
		_, _ = s.hasher.Verify(password, s.dummyDigest)
	}
}

// ResolveCaller はトークンのsubjectから呼び出し元ユーザーを解決する。
func (s *Service) ResolveCaller(ctx context.Context, claims *auth.Claims) (*model.User, error) {
	if claims == nil || claims.Subject == "" {
		return nil, model.NewEmptyTokenSubjectError()
	}

	user, err := s.userRepo.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// LookupByUsername はユーザー名でユーザーを取得する。
func (s *Service) LookupByUsername(ctx context.Context, username string) (*model.User, error) {
	if !ValidUsername(username) {
		return nil, model.NewInvalidCredentialsShapeError()
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// ListByRole は指定ロールを持つユーザーの遅延シーケンスを返す。
// 呼び出しごとに新しいクエリを発行する。
func (s *Service) ListByRole(ctx context.Context, role string) iter.Seq2[*model.User, error] {
	return s.userRepo.ListByRole(ctx, role)
}

// ListAll は全ユーザーを返す。
func (s *Service) ListAll(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}
