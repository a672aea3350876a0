// Package message はメッセージの投稿・取得・削除のドメインロジックを提供する。
package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/litter/internal/auth"
	"github.com/hitoshi/litter/internal/logger"
	"github.com/hitoshi/litter/internal/metrics"
	"github.com/hitoshi/litter/internal/model"
	"github.com/hitoshi/litter/internal/repository"
	"github.com/hitoshi/litter/internal/user"
)

// CallerResolver はトークンのクレームから呼び出し元ユーザーを解決する。
type CallerResolver interface {
	ResolveCaller(ctx context.Context, claims *auth.Claims) (*model.User, error)
}

// UserFinder はユーザー名によるユーザー検索のインターフェース。
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// Service はメッセージストアのサービス層。
type Service struct {
	messageRepo repository.MessageRepository
	callers     CallerResolver
	users       UserFinder
	metrics     metrics.MetricsCollector
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	messageRepo repository.MessageRepository,
	callers CallerResolver,
	users UserFinder,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		messageRepo: messageRepo,
		callers:     callers,
		users:       users,
		metrics:     metrics.OrNop(collector),
		now:         time.Now,
	}
}

// IsAuthorizedToDelete はユーザーがメッセージを削除できるかを返す。
// 投稿者本人または管理者ロールを持つユーザーのみ削除できる。
func IsAuthorizedToDelete(u *model.User, msg *model.Message) bool {
	if u == nil || msg == nil {
		return false
	}
	return msg.ProducerID == u.ID || u.IsAdmin()
}

// ValidContent はメッセージ本文が長さ制約を満たすかを返す。
// 長さはバイト数ではなく文字数で数える。
// PostgreSQLのTEXT型はNULを格納できないため、NULを含む本文は不正とする。
func ValidContent(content string) bool {
	if strings.IndexByte(content, 0) >= 0 {
		return false
	}
	n := utf8.RuneCountInString(content)
	return n >= model.MessageMinLength && n <= model.MessageMaxLength
}

// Create は呼び出し元をプロデューサーとしてメッセージを投稿する。
func (s *Service) Create(ctx context.Context, claims *auth.Claims, content string) (*model.Message, error) {
	if !ValidContent(content) {
		return nil, model.NewInvalidMessageContentError()
	}

	producer, err := s.callers.ResolveCaller(ctx, claims)
	if err != nil {
		return nil, err
	}
	if !producer.HasRole(model.RoleProducer) {
		return nil, model.NewNotAProducerError()
	}

	msg := &model.Message{
		ID:         uuid.New().String(),
		ProducerID: producer.ID,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("メッセージの作成に失敗しました: %w", err)
	}

	s.metrics.RecordMessagePublished()
	slog.Info("message created",
		logger.SafeString("producer", producer.Username),
		slog.String("message_id", msg.ID),
	)

	return msg, nil
}

// Get は指定IDのメッセージを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Message, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewMessageNotFoundError(logger.Sanitize(id))
	}

	msg, err := s.messageRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("メッセージの取得に失敗しました: %w", err)
	}
	if msg == nil {
		return nil, model.NewMessageNotFoundError(id)
	}
	return msg, nil
}

// Delete は指定IDのメッセージを削除する。
// 呼び出し元が投稿者でも管理者でもない場合はエラーを返す。
func (s *Service) Delete(ctx context.Context, claims *auth.Claims, id string) error {
	caller, err := s.callers.ResolveCaller(ctx, claims)
	if err != nil {
		return err
	}

	msg, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if !IsAuthorizedToDelete(caller, msg) {
		slog.Warn("unauthorized message deletion attempt",
			logger.SafeString("username", caller.Username),
			slog.String("message_id", msg.ID),
		)
		return model.NewNotAuthorizedError()
	}

	if err := s.messageRepo.Delete(ctx, msg.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewMessageNotFoundError(msg.ID)
		}
		return fmt.Errorf("メッセージの削除に失敗しました: %w", err)
	}

	slog.Info("message deleted",
		logger.SafeString("username", caller.Username),
		slog.String("message_id", msg.ID),
	)
	return nil
}

// ListByProducer は指定プロデューサーのメッセージ一覧を返す。
func (s *Service) ListByProducer(ctx context.Context, producerUsername string) ([]*model.Message, error) {
	if !user.ValidUsername(producerUsername) {
		return nil, model.NewInvalidProducerUsernameError()
	}

	producer, err := s.users.FindByUsername(ctx, producerUsername)
	if err != nil {
		return nil, fmt.Errorf("プロデューサーの検索に失敗しました: %w", err)
	}
	if producer == nil {
		return nil, model.NewProducerNotFoundError(producerUsername)
	}

	msgs, err := s.messageRepo.ListByProducer(ctx, producer.ID)
	if err != nil {
		return nil, fmt.Errorf("メッセージ一覧の取得に失敗しました: %w", err)
	}
	return msgs, nil
}

// ListAll は全メッセージを返す。
func (s *Service) ListAll(ctx context.Context) ([]*model.Message, error) {
	msgs, err := s.messageRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("メッセージ一覧の取得に失敗しました: %w", err)
	}
	return msgs, nil
}
