// Package subscription は購読者からプロデューサーへの購読エッジを管理する。
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

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
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// Service は購読台帳のサービス層。
// (購読者, プロデューサー) の組は一意で、再購読はエラーとして扱う。
type Service struct {
	subRepo repository.SubscriptionRepository
	callers CallerResolver
	users   UserFinder
	metrics metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	subRepo repository.SubscriptionRepository,
	callers CallerResolver,
	users UserFinder,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		subRepo: subRepo,
		callers: callers,
		users:   users,
		metrics: metrics.OrNop(collector),
	}
}

// resolvePair は呼び出し元とプロデューサーを解決する。
func (s *Service) resolvePair(ctx context.Context, claims *auth.Claims, producerUsername string) (*model.User, *model.User, error) {
	if !user.ValidUsername(producerUsername) {
		return nil, nil, model.NewInvalidProducerUsernameError()
	}

	subscriber, err := s.callers.ResolveCaller(ctx, claims)
	if err != nil {
		return nil, nil, err
	}

	producer, err := s.users.FindByUsername(ctx, producerUsername)
	if err != nil {
		return nil, nil, fmt.Errorf("プロデューサーの検索に失敗しました: %w", err)
	}
	if producer == nil {
		return nil, nil, model.NewProducerNotFoundError(producerUsername)
	}

	return subscriber, producer, nil
}

// Subscribe は呼び出し元が指定プロデューサーを購読するエッジを作成する。
func (s *Service) Subscribe(ctx context.Context, claims *auth.Claims, producerUsername string) (*model.Subscription, error) {
	subscriber, producer, err := s.resolvePair(ctx, claims, producerUsername)
	if err != nil {
		return nil, err
	}

	existing, err := s.subRepo.FindBySubscriberAndProducer(ctx, subscriber.ID, producer.ID)
	if err != nil {
		return nil, fmt.Errorf("購読の検索に失敗しました: %w", err)
	}
	if existing != nil {
		slog.Warn("attempted to create pre-existing subscription",
			logger.SafeString("subscriber", subscriber.Username),
			logger.SafeString("producer", producer.Username),
		)
		return nil, model.NewAlreadySubscribedError()
	}

	sub := &model.Subscription{
		ID:           uuid.New().String(),
		SubscriberID: subscriber.ID,
		ProducerID:   producer.ID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		// 存在チェックと挿入の間に同一ペアが作られた場合は一意制約で検出される
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewAlreadySubscribedError()
		}
		return nil, fmt.Errorf("購読の作成に失敗しました: %w", err)
	}

	s.metrics.RecordSubscription(metrics.SubscriptionActionSubscribe)
	slog.Info("subscription created",
		logger.SafeString("subscriber", subscriber.Username),
		logger.SafeString("producer", producer.Username),
	)

	return sub, nil
}

// Unsubscribe は呼び出し元と指定プロデューサーの購読エッジを削除する。
func (s *Service) Unsubscribe(ctx context.Context, claims *auth.Claims, producerUsername string) error {
	subscriber, producer, err := s.resolvePair(ctx, claims, producerUsername)
	if err != nil {
		return err
	}

	sub, err := s.subRepo.FindBySubscriberAndProducer(ctx, subscriber.ID, producer.ID)
	if err != nil {
		return fmt.Errorf("購読の検索に失敗しました: %w", err)
	}
	if sub == nil {
		return model.NewSubscriptionNotFoundError(producerUsername)
	}

	if err := s.subRepo.Delete(ctx, sub.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewSubscriptionNotFoundError(producerUsername)
		}
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}

	s.metrics.RecordSubscription(metrics.SubscriptionActionUnsubscribe)
	slog.Info("subscription deleted",
		logger.SafeString("subscriber", subscriber.Username),
		logger.SafeString("producer", producer.Username),
	)

	return nil
}

// ListForSubscriber は呼び出し元が所有する購読エッジの一覧を返す。
// 呼び出し元が購読者ロールを持たない場合はエラーを返す。
func (s *Service) ListForSubscriber(ctx context.Context, claims *auth.Claims) ([]*model.Subscription, error) {
	caller, err := s.callers.ResolveCaller(ctx, claims)
	if err != nil {
		return nil, err
	}
	if !caller.HasRole(model.RoleSubscriber) {
		return nil, model.NewNotASubscriberError()
	}

	subs, err := s.subRepo.ListBySubscriber(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}
	return subs, nil
}
