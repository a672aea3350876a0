// Package feed は購読者のフィード（購読中プロデューサーのメッセージ集合）を解決する。
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/litter/internal/auth"
	"github.com/hitoshi/litter/internal/logger"
	"github.com/hitoshi/litter/internal/metrics"
	"github.com/hitoshi/litter/internal/model"
	"github.com/hitoshi/litter/internal/repository"
)

// CallerResolver はトークンのクレームから呼び出し元ユーザーを解決する。
type CallerResolver interface {
	ResolveCaller(ctx context.Context, claims *auth.Claims) (*model.User, error)
}

// Resolver はフィード解決のサービス層。
// 購読一覧を1回、プロデューサーごとにメッセージを1回ずつ取得する。
type Resolver struct {
	subRepo     repository.SubscriptionRepository
	messageRepo repository.MessageRepository
	callers     CallerResolver
	metrics     metrics.MetricsCollector
}

// NewResolver はResolverの新しいインスタンスを生成する。
func NewResolver(
	subRepo repository.SubscriptionRepository,
	messageRepo repository.MessageRepository,
	callers CallerResolver,
	collector metrics.MetricsCollector,
) *Resolver {
	return &Resolver{
		subRepo:     subRepo,
		messageRepo: messageRepo,
		callers:     callers,
		metrics:     metrics.OrNop(collector),
	}
}

// ResolveFeed は呼び出し元が購読している全プロデューサーのメッセージを連結して返す。
// プロデューサー間の順序は購読順、プロデューサー内の順序はストアの返却順に従う。
func (r *Resolver) ResolveFeed(ctx context.Context, claims *auth.Claims) ([]*model.Message, error) {
	start := time.Now()
	defer func() {
		r.metrics.RecordFeedResolveLatency(time.Since(start))
	}()

	caller, err := r.callers.ResolveCaller(ctx, claims)
	if err != nil {
		return nil, err
	}
	if !caller.HasRole(model.RoleSubscriber) {
		return nil, model.NewNotASubscriberError()
	}

	subs, err := r.subRepo.ListBySubscriber(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}

	seen := make(map[string]struct{}, len(subs))
	feed := make([]*model.Message, 0)
	for _, sub := range subs {
		if _, ok := seen[sub.ProducerID]; ok {
			continue
		}
		seen[sub.ProducerID] = struct{}{}

		msgs, err := r.messageRepo.ListByProducer(ctx, sub.ProducerID)
		if err != nil {
			return nil, fmt.Errorf("プロデューサー %s のメッセージ取得に失敗しました: %w", sub.ProducerID, err)
		}
		feed = append(feed, msgs...)
	}

	slog.Debug("feed resolved",
		logger.SafeString("username", caller.Username),
		slog.Int("producers", len(seen)),
		slog.Int("messages", len(feed)),
	)

	return feed, nil
}
