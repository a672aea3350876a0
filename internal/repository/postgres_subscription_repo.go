package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/litter/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した購読リポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// FindBySubscriberAndProducer は購読者IDとプロデューサーIDで購読を検索する。見つからない場合はnilを返す。
func (r *PostgresSubscriptionRepo) FindBySubscriberAndProducer(ctx context.Context, subscriberID, producerID string) (*model.Subscription, error) {
	sub := &model.Subscription{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, subscriber_id, producer_id, created_at
		 FROM subscriptions WHERE subscriber_id = $1 AND producer_id = $2`,
		subscriberID, producerID,
	).Scan(&sub.ID, &sub.SubscriberID, &sub.ProducerID, &sub.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("購読者とプロデューサーによる購読の検索に失敗しました: %w", err)
	}

	return sub, nil
}

// ListBySubscriber は購読者の購読一覧を作成日時順で返す。
func (r *PostgresSubscriptionRepo) ListBySubscriber(ctx context.Context, subscriberID string) ([]*model.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, subscriber_id, producer_id, created_at
		 FROM subscriptions WHERE subscriber_id = $1 ORDER BY created_at ASC`,
		subscriberID,
	)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var subs []*model.Subscription
	for rows.Next() {
		sub := &model.Subscription{}
		if err := rows.Scan(&sub.ID, &sub.SubscriberID, &sub.ProducerID, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("購読行の読み取りに失敗しました: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読一覧の走査に失敗しました: %w", err)
	}
	return subs, nil
}

// Create は購読を作成する。同一ペアが既に存在する場合はErrDuplicateをラップして返す。
func (r *PostgresSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, subscriber_id, producer_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		sub.ID, sub.SubscriberID, sub.ProducerID, sub.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("購読は既に存在します: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("購読の作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの購読を削除する。
func (r *PostgresSubscriptionRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("購読が見つかりません: %s: %w", id, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
