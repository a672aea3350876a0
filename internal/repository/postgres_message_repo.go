package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/litter/internal/model"
)

// PostgresMessageRepo はPostgreSQLを使用したメッセージリポジトリ。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// FindByID は指定IDのメッセージを取得する。見つからない場合はnilを返す。
func (r *PostgresMessageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	msg := &model.Message{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, producer_id, content, created_at FROM messages WHERE id = $1`,
		id,
	).Scan(&msg.ID, &msg.ProducerID, &msg.Content, &msg.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メッセージの取得に失敗しました: %w", err)
	}
	return msg, nil
}

// ListByProducer はプロデューサーのメッセージを作成日時順で返す。
func (r *PostgresMessageRepo) ListByProducer(ctx context.Context, producerID string) ([]*model.Message, error) {
	return r.list(ctx,
		`SELECT id, producer_id, content, created_at
		 FROM messages WHERE producer_id = $1 ORDER BY created_at ASC`,
		producerID,
	)
}

// ListAll は全メッセージを作成日時順で返す。
func (r *PostgresMessageRepo) ListAll(ctx context.Context) ([]*model.Message, error) {
	return r.list(ctx,
		`SELECT id, producer_id, content, created_at FROM messages ORDER BY created_at ASC`,
	)
}

func (r *PostgresMessageRepo) list(ctx context.Context, query string, args ...any) ([]*model.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("メッセージ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var msgs []*model.Message
	for rows.Next() {
		msg := &model.Message{}
		if err := rows.Scan(&msg.ID, &msg.ProducerID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("メッセージ行の読み取りに失敗しました: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("メッセージ一覧の走査に失敗しました: %w", err)
	}
	return msgs, nil
}

// Create はメッセージを作成する。
func (r *PostgresMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, producer_id, content, created_at)
		 VALUES ($1, $2, $3, $4)`,
		msg.ID, msg.ProducerID, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("メッセージの作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのメッセージを削除する。
func (r *PostgresMessageRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM messages WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("メッセージの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("メッセージが見つかりません: %s: %w", id, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)
