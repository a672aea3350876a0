// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"iter"

	"github.com/hitoshi/litter/internal/model"
)

// ErrDuplicate は一意制約違反を表す。
// 呼び出し側はerrors.Isで判定し、ドメインエラーに変換する。
var ErrDuplicate = errors.New("duplicate key")

// ErrNotFound は削除対象の行が存在しなかったことを表す。
var ErrNotFound = errors.New("row not found")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名が重複する場合はErrDuplicateをラップして返す。
	Create(ctx context.Context, user *model.User) error

	// ListAll は全ユーザーをユーザー名順で返す。
	ListAll(ctx context.Context) ([]*model.User, error)

	// ListByRole は指定ロールを持つユーザーを遅延シーケンスとして返す。
	// 反復のたびに新しいクエリを発行する。
	ListByRole(ctx context.Context, role string) iter.Seq2[*model.User, error]
}

// SubscriptionRepository は購読データの永続化インターフェース。
type SubscriptionRepository interface {
	// FindBySubscriberAndProducer は購読者IDとプロデューサーIDで購読を検索する。
	// 見つからない場合はnilを返す。
	FindBySubscriberAndProducer(ctx context.Context, subscriberID, producerID string) (*model.Subscription, error)

	// ListBySubscriber は購読者の購読一覧を作成日時順で返す。
	ListBySubscriber(ctx context.Context, subscriberID string) ([]*model.Subscription, error)

	// Create は購読を作成する。同一ペアが既に存在する場合はErrDuplicateをラップして返す。
	Create(ctx context.Context, subscription *model.Subscription) error

	// Delete は指定IDの購読を削除する。対象が存在しない場合はErrNotFoundをラップして返す。
	Delete(ctx context.Context, id string) error
}

// MessageRepository はメッセージデータの永続化インターフェース。
type MessageRepository interface {
	// FindByID は指定IDのメッセージを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Message, error)

	// ListByProducer はプロデューサーのメッセージを作成日時順で返す。
	ListByProducer(ctx context.Context, producerID string) ([]*model.Message, error)

	// ListAll は全メッセージを作成日時順で返す。
	ListAll(ctx context.Context) ([]*model.Message, error)

	// Create はメッセージを作成する。
	Create(ctx context.Context, message *model.Message) error

	// Delete は指定IDのメッセージを削除する。対象が存在しない場合はErrNotFoundをラップして返す。
	Delete(ctx context.Context, id string) error
}
