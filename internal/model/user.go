// Package model はドメインモデルを定義する。
package model

import (
	"slices"
	"time"
)

// ロールタグ。1ユーザーが複数のロールを保持できる。
const (
	RoleSubscriber = "subscriber"
	RoleProducer   = "producer"
	RoleAdmin      = "admin"
)

// DefaultRoles は登録直後のユーザーに付与されるロール。
func DefaultRoles() []string {
	return []string{RoleSubscriber}
}

// User はサービス利用ユーザーを表す。
// PasswordHashとロックアウト関連フィールドはAPIレスポンスに含めない。
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Roles        []string

	// ロックアウト用のフィールド。永続化のみ行い、判定には使用しない。
	LockedUntil         *time.Time
	FailedLoginAttempts int

	CreatedAt time.Time
}

// HasRole はユーザーが指定ロールを保持しているかを返す。
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Roles, role)
}

// IsAdmin は管理者ロールを保持しているかを返す。
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}
