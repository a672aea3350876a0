package model

import "time"

// メッセージ本文の長さ制約（文字数）。
const (
	MessageMinLength = 1
	MessageMaxLength = 512
)

// Message はプロデューサーが投稿したテキストを表す。
// ProducerIDとCreatedAtはイミュータブル。
type Message struct {
	ID         string
	ProducerID string
	Content    string
	CreatedAt  time.Time
}
