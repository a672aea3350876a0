package model

import "time"

// Subscription は「購読者がプロデューサーをフォローする」有向エッジを表す。
// (SubscriberID, ProducerID) の組は一意であり、作成後に変更されることはない。
type Subscription struct {
	ID           string
	SubscriberID string
	ProducerID   string
	CreatedAt    time.Time
}
