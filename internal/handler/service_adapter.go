package handler

import (
	"github.com/hitoshi/litter/internal/feed"
	"github.com/hitoshi/litter/internal/message"
	"github.com/hitoshi/litter/internal/model"
	"github.com/hitoshi/litter/internal/subscription"
	"github.com/hitoshi/litter/internal/user"
)

// toUserResponse はmodel.UserをAPIレスポンスに変換する。
func toUserResponse(u *model.User) userResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userResponse{
		ID:       u.ID,
		Username: u.Username,
		Roles:    roles,
	}
}

func toUserResponses(users []*model.User) []userResponse {
	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	return resp
}

// toSubscriptionResponse はmodel.SubscriptionをAPIレスポンスに変換する。
func toSubscriptionResponse(s *model.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:           s.ID,
		SubscriberID: s.SubscriberID,
		ProducerID:   s.ProducerID,
		CreatedAt:    s.CreatedAt,
	}
}

// toMessageResponse はmodel.MessageをAPIレスポンスに変換する。
func toMessageResponse(m *model.Message) messageResponse {
	return messageResponse{
		ID:         m.ID,
		ProducerID: m.ProducerID,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
}

func toMessageResponses(msgs []*model.Message) []messageResponse {
	resp := make([]messageResponse, len(msgs))
	for i, m := range msgs {
		resp[i] = toMessageResponse(m)
	}
	return resp
}

// --- compile-time interface checks ---

var _ UserServiceInterface = (*user.Service)(nil)
var _ SubscriptionServiceInterface = (*subscription.Service)(nil)
var _ MessageServiceInterface = (*message.Service)(nil)
var _ FeedResolverInterface = (*feed.Resolver)(nil)
