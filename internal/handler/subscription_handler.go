package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/litter/internal/auth"
	"github.com/hitoshi/litter/internal/model"
)

// SubscriptionServiceInterface は購読ハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	// Subscribe は呼び出し元が指定プロデューサーを購読する。
	Subscribe(ctx context.Context, claims *auth.Claims, producerUsername string) (*model.Subscription, error)
	// Unsubscribe は呼び出し元の指定プロデューサーへの購読を解除する。
	Unsubscribe(ctx context.Context, claims *auth.Claims, producerUsername string) error
	// ListForSubscriber は呼び出し元の購読一覧を返す。
	ListForSubscriber(ctx context.Context, claims *auth.Claims) ([]*model.Subscription, error)
}

// SubscriptionHandler は購読管理のHTTPハンドラー。
type SubscriptionHandler struct {
	service SubscriptionServiceInterface
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(service SubscriptionServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
	}
}

// subscriptionResponse は購読情報のAPIレスポンス。
type subscriptionResponse struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriber_id"`
	ProducerID   string    `json:"producer_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Subscribe は指定プロデューサーを購読する。
// PUT /subscriptions/{producerUsername}
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	sub, err := h.service.Subscribe(r.Context(), claims, chi.URLParam(r, "producerUsername"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSubscriptionResponse(sub))
}

// Unsubscribe は購読を解除する。
// DELETE /subscriptions/{producerUsername}
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	if err := h.service.Unsubscribe(r.Context(), claims, chi.URLParam(r, "producerUsername")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions は呼び出し元の購読一覧を取得する。
// GET /subscriptions
func (h *SubscriptionHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	subs, err := h.service.ListForSubscriber(r.Context(), claims)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]subscriptionResponse, len(subs))
	for i, s := range subs {
		resp[i] = toSubscriptionResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}
