package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/litter/internal/auth"
	"github.com/hitoshi/litter/internal/model"
)

// MessageServiceInterface はメッセージハンドラーが必要とするサービスインターフェース。
type MessageServiceInterface interface {
	Create(ctx context.Context, claims *auth.Claims, content string) (*model.Message, error)
	Get(ctx context.Context, id string) (*model.Message, error)
	Delete(ctx context.Context, claims *auth.Claims, id string) error
	ListByProducer(ctx context.Context, producerUsername string) ([]*model.Message, error)
	ListAll(ctx context.Context) ([]*model.Message, error)
}

// FeedResolverInterface は購読フィードの解決インターフェース。
type FeedResolverInterface interface {
	ResolveFeed(ctx context.Context, claims *auth.Claims) ([]*model.Message, error)
}

// MessageHandler はメッセージのHTTPハンドラー。
type MessageHandler struct {
	service MessageServiceInterface
	feed    FeedResolverInterface
}

// NewMessageHandler はMessageHandlerを生成する。
func NewMessageHandler(service MessageServiceInterface, feed FeedResolverInterface) *MessageHandler {
	return &MessageHandler{
		service: service,
		feed:    feed,
	}
}

// createMessageRequest はメッセージ投稿リクエストのボディ。
type createMessageRequest struct {
	Content string `json:"content"`
}

// messageResponse はメッセージのAPIレスポンス。
type messageResponse struct {
	ID         string    `json:"id"`
	ProducerID string    `json:"producer_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Create はメッセージを投稿する。
// POST /messages
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req createMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.service.Create(r.Context(), claims, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMessageResponse(msg))
}

// Get はメッセージを1件取得する。
// GET /messages/{id}
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	msg, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMessageResponse(msg))
}

// Delete はメッセージを削除する。
// DELETE /messages/{id}
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), claims, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListByProducer は指定プロデューサーのメッセージ一覧を返す。
// GET /messages/producer/{username}
func (h *MessageHandler) ListByProducer(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.service.ListByProducer(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMessageResponses(msgs))
}

// ListAll は全メッセージを返す。
// GET /messages/all
func (h *MessageHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMessageResponses(msgs))
}

// ListSubscribed は呼び出し元が購読しているプロデューサーのメッセージを返す。
// GET /messages/subscribed
func (h *MessageHandler) ListSubscribed(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	msgs, err := h.feed.ResolveFeed(r.Context(), claims)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMessageResponses(msgs))
}
