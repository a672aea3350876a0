package handler

import (
	"context"
	"iter"
	"net/http"

	"github.com/hitoshi/litter/internal/auth"
	"github.com/hitoshi/litter/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Register はユーザーを登録する。
	Register(ctx context.Context, username, password string) (*model.User, error)
	// Login は認証情報を検証してトークンを返す。
	Login(ctx context.Context, username, password string) (string, error)
	// ResolveCaller はクレームから呼び出し元ユーザーを解決する。
	ResolveCaller(ctx context.Context, claims *auth.Claims) (*model.User, error)
	// ListAll は全ユーザーを返す。
	ListAll(ctx context.Context) ([]*model.User, error)
	// ListByRole は指定ロールを持つユーザーの遅延シーケンスを返す。
	ListByRole(ctx context.Context, role string) iter.Seq2[*model.User, error]
}

// UserHandler はユーザー登録・ログイン・一覧のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// credentialsRequest は登録・ログインリクエストのボディ。
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	Token string `json:"token"`
}

// userResponse はユーザー情報のAPIレスポンス。
// パスワードハッシュとロックアウト関連フィールドは含めない。
type userResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Register はユーザーを登録する。
// POST /user/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// Login はユーザー名とパスワードでログインし、Bearerトークンを返す。
// POST /user/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

// Me は呼び出し元のユーザー情報を返す。
// GET /user/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	u, err := h.service.ResolveCaller(r.Context(), claims)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// ListAll は全ユーザーを返す。
// GET /user/all
func (h *UserHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponses(users))
}

// ListProducers はプロデューサーロールを持つユーザーを返す。
// GET /user/producers
func (h *UserHandler) ListProducers(w http.ResponseWriter, r *http.Request) {
	producers := make([]userResponse, 0)
	for u, err := range h.service.ListByRole(r.Context(), model.RoleProducer) {
		if err != nil {
			handleServiceError(w, err)
			return
		}
		producers = append(producers, toUserResponse(u))
	}

	writeJSON(w, http.StatusOK, producers)
}
