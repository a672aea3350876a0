package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/litter/internal/metrics"
	"github.com/hitoshi/litter/internal/middleware"
	"github.com/hitoshi/litter/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenParser       middleware.TokenParser
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	Gatherer          prometheus.Gatherer

	// ヘルスチェック
	HealthChecker HealthChecker

	// ドメインサービス
	UserService         UserServiceInterface
	SubscriptionService SubscriptionServiceInterface
	MessageService      MessageServiceInterface
	FeedResolver        FeedResolverInterface
}

// RoutePolicy は全ルートのアクセス区分を返す。
// /messages/{id} より具体的なルートを先に並べる。
func RoutePolicy() *middleware.Policy {
	return middleware.NewPolicy(
		middleware.PublicRoute(http.MethodPost, "/user/register"),
		middleware.PublicRoute(http.MethodPost, "/user/login"),
		middleware.PublicRoute(http.MethodGet, "/health"),
		middleware.PublicRoute(http.MethodGet, "/metrics"),

		middleware.RoleRoute(http.MethodGet, "/user/all", model.RoleAdmin),
		middleware.AuthenticatedRoute(http.MethodGet, "/user/producers"),
		middleware.AuthenticatedRoute(http.MethodGet, "/user/me"),

		middleware.RoleRoute(http.MethodGet, "/messages/all", model.RoleAdmin),
		middleware.RoleRoute(http.MethodGet, "/messages/subscribed", model.RoleSubscriber),
		middleware.AuthenticatedRoute(http.MethodGet, "/messages/producer/{username}"),
		middleware.RoleRoute(http.MethodPost, "/messages", model.RoleProducer),
		middleware.AuthenticatedRoute("", "/messages/{id}"),

		middleware.AuthenticatedRoute("", "/subscriptions"),
		middleware.AuthenticatedRoute("", "/subscriptions/{producerUsername}"),
	)
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → Policy → RateLimit(GeneralMiddleware)
//
// 登録・ログインには認証用のIP単位レート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	r.Use(middleware.NewPolicyMiddleware(RoutePolicy(), deps.TokenParser))
	r.Use(deps.RateLimiter.GeneralMiddleware())

	userHandler := NewUserHandler(deps.UserService)
	subHandler := NewSubscriptionHandler(deps.SubscriptionService)
	msgHandler := NewMessageHandler(deps.MessageService, deps.FeedResolver)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// ユーザー
	r.Route("/user", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
		})

		r.Get("/all", userHandler.ListAll)
		r.Get("/producers", userHandler.ListProducers)
		r.Get("/me", userHandler.Me)
	})

	// 購読管理
	r.Route("/subscriptions", func(r chi.Router) {
		r.Get("/", subHandler.ListSubscriptions)
		r.Put("/{producerUsername}", subHandler.Subscribe)
		r.Delete("/{producerUsername}", subHandler.Unsubscribe)
	})

	// メッセージ
	r.Route("/messages", func(r chi.Router) {
		r.Post("/", msgHandler.Create)
		r.Get("/all", msgHandler.ListAll)
		r.Get("/subscribed", msgHandler.ListSubscribed)
		r.Get("/producer/{username}", msgHandler.ListByProducer)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", msgHandler.Get)
			r.Delete("/", msgHandler.Delete)
		})
	})

	return r
}
