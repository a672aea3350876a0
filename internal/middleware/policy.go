package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/litter/internal/model"
)

// AccessClass はルートのアクセス区分。
type AccessClass int

const (
	// Authenticated は有効なトークンを要求する。ルールに一致しない場合の既定値。
	Authenticated AccessClass = iota
	// Public はトークンを要求しない。
	Public
	// RoleRestricted は有効なトークンに加えて特定ロールのクレームを要求する。
	RoleRestricted
)

// Rule はメソッドとパスパターンに対するアクセス区分。
// Methodが空の場合は全メソッドに一致する。
// パターン中の {name} は空でない1セグメントに一致する。
type Rule struct {
	Method  string
	Pattern string
	Access  AccessClass
	Role    string
}

// PublicRoute は公開ルールを生成する。
func PublicRoute(method, pattern string) Rule {
	return Rule{Method: method, Pattern: pattern, Access: Public}
}

// AuthenticatedRoute は認証必須ルールを生成する。
func AuthenticatedRoute(method, pattern string) Rule {
	return Rule{Method: method, Pattern: pattern, Access: Authenticated}
}

// RoleRoute はロール必須ルールを生成する。
func RoleRoute(method, pattern, role string) Rule {
	return Rule{Method: method, Pattern: pattern, Access: RoleRestricted, Role: role}
}

// Policy はルートパターンとアクセス区分の静的な対応表。
// 上から順に評価し、最初に一致したルールを適用する。
type Policy struct {
	rules []compiledRule
}

type compiledRule struct {
	Rule
	segments []string
}

// NewPolicy はルール一覧からPolicyを生成する。
func NewPolicy(rules ...Rule) *Policy {
	p := &Policy{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		p.rules = append(p.rules, compiledRule{Rule: r, segments: splitPath(r.Pattern)})
	}
	return p
}

// Match はリクエストに適用されるルールを返す。
// どのルールにも一致しない場合は認証必須として扱う。
func (p *Policy) Match(method, path string) Rule {
	segments := splitPath(path)
	for _, r := range p.rules {
		if r.Method != "" && r.Method != method {
			continue
		}
		if matchSegments(r.segments, segments) {
			return r.Rule
		}
	}
	return Rule{Method: method, Pattern: path, Access: Authenticated}
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, seg := range pattern {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if path[i] == "" {
				return false
			}
			continue
		}
		if seg != path[i] {
			return false
		}
	}
	return true
}

// NewPolicyMiddleware はハンドラー実行前に認可ポリシーを評価するミドルウェアを返す。
// 有効なトークンがあれば公開ルートでもクレームをコンテキストに注入する。
// トークン不備は理由を含まない401、ロール不足は403で応答する。
func NewPolicyMiddleware(policy *Policy, parser TokenParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule := policy.Match(r.Method, r.URL.Path)

			if token := bearerToken(r); token != "" {
				claims, err := parser.Parse(token)
				if err != nil {
					slog.Debug("token rejected",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				} else {
					r = r.WithContext(ContextWithClaims(r.Context(), claims))
					recordCaller(r.Context(), claims.Subject)
				}
			}

			if rule.Access == Public {
				next.ServeHTTP(w, r)
				return
			}

			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			if rule.Access == RoleRestricted && !claims.HasRole(rule.Role) {
				slog.Warn("access denied",
					slog.String("path", r.URL.Path),
					slog.String("required_role", rule.Role),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
