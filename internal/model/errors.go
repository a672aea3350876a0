package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, subscription, message, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentialsShape = "INVALID_CREDENTIALS_SHAPE"
	ErrCodeUsernameTaken           = "USERNAME_TAKEN"
	ErrCodeBadCredentials          = "BAD_CREDENTIALS"
	ErrCodeEmptyTokenSubject       = "EMPTY_TOKEN_SUBJECT"
	ErrCodeUnauthorized            = "UNAUTHORIZED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeUserNotFound            = "USER_NOT_FOUND"
	ErrCodeProducerNotFound        = "PRODUCER_NOT_FOUND"
	ErrCodeAlreadySubscribed       = "ALREADY_SUBSCRIBED"
	ErrCodeSubscriptionNotFound    = "SUBSCRIPTION_NOT_FOUND"
	ErrCodeNotASubscriber          = "NOT_A_SUBSCRIBER"
	ErrCodeNotAProducer            = "NOT_A_PRODUCER"
	ErrCodeNotAuthorized           = "NOT_AUTHORIZED"
	ErrCodeInvalidMessageContent   = "INVALID_MESSAGE_CONTENT"
	ErrCodeMessageNotFound         = "MESSAGE_NOT_FOUND"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeRateLimitExceeded       = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// NewInvalidCredentialsShapeError はユーザー名またはパスワードの形式不正エラーを生成する。
func NewInvalidCredentialsShapeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentialsShape,
		Message:  "ユーザー名またはパスワードの形式が正しくありません。",
		Category: "validation",
		Action:   "ユーザー名は英数字・アンダースコア・ハイフンの4〜32文字、パスワードは大文字・小文字・数字・記号を含む8文字以上で入力してください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "このユーザー名は既に使用されています。",
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewBadCredentialsError は認証情報不一致エラーを生成する。
// ユーザー不存在とパスワード不一致の両方で同一の内容を返す。
func NewBadCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeBadCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewEmptyTokenSubjectError はトークンにsubjectが含まれない場合のエラーを生成する。
func NewEmptyTokenSubjectError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyTokenSubject,
		Message:  "トークンにユーザー情報が含まれていません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
// 検証失敗の具体的な理由は含めない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "必要なロールを持つアカウントでログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ユーザー名を確認するか、ログインし直してください。",
	}
}

// NewProducerNotFoundError は購読対象のプロデューサーが見つからない場合のエラーを生成する。
func NewProducerNotFoundError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeProducerNotFound,
		Message:  fmt.Sprintf("指定されたプロデューサーが見つかりません: %s", username),
		Category: "subscription",
		Action:   "プロデューサー一覧からユーザー名を確認してください。",
	}
}

// NewAlreadySubscribedError は既に購読済みのプロデューサーを再度購読しようとした場合のエラーを生成する。
func NewAlreadySubscribedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadySubscribed,
		Message:  "このプロデューサーは既に購読しています。",
		Category: "subscription",
		Action:   "購読一覧から該当プロデューサーを確認してください。",
	}
}

// NewSubscriptionNotFoundError は購読が見つからない場合のエラーを生成する。
func NewSubscriptionNotFoundError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeSubscriptionNotFound,
		Message:  fmt.Sprintf("指定されたプロデューサーを購読していません: %s", username),
		Category: "subscription",
		Action:   "購読一覧を確認してください。",
	}
}

// NewNotASubscriberError は購読者ロールを持たない場合のエラーを生成する。
func NewNotASubscriberError() *APIError {
	return &APIError{
		Code:     ErrCodeNotASubscriber,
		Message:  "購読者ロールを持たないユーザーは購読一覧を参照できません。",
		Category: "subscription",
		Action:   "購読者ロールを持つアカウントでログインしてください。",
	}
}

// NewNotAProducerError はプロデューサーロールを持たない場合のエラーを生成する。
func NewNotAProducerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAProducer,
		Message:  "プロデューサーロールを持たないユーザーはメッセージを投稿できません。",
		Category: "message",
		Action:   "プロデューサーロールを持つアカウントでログインしてください。",
	}
}

// NewNotAuthorizedError はメッセージの所有者でも管理者でもない場合のエラーを生成する。
func NewNotAuthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAuthorized,
		Message:  "このメッセージを削除する権限がありません。",
		Category: "message",
		Action:   "自分が投稿したメッセージのみ削除できます。",
	}
}

// NewInvalidMessageContentError はメッセージ本文が長さ制約を満たさないか、NUL文字を含む場合のエラーを生成する。
func NewInvalidMessageContentError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMessageContent,
		Message:  fmt.Sprintf("メッセージ本文はNUL文字を含まない%d〜%d文字で入力してください。", MessageMinLength, MessageMaxLength),
		Category: "validation",
		Action:   "本文の長さを調整してから再度投稿してください。",
	}
}

// NewMessageNotFoundError はメッセージが見つからない場合のエラーを生成する。
func NewMessageNotFoundError(messageID string) *APIError {
	return &APIError{
		Code:     ErrCodeMessageNotFound,
		Message:  fmt.Sprintf("指定されたメッセージが見つかりません: %s", messageID),
		Category: "message",
		Action:   "メッセージIDを確認してください。",
	}
}

// NewInvalidRequestError はリクエストボディが不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  reason,
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewInvalidProducerUsernameError はプロデューサー名が形式を満たさない場合のエラーを生成する。
func NewInvalidProducerUsernameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "プロデューサー名の形式が正しくありません。",
		Category: "validation",
		Action:   "プロデューサー名は英数字・アンダースコア・ハイフンの4〜32文字で指定してください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternalError,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
