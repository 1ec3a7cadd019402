// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, record, ai, config, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeConfiguration      = "CONFIGURATION_ERROR"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeReportNotFound     = "REPORT_NOT_FOUND"
	ErrCodeNoteNotFound       = "NOTE_NOT_FOUND"
	ErrCodeUnsupportedFile    = "UNSUPPORTED_FILE"
	ErrCodeReportTextMissing  = "REPORT_TEXT_MISSING"
	ErrCodeAINotConfigured    = "AI_NOT_CONFIGURED"
	ErrCodeAIFailed           = "AI_FAILED"
	ErrCodeSSOExchangeFailed  = "SSO_EXCHANGE_FAILED"
)

// NewInternalError は詳細を伏せた内部エラーを生成する。
// DB障害など原因をユーザーに見せるべきでないエラーの最終的な受け皿。
func NewInternalError() *APIError {
	return &APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewConfigurationError は必須の外部サービス認証情報が未設定の場合のエラーを生成する。
func NewConfigurationError(feature string) *APIError {
	return &APIError{
		Code:     ErrCodeConfiguration,
		Message:  fmt.Sprintf("%sが設定されていません。", feature),
		Category: "config",
		Action:   "管理者に環境変数の設定を確認するよう依頼してください。",
	}
}

// NewValidationError は必須フィールド欠落などの入力エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUnauthorizedError は認証されていないリクエストに対するエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "サインインしてください。",
	}
}

// NewForbiddenError は他ユーザーのデータへのアクセスに対するエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "このデータへのアクセス権がありません。",
		Category: "auth",
		Action:   "自分のアカウントのデータのみ操作できます。",
	}
}

// NewEmailTakenError は登録済みメールアドレスでのサインアップエラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "サインインするか、別のメールアドレスを使用してください。",
	}
}

// NewInvalidCredentialsError はサインイン失敗エラーを生成する。
// メールアドレス未登録とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewReportNotFoundError は検査レポート未検出エラーを生成する。
func NewReportNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeReportNotFound,
		Message:  "指定された検査レポートが見つかりません。",
		Category: "record",
		Action:   "レポート一覧を再読み込みしてください。",
	}
}

// NewNoteNotFoundError はメモ未検出エラーを生成する。
func NewNoteNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeNoteNotFound,
		Message:  "指定されたメモが見つかりません。",
		Category: "record",
		Action:   "メモ一覧を再読み込みしてください。",
	}
}

// NewUnsupportedFileError はPDF以外のファイルアップロードエラーを生成する。
func NewUnsupportedFileError() *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedFile,
		Message:  "PDFファイルのみアップロードできます。",
		Category: "validation",
		Action:   "検査レポートをPDF形式で書き出して再度お試しください。",
	}
}

// NewReportTextMissingError はチャット対象レポートにテキストが無い場合のエラーを生成する。
func NewReportTextMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeReportTextMissing,
		Message:  "検査レポートのテキストが利用できません。",
		Category: "record",
		Action:   "レポートを再アップロードしてください。",
	}
}

// NewAINotConfiguredError はAIモデルの認証情報未設定エラーを生成する。
func NewAINotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeAINotConfigured,
		Message:  "AI解析機能が設定されていません。",
		Category: "config",
		Action:   "管理者にAPIキーの設定を確認するよう依頼してください。",
	}
}

// NewAIFailedError はAIプロバイダー側の失敗エラーを生成する。
func NewAIFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeAIFailed,
		Message:  fmt.Sprintf("AI解析に失敗しました: %s", reason),
		Category: "ai",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewSSOExchangeFailedError は認可コード交換の失敗エラーを生成する。
func NewSSOExchangeFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeSSOExchangeFailed,
		Message:  fmt.Sprintf("SSO認証に失敗しました: %s", reason),
		Category: "auth",
		Action:   "再度サインインをお試しください。",
	}
}
