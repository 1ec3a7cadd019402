package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/labnote/internal/middleware"
	"github.com/hitoshi/labnote/internal/model"
)

// LabReportServiceInterface は検査レポートハンドラーが必要とするサービスインターフェース。
type LabReportServiceInterface interface {
	Upload(ctx context.Context, userID, fileName, contentType string, data []byte) (*model.LabReport, error)
	List(ctx context.Context, userID string) ([]*model.LabReport, error)
	Delete(ctx context.Context, userID, reportID string) error
	AnalyzeText(ctx context.Context, rawText string, structured *model.StructuredData) (string, error)
	Chat(ctx context.Context, userID, reportID, question string) (string, error)
}

// LabHandler は検査レポート管理のHTTPハンドラー。
type LabHandler struct {
	service       LabReportServiceInterface
	maxUploadSize int64
}

// NewLabHandler はLabHandlerを生成する。
func NewLabHandler(service LabReportServiceInterface, maxUploadSize int64) *LabHandler {
	return &LabHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
	}
}

// labReportResponse は検査レポートのAPIレスポンス。
type labReportResponse struct {
	ID             string                `json:"id"`
	FileName       string                `json:"fileName"`
	UploadedAt     time.Time             `json:"uploadedAt"`
	AIAnalysis     *string               `json:"aiAnalysis"`
	StructuredData *model.StructuredData `json:"structuredData,omitempty"`
	RawTextLength  int                   `json:"rawTextLength"`
}

// analyzeRequest はテキスト解析リクエストのボディ。
type analyzeRequest struct {
	Text           string                `json:"text"`
	StructuredData *model.StructuredData `json:"structuredData,omitempty"`
}

// chatRequest はレポートチャットリクエストのボディ。
type chatRequest struct {
	ReportID string `json:"reportId"`
	Question string `json:"question"`
	UserID   string `json:"userId,omitempty"`
}

// Upload はPDFレポートのアップロードを処理する。
// multipart/form-data で file（必須）、fileName（省略時はファイル名を使用）、
// userId（指定時は認証ユーザーとの一致を検証）を受け付ける。
// POST /api/lab/upload
func (h *LabHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("マルチパートフォームの解析に失敗しました"))
		return
	}

	// フォームのuserIdと認証ユーザーの一致を検証（多層防御）
	if formUserID := r.FormValue("userId"); formUserID != "" && formUserID != userID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("ファイルが指定されていません"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("ファイルの読み込みに失敗しました"))
		return
	}

	fileName := r.FormValue("fileName")
	if fileName == "" {
		fileName = header.Filename
	}
	contentType := header.Header.Get("Content-Type")

	report, err := h.service.Upload(r.Context(), userID, fileName, contentType, data)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"labReport": toLabReportResponse(report),
	})
}

// ListReports は検査レポート一覧をアップロード日時の新しい順で返す。
// 未認証リクエストにはエラーではなく空の一覧を返す
// （認可されていないデータは存在しないものとして扱う）。
// GET /api/lab/reports
func (h *LabHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeLabReportList(w, []*model.LabReport{})
		return
	}

	// クエリのuserIdと認証ユーザーの一致を検証（多層防御）
	if queryUserID := r.URL.Query().Get("userId"); queryUserID != "" && queryUserID != userID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	reports, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeLabReportList(w, reports)
}

// DeleteReport は検査レポートを削除する。
// DELETE /api/lab/reports/{id}
func (h *LabHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	// クエリのuserIdと認証ユーザーの一致を検証（多層防御）
	if queryUserID := r.URL.Query().Get("userId"); queryUserID != "" && queryUserID != userID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	// パスパラメータを優先し、クエリパラメータ形式もサポートする
	reportID := chi.URLParam(r, "id")
	if reportID == "" {
		reportID = r.URL.Query().Get("id")
	}
	if reportID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("レポートIDが指定されていません"))
		return
	}

	if err := h.service.Delete(r.Context(), userID, reportID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}

// Analyze はレポートテキストをその場で解析する。結果は保存されない。
// POST /api/lab/analyze
func (h *LabHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	if req.Text == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("textフィールドは必須です"))
		return
	}

	analysis, err := h.service.AnalyzeText(r.Context(), req.Text, req.StructuredData)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"analysis": analysis,
	})
}

// Chat は保存済みレポートを根拠としたフォローアップ質問に回答する。
// POST /api/lab/chat
func (h *LabHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	if req.ReportID == "" || req.Question == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("reportIdとquestionは必須です"))
		return
	}

	// ボディのuserIdと認証ユーザーの一致を検証（多層防御）
	if req.UserID != "" && req.UserID != userID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	answer, err := h.service.Chat(r.Context(), userID, req.ReportID, req.Question)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"answer":  answer,
	})
}

// --- ヘルパー関数 ---

// toLabReportResponse はmodel.LabReportからAPIレスポンスに変換する。
// rawTextLengthは抽出済みテキストの長さを表すため、
// プレースホルダーのみの場合は0とする。
func toLabReportResponse(report *model.LabReport) labReportResponse {
	rawTextLength := len(report.RawText)
	if report.RawText == model.RawTextPlaceholder {
		rawTextLength = 0
	}

	return labReportResponse{
		ID:             report.ID,
		FileName:       report.FileName,
		UploadedAt:     report.UploadedAt,
		AIAnalysis:     report.AIAnalysis,
		StructuredData: report.StructuredData,
		RawTextLength:  rawTextLength,
	}
}

// writeLabReportList はレポート一覧レスポンスを書き込む。
func writeLabReportList(w http.ResponseWriter, reports []*model.LabReport) {
	results := make([]labReportResponse, len(reports))
	for i, report := range reports {
		results[i] = toLabReportResponse(report)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"labReports": results,
	})
}
