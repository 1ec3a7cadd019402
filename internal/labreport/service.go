// Package labreport は検査レポートのドメインロジックを提供する。
//
// アップロード・一覧・削除・AI解析・チャットの各操作を提供し、
// 全操作で所有者（ユーザーID）によるアクセス制御を行う。
package labreport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/labnote/internal/format"
	"github.com/hitoshi/labnote/internal/model"
	"github.com/hitoshi/labnote/internal/repository"
)

// AIAnalyzer は検査レポートの解析・チャットを行うAIクライアントのインターフェース。
type AIAnalyzer interface {
	// Configured はAIクライアントが利用可能かを返す。
	Configured() bool
	// AnalyzeText は検査レポートのテキストを患者向け解説文に変換する。
	AnalyzeText(ctx context.Context, rawText string, structured *model.StructuredData) (string, error)
	// AnalyzePDF はPDFバイナリを直接解析する。
	AnalyzePDF(ctx context.Context, pdf []byte, fileName string) (string, error)
	// Chat はレポートを根拠にフォローアップ質問へ回答する。
	Chat(ctx context.Context, rawText, priorAnalysis, question string) (string, error)
}

// MetricsRecorder はアップロードのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordUpload(withAnalysis bool)
}

// noopMetrics はメトリクス未設定時のレコーダー。
type noopMetrics struct{}

func (noopMetrics) RecordUpload(bool) {}

// Service は検査レポートのサービス層。
type Service struct {
	reportRepo repository.LabReportRepository
	ai         AIAnalyzer
	metrics    MetricsRecorder
	logger     *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(reportRepo repository.LabReportRepository, ai AIAnalyzer, metrics MetricsRecorder, logger *slog.Logger) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		reportRepo: reportRepo,
		ai:         ai,
		metrics:    metrics,
		logger:     logger,
	}
}

// Upload はPDFレポートを受け付け、AI解析（ベストエフォート）を付与して保存する。
//
// AI解析の失敗はアップロード自体を失敗させない。解析が失敗した場合、
// AIAnalysisはnilのまま保存され、レスポンスにもnullとして現れる。
// DB保存の失敗のみがアップロード全体の失敗となる。
func (s *Service) Upload(ctx context.Context, userID, fileName, contentType string, data []byte) (*model.LabReport, error) {
	if !isPDF(fileName, contentType) {
		return nil, model.NewUnsupportedFileError()
	}
	if len(data) == 0 {
		return nil, model.NewValidationError("ファイルが空です")
	}

	var analysis *string
	if s.ai.Configured() {
		text, err := s.ai.AnalyzePDF(ctx, data, fileName)
		if err != nil {
			// 解析失敗はログのみ。レポートは解析なしで保存する
			s.logger.Warn("AI analysis failed, saving report without analysis",
				"user_id", userID,
				"file_name", fileName,
				"error", err)
		} else {
			cleaned := format.CleanMarkdown(text)
			analysis = &cleaned
		}
	} else {
		s.logger.Info("AI client not configured, skipping analysis",
			"user_id", userID,
			"file_name", fileName)
	}

	report := &model.LabReport{
		ID:         uuid.NewString(),
		UserID:     userID,
		FileName:   fileName,
		RawText:    model.RawTextPlaceholder,
		AIAnalysis: analysis,
		UploadedAt: time.Now(),
	}

	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("検査レポートの保存に失敗しました: %w", err)
	}

	s.metrics.RecordUpload(analysis != nil)
	return report, nil
}

// List はユーザーの検査レポート一覧をアップロード日時の新しい順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.LabReport, error) {
	reports, err := s.reportRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("検査レポート一覧の取得に失敗しました: %w", err)
	}
	return reports, nil
}

// Delete はユーザー自身の検査レポートを削除する。
// レポートが存在しない、または他ユーザーの所有である場合は404相当のエラーを返す。
func (s *Service) Delete(ctx context.Context, userID, reportID string) error {
	err := s.reportRepo.DeleteByIDAndUserID(ctx, reportID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewReportNotFoundError()
		}
		return fmt.Errorf("検査レポートの削除に失敗しました: %w", err)
	}
	return nil
}

// AnalyzeText はレポートテキストをその場で解析し、平易な解説文を返す。
// 結果はどこにも保存しない。
func (s *Service) AnalyzeText(ctx context.Context, rawText string, structured *model.StructuredData) (string, error) {
	if strings.TrimSpace(rawText) == "" {
		return "", model.NewValidationError("解析するテキストを指定してください")
	}
	if !s.ai.Configured() {
		return "", model.NewAINotConfiguredError()
	}

	text, err := s.ai.AnalyzeText(ctx, rawText, structured)
	if err != nil {
		s.logger.Error("AI text analysis failed", "error", err)
		return "", model.NewAIFailedError("解析に失敗しました")
	}
	return format.CleanMarkdown(text), nil
}

// Chat は保存済みレポートを根拠にフォローアップ質問へ回答する。
// レポートは必ず(id, userID)の組で取得し、他ユーザーのレポートは存在しない扱いとする。
func (s *Service) Chat(ctx context.Context, userID, reportID, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", model.NewValidationError("質問を入力してください")
	}

	report, err := s.reportRepo.FindByIDAndUserID(ctx, reportID, userID)
	if err != nil {
		return "", fmt.Errorf("検査レポートの取得に失敗しました: %w", err)
	}
	if report == nil {
		return "", model.NewReportNotFoundError()
	}

	if strings.TrimSpace(report.RawText) == "" {
		return "", model.NewReportTextMissingError()
	}

	if !s.ai.Configured() {
		return "", model.NewAINotConfiguredError()
	}

	priorAnalysis := ""
	if report.AIAnalysis != nil {
		priorAnalysis = *report.AIAnalysis
	}

	answer, err := s.ai.Chat(ctx, report.RawText, priorAnalysis, question)
	if err != nil {
		s.logger.Error("AI chat failed", "report_id", reportID, "error", err)
		return "", model.NewAIFailedError("回答の生成に失敗しました")
	}
	return format.CleanMarkdown(answer), nil
}

// isPDF はアップロードされたファイルがPDFかどうかを判定する。
// Content-Typeまたはファイル名の拡張子のどちらかで判定する
// （ブラウザによってはContent-Typeがapplication/octet-streamになるため）。
func isPDF(fileName, contentType string) bool {
	if contentType == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(fileName), ".pdf")
}
