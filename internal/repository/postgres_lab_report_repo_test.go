package repository

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/hitoshi/labnote/internal/model"
)

// PostgresLabReportRepoはLabReportRepositoryインターフェースを満たすことを検証
func TestPostgresLabReportRepo_ImplementsInterface(t *testing.T) {
	var _ LabReportRepository = (*PostgresLabReportRepo)(nil)
}

// NewPostgresLabReportRepoが正しく初期化されることを検証
func TestNewPostgresLabReportRepo_Initializes(t *testing.T) {
	repo := NewPostgresLabReportRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// fakeRow はDB接続なしでscanLabReportを検証するためのrowScanner実装。
type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *[]byte:
			if v == nil {
				*d = nil
			} else {
				*d = v.([]byte)
			}
		case *sql.NullString:
			if v == nil {
				*d = sql.NullString{}
			} else {
				*d = sql.NullString{String: v.(string), Valid: true}
			}
		case *time.Time:
			*d = v.(time.Time)
		}
	}
	return nil
}

// scanLabReportがJSONB構造化データとAI解析テキストを復元することを検証
func TestScanLabReport_FullRow(t *testing.T) {
	structured := &model.StructuredData{
		TestType: "血液検査",
		Date:     "2026-01-15",
		TestResults: []model.TestResult{
			{Name: "Hemoglobin", Value: "14.2", Unit: "g/dL", ReferenceRange: "13.5-17.5", Status: model.TestResultNormal},
		},
	}
	raw, err := json.Marshal(structured)
	if err != nil {
		t.Fatal(err)
	}

	uploadedAt := time.Now()
	row := &fakeRow{values: []any{
		"report-1", "user-1", "results.pdf", model.RawTextPlaceholder,
		raw, "Your results look normal.", uploadedAt,
	}}

	report, err := scanLabReport(row)
	if err != nil {
		t.Fatalf("scanLabReport() error = %v", err)
	}
	if report.ID != "report-1" {
		t.Errorf("report.ID = %q, want %q", report.ID, "report-1")
	}
	if report.StructuredData == nil {
		t.Fatal("expected structured data to be decoded")
	}
	if len(report.StructuredData.TestResults) != 1 {
		t.Fatalf("len(TestResults) = %d, want 1", len(report.StructuredData.TestResults))
	}
	if report.StructuredData.TestResults[0].Status != model.TestResultNormal {
		t.Errorf("Status = %q, want %q", report.StructuredData.TestResults[0].Status, model.TestResultNormal)
	}
	if report.AIAnalysis == nil || *report.AIAnalysis != "Your results look normal." {
		t.Errorf("AIAnalysis = %v, want %q", report.AIAnalysis, "Your results look normal.")
	}
}

// scanLabReportがNULLカラムをnilポインタに変換することを検証
func TestScanLabReport_NullableColumns(t *testing.T) {
	row := &fakeRow{values: []any{
		"report-2", "user-1", "results.pdf", model.RawTextPlaceholder,
		nil, nil, time.Now(),
	}}

	report, err := scanLabReport(row)
	if err != nil {
		t.Fatalf("scanLabReport() error = %v", err)
	}
	if report.StructuredData != nil {
		t.Error("structured_data should be nil when column is NULL")
	}
	if report.AIAnalysis != nil {
		t.Error("ai_analysis should be nil when column is NULL")
	}
}

// scanLabReportが不正なJSONBデータに対してエラーを返すことを検証
func TestScanLabReport_InvalidJSON(t *testing.T) {
	row := &fakeRow{values: []any{
		"report-3", "user-1", "results.pdf", model.RawTextPlaceholder,
		[]byte("{not json"), nil, time.Now(),
	}}

	if _, err := scanLabReport(row); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

// scanLabReportがsql.ErrNoRowsをそのまま伝播することを検証
func TestScanLabReport_NoRows(t *testing.T) {
	row := &fakeRow{err: sql.ErrNoRows}

	_, err := scanLabReport(row)
	if err != sql.ErrNoRows {
		t.Fatalf("scanLabReport() error = %v, want sql.ErrNoRows", err)
	}
}
