// Package model はドメインモデルを定義する。
package model

import "time"

// RawTextPlaceholder はPDFテキスト抽出が無効な場合にraw_textへ保存される文字列。
// 解析はPDFバイナリを直接マルチモーダルモデルに渡すことで行うため、
// サーバー側でのテキスト抽出は行っていない。
const RawTextPlaceholder = "PDF text extraction not enabled"

// LabReport はユーザーがアップロードした検査レポートを表す。
type LabReport struct {
	ID             string
	UserID         string
	FileName       string
	RawText        string
	StructuredData *StructuredData // 構造化データが無い場合はnil
	AIAnalysis     *string         // AI解析が失敗・未実行の場合はnil
	UploadedAt     time.Time
}

// StructuredData は検査レポートから抽出された構造化データを表す。
// lab_reportsテーブルのJSONBカラムにそのまま保存される。
type StructuredData struct {
	TestType    string       `json:"testType,omitempty"`
	Date        string       `json:"date,omitempty"`
	PatientName string       `json:"patientName,omitempty"`
	TestResults []TestResult `json:"testResults,omitempty"`
}

// TestResult は個々の検査項目の結果を表す。
type TestResult struct {
	Name           string           `json:"name"`
	Value          string           `json:"value"`
	Unit           string           `json:"unit,omitempty"`
	ReferenceRange string           `json:"referenceRange,omitempty"`
	Status         TestResultStatus `json:"status,omitempty"`
}

// TestResultStatus は検査値の基準範囲に対する状態を表す。
type TestResultStatus string

const (
	// TestResultNormal は基準範囲内の値。
	TestResultNormal TestResultStatus = "normal"
	// TestResultHigh は基準範囲を上回る値。
	TestResultHigh TestResultStatus = "high"
	// TestResultLow は基準範囲を下回る値。
	TestResultLow TestResultStatus = "low"
	// TestResultCritical は緊急対応が必要な値。
	TestResultCritical TestResultStatus = "critical"
)
