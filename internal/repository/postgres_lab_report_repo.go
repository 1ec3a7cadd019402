package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/labnote/internal/model"
)

// PostgresLabReportRepo はPostgreSQLを使用した検査レポートリポジトリ。
type PostgresLabReportRepo struct {
	db *sql.DB
}

// NewPostgresLabReportRepo はPostgresLabReportRepoを生成する。
func NewPostgresLabReportRepo(db *sql.DB) *PostgresLabReportRepo {
	return &PostgresLabReportRepo{db: db}
}

// Create は検査レポートを作成する。
// StructuredDataはJSONBカラムにシリアライズして保存する。
func (r *PostgresLabReportRepo) Create(ctx context.Context, report *model.LabReport) error {
	var structured []byte
	if report.StructuredData != nil {
		var err error
		structured, err = json.Marshal(report.StructuredData)
		if err != nil {
			return fmt.Errorf("構造化データのシリアライズに失敗しました: %w", err)
		}
	}

	var analysis sql.NullString
	if report.AIAnalysis != nil {
		analysis = sql.NullString{String: *report.AIAnalysis, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lab_reports (id, user_id, file_name, raw_text, structured_data, ai_analysis, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		report.ID, report.UserID, report.FileName, report.RawText, structured, analysis, report.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("検査レポートの保存に失敗しました: %w", err)
	}
	return nil
}

// ListByUserID はユーザーの検査レポート一覧をアップロード日時の降順で返す。
func (r *PostgresLabReportRepo) ListByUserID(ctx context.Context, userID string) ([]*model.LabReport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, file_name, raw_text, structured_data, ai_analysis, uploaded_at
		 FROM lab_reports WHERE user_id = $1 ORDER BY uploaded_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("検査レポート一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var reports []*model.LabReport
	for rows.Next() {
		report, err := scanLabReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("検査レポート一覧の走査に失敗しました: %w", err)
	}
	return reports, nil
}

// FindByIDAndUserID はIDと所有ユーザーIDの両方に一致するレポートを取得する。
// 見つからない場合はnilを返す。
func (r *PostgresLabReportRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.LabReport, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, file_name, raw_text, structured_data, ai_analysis, uploaded_at
		 FROM lab_reports WHERE id = $1 AND user_id = $2`,
		id, userID,
	)

	report, err := scanLabReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// DeleteByIDAndUserID はIDと所有ユーザーIDの両方に一致するレポートを削除する。
// 一致する行が無い場合はErrNotFoundを返す（冪等ではなく明示的に通知する）。
func (r *PostgresLabReportRepo) DeleteByIDAndUserID(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM lab_reports WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("検査レポートの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanLabReport は1行分の検査レポートを読み取る。
// NULL許容カラム（structured_data, ai_analysis）をモデルのポインタ型に変換する。
func scanLabReport(row rowScanner) (*model.LabReport, error) {
	report := &model.LabReport{}
	var structured []byte
	var analysis sql.NullString

	err := row.Scan(&report.ID, &report.UserID, &report.FileName, &report.RawText,
		&structured, &analysis, &report.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("検査レポート行の読み取りに失敗しました: %w", err)
	}

	if len(structured) > 0 {
		data := &model.StructuredData{}
		if err := json.Unmarshal(structured, data); err != nil {
			return nil, fmt.Errorf("構造化データの解析に失敗しました: %w", err)
		}
		report.StructuredData = data
	}
	if analysis.Valid {
		report.AIAnalysis = &analysis.String
	}

	return report, nil
}

// compile-time interface check
var _ LabReportRepository = (*PostgresLabReportRepo)(nil)
