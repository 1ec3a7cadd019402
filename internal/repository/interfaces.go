// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/labnote/internal/model"
)

// ErrDuplicateEmail はusersテーブルのメール一意制約違反を表す。
// SSOコールバックの同時実行や登録済みメールでのサインアップで発生する。
// 呼び出し側は既存行へのフォールバックやEMAIL_TAKENへの変換を行う。
var ErrDuplicateEmail = errors.New("email already registered")

// ErrNotFound は指定された所有者とIDに一致する行が存在しないことを表す。
var ErrNotFound = errors.New("record not found")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが既に登録されている場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error
}

// LabReportRepository は検査レポートデータの永続化インターフェース。
// すべての参照・削除は所有ユーザーIDでスコープされる。
type LabReportRepository interface {
	// Create は検査レポートを作成する。
	Create(ctx context.Context, report *model.LabReport) error

	// ListByUserID はユーザーの検査レポート一覧をアップロード日時の降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.LabReport, error)

	// FindByIDAndUserID はIDと所有ユーザーIDの両方に一致するレポートを取得する。
	// 見つからない場合はnilを返す。
	FindByIDAndUserID(ctx context.Context, id, userID string) (*model.LabReport, error)

	// DeleteByIDAndUserID はIDと所有ユーザーIDの両方に一致するレポートを削除する。
	// 一致する行が無い場合はErrNotFoundを返す。
	DeleteByIDAndUserID(ctx context.Context, id, userID string) error
}

// NoteRepository はメモデータの永続化インターフェース。
// すべての参照・更新・削除は所有ユーザーIDでスコープされる。
type NoteRepository interface {
	// Create はメモを作成する。
	Create(ctx context.Context, note *model.Note) error

	// ListByUserID はユーザーのメモ一覧を作成日時の降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Note, error)

	// Update はIDと所有ユーザーIDの両方に一致するメモを更新し、updated_atを設定する。
	// 更新された行のcreated_atとupdated_atをnoteに書き戻す。
	// 一致する行が無い場合はErrNotFoundを返す。
	Update(ctx context.Context, note *model.Note) error

	// DeleteByIDAndUserID はIDと所有ユーザーIDの両方に一致するメモを削除する。
	// 一致する行が無い場合はErrNotFoundを返す。
	DeleteByIDAndUserID(ctx context.Context, id, userID string) error
}
