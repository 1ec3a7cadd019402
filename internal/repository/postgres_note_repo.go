package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/labnote/internal/model"
)

// PostgresNoteRepo はPostgreSQLを使用したメモリポジトリ。
type PostgresNoteRepo struct {
	db *sql.DB
}

// NewPostgresNoteRepo はPostgresNoteRepoを生成する。
func NewPostgresNoteRepo(db *sql.DB) *PostgresNoteRepo {
	return &PostgresNoteRepo{db: db}
}

// Create はメモを作成する。
func (r *PostgresNoteRepo) Create(ctx context.Context, note *model.Note) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notes (id, user_id, title, content, tags, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		note.ID, note.UserID, note.Title, note.Content, pq.Array(note.Tags), note.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("メモの作成に失敗しました: %w", err)
	}
	return nil
}

// ListByUserID はユーザーのメモ一覧を作成日時の降順で返す。
func (r *PostgresNoteRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, content, tags, created_at, updated_at
		 FROM notes WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("メモ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var notes []*model.Note
	for rows.Next() {
		note := &model.Note{}
		var tags pq.StringArray
		var updatedAt sql.NullTime
		if err := rows.Scan(&note.ID, &note.UserID, &note.Title, &note.Content,
			&tags, &note.CreatedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("メモ行の読み取りに失敗しました: %w", err)
		}
		note.Tags = tags
		if updatedAt.Valid {
			t := updatedAt.Time
			note.UpdatedAt = &t
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("メモ一覧の走査に失敗しました: %w", err)
	}
	return notes, nil
}

// Update はIDと所有ユーザーIDの両方に一致するメモを更新し、updated_atを設定する。
// 更新された行のcreated_atとupdated_atをnoteに書き戻す。
// 一致する行が無い場合はErrNotFoundを返す。
func (r *PostgresNoteRepo) Update(ctx context.Context, note *model.Note) error {
	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`UPDATE notes SET title = $3, content = $4, tags = $5, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING created_at, updated_at`,
		note.ID, note.UserID, note.Title, note.Content, pq.Array(note.Tags),
	).Scan(&note.CreatedAt, &updatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("メモの更新に失敗しました: %w", err)
	}
	note.UpdatedAt = &updatedAt
	return nil
}

// DeleteByIDAndUserID はIDと所有ユーザーIDの両方に一致するメモを削除する。
// 一致する行が無い場合はErrNotFoundを返す。
func (r *PostgresNoteRepo) DeleteByIDAndUserID(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("メモの削除に失敗しました: %w", err)
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

// compile-time interface check
var _ NoteRepository = (*PostgresNoteRepo)(nil)
