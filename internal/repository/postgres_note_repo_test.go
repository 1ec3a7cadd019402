package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/labnote/internal/model"
)

// PostgresNoteRepoはNoteRepositoryインターフェースを満たすことを検証
func TestPostgresNoteRepo_ImplementsInterface(t *testing.T) {
	var _ NoteRepository = (*PostgresNoteRepo)(nil)
}

// NewPostgresNoteRepoが正しく初期化されることを検証
func TestNewPostgresNoteRepo_Initializes(t *testing.T) {
	repo := NewPostgresNoteRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// Noteモデルのフィールドが正しく構築されることを検証
func TestPostgresNoteRepo_NoteModel_Fields(t *testing.T) {
	now := time.Now()
	note := &model.Note{
		ID:        "note-id-1",
		UserID:    "user-id-1",
		Title:     "健康診断の記録",
		Content:   "今年の数値は概ね良好。",
		Tags:      []string{"健診", "2026"},
		CreatedAt: now,
	}

	if note.UserID != "user-id-1" {
		t.Errorf("note.UserID = %q, want %q", note.UserID, "user-id-1")
	}
	if note.Title != "健康診断の記録" {
		t.Errorf("note.Title = %q, want %q", note.Title, "健康診断の記録")
	}
	if len(note.Tags) != 2 {
		t.Errorf("len(note.Tags) = %d, want 2", len(note.Tags))
	}
}

// 未更新のメモのupdated_atがnil許容であることを検証
func TestPostgresNoteRepo_NoteModel_NilUpdatedAt(t *testing.T) {
	note := &model.Note{
		ID:     "note-id-2",
		UserID: "user-id-1",
		Title:  "メモ",
	}

	if note.UpdatedAt != nil {
		t.Error("updated_at should be nil until the note is updated")
	}
}
