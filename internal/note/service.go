// Package note は個人ノートのドメインロジックを提供する。
package note

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/labnote/internal/model"
	"github.com/hitoshi/labnote/internal/repository"
	"github.com/hitoshi/labnote/internal/security"
)

// maxTitleLength はノートタイトルの上限文字数。
const maxTitleLength = 200

// Service は個人ノートのサービス層。
// 作成・一覧・更新・削除の各操作を提供する。タイトルと本文は
// 保存前にサニタイズされ、HTMLタグは全て除去される。
type Service struct {
	noteRepo  repository.NoteRepository
	sanitizer security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(noteRepo repository.NoteRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		noteRepo:  noteRepo,
		sanitizer: sanitizer,
	}
}

// Create はノートを作成して返す。
func (s *Service) Create(ctx context.Context, userID, title, content string, tags []string) (*model.Note, error) {
	title, content, tags, err := s.sanitizeInput(title, content, tags)
	if err != nil {
		return nil, err
	}

	note := &model.Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		Tags:      tags,
		CreatedAt: time.Now(),
	}

	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("ノートの保存に失敗しました: %w", err)
	}
	return note, nil
}

// List はユーザーのノート一覧を作成日時の新しい順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Note, error) {
	notes, err := s.noteRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ノート一覧の取得に失敗しました: %w", err)
	}
	return notes, nil
}

// Update はユーザー自身のノートを更新して返す。
// ノートが存在しない、または他ユーザーの所有である場合は404相当のエラーを返す。
func (s *Service) Update(ctx context.Context, userID, noteID, title, content string, tags []string) (*model.Note, error) {
	title, content, tags, err := s.sanitizeInput(title, content, tags)
	if err != nil {
		return nil, err
	}

	note := &model.Note{
		ID:      noteID,
		UserID:  userID,
		Title:   title,
		Content: content,
		Tags:    tags,
	}

	// リポジトリが更新行のcreated_at / updated_atをnoteに書き戻す
	if err := s.noteRepo.Update(ctx, note); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewNoteNotFoundError()
		}
		return nil, fmt.Errorf("ノートの更新に失敗しました: %w", err)
	}
	return note, nil
}

// Delete はユーザー自身のノートを削除する。
func (s *Service) Delete(ctx context.Context, userID, noteID string) error {
	err := s.noteRepo.DeleteByIDAndUserID(ctx, noteID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNoteNotFoundError()
		}
		return fmt.Errorf("ノートの削除に失敗しました: %w", err)
	}
	return nil
}

// sanitizeInput はタイトル・本文・タグを検証およびサニタイズする。
func (s *Service) sanitizeInput(title, content string, tags []string) (string, string, []string, error) {
	title = strings.TrimSpace(s.sanitizer.Sanitize(title))
	if title == "" {
		return "", "", nil, model.NewValidationError("タイトルを入力してください")
	}
	if len([]rune(title)) > maxTitleLength {
		return "", "", nil, model.NewValidationError("タイトルが長すぎます")
	}

	content = strings.TrimSpace(s.sanitizer.Sanitize(content))

	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(s.sanitizer.Sanitize(tag))
		if tag != "" {
			cleaned = append(cleaned, tag)
		}
	}

	return title, content, cleaned, nil
}
