// Package model はドメインモデルを定義する。
package model

import "time"

// Note はユーザーの個人メモを表す。
// 所有ユーザーのみが作成・編集・削除できる。共有機能はない。
type Note struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt *time.Time // 一度も編集されていない場合はnil
}
