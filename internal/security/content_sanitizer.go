// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザーが入力するノートのタイトル・本文・タグを
// サニタイズし、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// ノートは平文として扱うため、bluemondayの厳格ポリシーで
// HTMLタグを一切許可せず全て除去する。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はテキストコンテンツのサニタイズ機能のインターフェースを定義する。
// ノートの保存前および更新前に使用される。
type ContentSanitizerService interface {
	// Sanitize は入力テキストからHTMLタグを全て除去した平文を返す。
	// script, iframe, styleタグおよびon*イベント属性を含む全タグが除去される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// bluemonday.StrictPolicyは許可タグを一切持たないため、
// 入力中のHTMLは全てタグが剥がされテキストのみが残る。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力テキストからHTMLタグを除去した平文を返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
