// Package format はAI応答テキストの表示用整形を提供する。
package format

import (
	"regexp"
	"strings"
)

// プロンプトでmarkdown禁止を指示してもモデルは時折無視するため、
// 保存・表示前のフォールバックとしてここで除去する。
var (
	headerPattern        = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	boldPattern          = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicPattern        = regexp.MustCompile(`\*([^*]+)\*`)
	inlineCodePattern    = regexp.MustCompile("`([^`]+)`")
	strikethroughPattern = regexp.MustCompile(`~~([^~]+)~~`)
	multiSpacePattern    = regexp.MustCompile(`[ \t]{2,}`)
	multiNewlinePattern  = regexp.MustCompile(`\n{3,}`)
)

// CleanMarkdown はAI応答からmarkdown装飾を除去し平文にする。
// 改行は最大2連続まで残す。
func CleanMarkdown(text string) string {
	if text == "" {
		return ""
	}

	text = headerPattern.ReplaceAllString(text, "")
	text = boldPattern.ReplaceAllString(text, "$1")
	text = italicPattern.ReplaceAllString(text, "$1")
	text = inlineCodePattern.ReplaceAllString(text, "$1")
	text = strikethroughPattern.ReplaceAllString(text, "$1")
	text = multiSpacePattern.ReplaceAllString(text, " ")
	text = multiNewlinePattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
