package format

import "testing"

// markdown装飾が平文に変換されることを検証
func TestCleanMarkdown_StripsMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "ヘッダーを除去",
			input: "# Summary\nAll values look good.",
			want:  "Summary\nAll values look good.",
		},
		{
			name:  "太字マーカーを除去",
			input: "Your **hemoglobin** is normal.",
			want:  "Your hemoglobin is normal.",
		},
		{
			name:  "イタリックマーカーを除去",
			input: "This is *slightly* elevated.",
			want:  "This is slightly elevated.",
		},
		{
			name:  "インラインコードを除去",
			input: "The value `5.4` is in range.",
			want:  "The value 5.4 is in range.",
		},
		{
			name:  "打ち消し線を除去",
			input: "~~old result~~ new result",
			want:  "old result new result",
		},
		{
			name:  "連続スペースを1つに",
			input: "too    many spaces",
			want:  "too many spaces",
		},
		{
			name:  "3連続以上の改行を2つに",
			input: "first\n\n\n\nsecond",
			want:  "first\n\nsecond",
		},
		{
			name:  "空文字列はそのまま",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanMarkdown(tt.input)
			if got != tt.want {
				t.Errorf("CleanMarkdown(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// 2連続の改行（段落区切り）が保持されることを検証
func TestCleanMarkdown_PreservesParagraphBreaks(t *testing.T) {
	input := "First paragraph.\n\nSecond paragraph."
	got := CleanMarkdown(input)
	if got != input {
		t.Errorf("expected paragraph breaks preserved, got %q", got)
	}
}

// 複数行にまたがるヘッダーが全て除去されることを検証
func TestCleanMarkdown_StripsHeadersOnEveryLine(t *testing.T) {
	input := "## Overview\ntext\n### Details\nmore text"
	want := "Overview\ntext\nDetails\nmore text"
	got := CleanMarkdown(input)
	if got != want {
		t.Errorf("CleanMarkdown = %q, want %q", got, want)
	}
}
