package forge

import "testing"

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "tagged go fence",
			raw:  "Here you go:\n```go\npackage p\n\nfunc Parse() {}\n```\nThanks",
			want: "package p\n\nfunc Parse() {}",
		},
		{
			name: "golang tag",
			raw:  "```golang\npackage p\n```",
			want: "package p",
		},
		{
			name: "untagged fence",
			raw:  "```\npackage p\n```",
			want: "package p",
		},
		{
			name: "first block wins",
			raw:  "```go\npackage first\n```\n```go\npackage second\n```",
			want: "package first",
		},
		{
			name: "unterminated fence",
			raw:  "```go\npackage p\nfunc Parse() {}\n",
			want: "package p\nfunc Parse() {}",
		},
		{
			name: "no fence",
			raw:  "  package p\n  ",
			want: "package p",
		},
		{
			name: "code on opening line is kept",
			raw:  "```package p; func Parse() {}\n```",
			want: "package p; func Parse() {}",
		},
		{
			name: "single line fence",
			raw:  "```package p```",
			want: "package p",
		},
		{
			name: "empty block",
			raw:  "```go\n```",
			want: "",
		},
		{
			name: "empty input",
			raw:  "   ",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractCode(tt.raw); got != tt.want {
				t.Errorf("ExtractCode() = %q, want %q", got, tt.want)
			}
		})
	}
}
