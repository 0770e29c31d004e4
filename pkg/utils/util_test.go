package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	t.Run("上限以内ならそのまま返すのだ", func(t *testing.T) {
		if got := Truncate("  safety  ", 10); got != "safety" {
			t.Errorf("expected %q, got %q", "safety", got)
		}
	})

	t.Run("上限を超えたら rune 単位で切り詰めるのだ", func(t *testing.T) {
		got := Truncate("ずんだもんなのだ", 5)
		if got != "ずんだもん..." {
			t.Errorf("unexpected result: %q", got)
		}
	})

	t.Run("上限が 0 以下なら空文字なのだ", func(t *testing.T) {
		if got := Truncate("abc", 0); got != "" {
			t.Errorf("expected empty, got %q", got)
		}
	})
}
