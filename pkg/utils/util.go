package utils

import "strings"

// Truncate は s を最大 limit 文字 (rune 単位) に切り詰めます。
// 切り詰めた場合は末尾に "..." を付けます。前後の空白は取り除きます。
func Truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
