// Package textsim provides the text normalization and similarity measures
// used to match clauses and filenames.
// Package textsim 提供条款与文件名匹配所需的文本规范化与相似度计算
package textsim

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize lowercases s, collapses every whitespace run to a single space and trims both ends.
// Normalize 转小写，将连续空白折叠为单个空格并去除首尾空白
// Normalize(Normalize(s)) == Normalize(s)
func Normalize(s string) string {
	lowered := cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(lowered), " ")
}

// newDMP 返回不设超时的 diff 实例，保证结果最小且确定
func newDMP() *diffmatchpatch.DiffMatchPatch {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return dmp
}

// Ratio returns 2*M/T where M is the rune length of the runs shared by a and b
// and T is their combined rune length. Two empty strings are identical (1).
// Ratio 返回 2*M/T，M 为两字符串公共片段的字符数，T 为两者字符总数
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}

	dmp := newDMP()
	var matched int
	for _, d := range dmp.DiffMain(a, b, false) {
		if d.Type == diffmatchpatch.DiffEqual {
			matched += utf8.RuneCountInString(d.Text)
		}
	}
	return 2 * float64(matched) / float64(total)
}

// NormalizedRatio 先规范化再计算 Ratio
func NormalizedRatio(a, b string) float64 {
	return Ratio(Normalize(a), Normalize(b))
}

// normalizeFilename 小写并只保留字母与数字
func normalizeFilename(name string) string {
	var b strings.Builder
	for _, r := range cases.Lower(language.Und).String(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FilenameSimilarity compares two filenames case-insensitively with punctuation removed.
// The score is 1 - editDistance/maxLen, in [0,1].
// FilenameSimilarity 忽略大小写与标点比较两个文件名，结果为 1 - 编辑距离/最大长度
func FilenameSimilarity(a, b string) float64 {
	na, nb := normalizeFilename(a), normalizeFilename(b)
	if na == nb {
		return 1
	}
	maxLen := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	if maxLen == 0 {
		return 1
	}

	dmp := newDMP()
	dist := dmp.DiffLevenshtein(dmp.DiffMain(na, nb, false))
	score := 1 - float64(dist)/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}

// Patch renders a unified-style text patch turning oldText into newText.
// Patch 生成从 oldText 到 newText 的文本补丁
func Patch(oldText, newText string) string {
	if oldText == newText {
		return ""
	}
	dmp := newDMP()
	diffs := dmp.DiffMain(oldText, newText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.PatchToText(dmp.PatchMake(oldText, diffs))
}
