package textsim

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/assert"
)

// TestProperty_NormalizeIdempotent 规范化两次等于规范化一次
func TestProperty_NormalizeIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300

	properties := gopter.NewProperties(parameters)

	properties.Property("Normalize(Normalize(s)) == Normalize(s)", prop.ForAll(
		func(s string) bool {
			once := Normalize(s)
			return Normalize(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("normalized text has no edge or repeated whitespace", prop.ForAll(
		func(words []string) bool {
			in := "  \t" + joinWith(words, " \n\t ") + "\r\n "
			out := Normalize(in)
			if out == "" {
				return true
			}
			return out[0] != ' ' && out[len(out)-1] != ' ' && !containsDoubleSpace(out)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestProperty_RatioBounds 相似度落在 [0,1] 且对称
func TestProperty_RatioBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("Ratio is within [0,1]", prop.ForAll(
		func(a, b string) bool {
			r := Ratio(a, b)
			return r >= 0 && r <= 1
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("Ratio of a string with itself is 1", prop.ForAll(
		func(a string) bool {
			return Ratio(a, a) == 1
		},
		gen.AnyString(),
	))

	properties.Property("FilenameSimilarity is within [0,1]", prop.ForAll(
		func(a, b string) bool {
			s := FilenameSimilarity(a, b)
			return s >= 0 && s <= 1
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"only spaces", " \t\n ", ""},
		{"case folding", "The PARTIES Agree", "the parties agree"},
		{"collapse runs", "a  b\t\tc\n\nd", "a b c d"},
		{"trim", "  payment terms  ", "payment terms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("", ""))
	assert.Equal(t, 0.0, Ratio("abc", ""))
	assert.Equal(t, 0.0, Ratio("abc", "xyz"))
	// "abcd" vs "abxd": 3 shared runes of 8 total
	assert.InDelta(t, 0.75, Ratio("abcd", "abxd"), 1e-9)

	base := "the supplier shall deliver the goods within thirty days of the order date"
	edited := "the supplier shall deliver the goods within sixty days of the purchase order"
	r := Ratio(base, edited)
	assert.Greater(t, r, 0.6)
	assert.Less(t, r, 0.95)
}

func TestNormalizedRatio_IgnoresCaseAndSpacing(t *testing.T) {
	assert.Equal(t, 1.0, NormalizedRatio("Governing  Law:\tEngland", "governing law: england"))
}

func TestFilenameSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    string
		atLeast float64
		below   float64
	}{
		{"one char differs", "Contract-ABC.pdf", "Contract-ABD.pdf", 0.8, 1},
		{"punctuation and case", "MSA_v1.PDF", "msa v1.pdf", 1, 1.01},
		{"unrelated", "MSA.pdf", "Invoice-2024.xlsx", 0, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FilenameSimilarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, s, tt.atLeast)
			assert.Less(t, s, tt.below)
		})
	}

	assert.InDelta(t, 1-1.0/14, FilenameSimilarity("Contract-ABC.pdf", "Contract-ABD.pdf"), 1e-9)
}

func TestPatch(t *testing.T) {
	assert.Empty(t, Patch("same", "same"))

	oldText := "payment is due within 30 days"
	newText := "payment is due within 45 days"
	p := Patch(oldText, newText)
	assert.Contains(t, p, "@@")

	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(p)
	assert.NoError(t, err)
	applied, ok := dmp.PatchApply(patches, oldText)
	assert.Equal(t, newText, applied)
	for _, v := range ok {
		assert.True(t, v)
	}
}

func joinWith(words []string, sep string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += sep
		}
		out += w
	}
	return out
}

func containsDoubleSpace(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] == ' ' && s[i-1] == ' ' {
			return true
		}
	}
	return false
}
