package domain

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func identifiers(cs []*Clause) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Identifier)
	}
	return out
}

func TestSelectSnapshot(t *testing.T) {
	revisions := []*Clause{
		{Identifier: "A", Content: "a1", ClauseVersion: 1, Position: 0},
		{Identifier: "B", Content: "b1", ClauseVersion: 1, Position: 1},
		{Identifier: "C", Content: "c1", ClauseVersion: 1, Position: 2},
		{Identifier: "B", Content: "b2", ClauseVersion: 2, Position: 1},
		{Identifier: "D", Content: "d2", ClauseVersion: 2, Position: 2},
		{Identifier: "C", Content: "c1", ClauseVersion: 2, Position: 2, IsDeleted: true},
		{Identifier: "C", Content: "c3", ClauseVersion: 3, Position: 3},
	}

	v1 := SelectSnapshot(revisions, 1)
	assert.Equal(t, []string{"A", "B", "C"}, identifiers(v1))
	assert.Equal(t, "b1", v1[1].Content)

	v2 := SelectSnapshot(revisions, 2)
	assert.Equal(t, []string{"A", "B", "D"}, identifiers(v2))
	assert.Equal(t, "b2", v2[1].Content)

	// 删除后重新出现的条款以新内容行为准
	v3 := SelectSnapshot(revisions, 3)
	assert.Equal(t, []string{"A", "B", "D", "C"}, identifiers(v3))
	assert.Equal(t, "c3", v3[3].Content)

	assert.Empty(t, SelectSnapshot(revisions, 0))
	assert.Empty(t, SelectSnapshot(nil, 5))
}

// TestProperty_SelectSnapshot 每个标识符至多出现一次，且从不包含删除标记
func TestProperty_SelectSnapshot(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	genRev := gopter.CombineGens(
		gen.OneConstOf("A", "B", "C", "D"),
		gen.Int64Range(1, 5),
		gen.Bool(),
	).Map(func(v []interface{}) *Clause {
		return &Clause{Identifier: v[0].(string), ClauseVersion: v[1].(int64), IsDeleted: v[2].(bool)}
	})

	properties.Property("snapshot holds no markers and no duplicate identifiers", prop.ForAll(
		func(revs []*Clause, version int64) bool {
			seen := map[string]bool{}
			for _, c := range SelectSnapshot(revs, version) {
				if c.IsDeleted || seen[c.Identifier] || c.ClauseVersion > version {
					return false
				}
				seen[c.Identifier] = true
			}
			return true
		},
		gen.SliceOf(genRev),
		gen.Int64Range(0, 6),
	))

	properties.TestingRun(t)
}
