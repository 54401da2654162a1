package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	ID   int64  `json:"id" binding:"required,gte=1"`
	Hash string `form:"hash" binding:"omitempty,sha256"`
}

func TestCustomValidator(t *testing.T) {
	v := NewCustomValidator()

	assert.NoError(t, v.ValidateStruct(&request{ID: 1}))
	assert.NoError(t, v.ValidateStruct(&request{ID: 1, Hash: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"}))
	assert.NoError(t, v.ValidateStruct([]int{1}), "non-struct values are skipped")

	err := v.ValidateStruct(&request{ID: 0, Hash: "XYZ"})
	require.Error(t, err)
	verrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok)
	fields := []string{}
	for _, e := range verrs {
		fields = append(fields, e.Field())
	}
	assert.ElementsMatch(t, []string{"id", "hash"}, fields)

	_, ok = v.Engine().(*validator.Validate)
	assert.True(t, ok)
}
