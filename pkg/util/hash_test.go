package util

import (
	"bytes"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 相同字节多次计算得到相同哈希
func TestProperty_HashDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("hashing identical bytes yields identical digests", prop.ForAll(
		func(s string) bool {
			data := []byte("x" + s)
			h1, err1 := EncodeSHA256(data)
			h2, err2 := EncodeSHA256(append([]byte{}, data...))
			h3, _, err3 := EncodeSHA256Reader(bytes.NewReader(data))
			return err1 == nil && err2 == nil && err3 == nil && h1 == h2 && h2 == h3 && len(h1) == 64
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestEncodeSHA256_Empty(t *testing.T) {
	_, err := EncodeSHA256(nil)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, _, err = EncodeSHA256Reader(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmptyContent)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestEncodeSHA256Reader_ReadError(t *testing.T) {
	_, _, err := EncodeSHA256Reader(failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestEncodeSHA256_KnownVector(t *testing.T) {
	h, err := EncodeSHA256([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
}
