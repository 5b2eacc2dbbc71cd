package sstable

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeFile(fn, content string) error {
	return os.WriteFile(fn, []byte(content), 0644)
}

func TestUint32VectorSum(t *testing.T) {
	v := []uint32{3, 4, 5}
	assert.Equal(t, uint32(12), Uint32VectorSum(v))
}

func TestFloat64VectorSum(t *testing.T) {
	v := []float64{1.0, 2.0, 3.0}
	assert.Equal(t, float64(6.0), Float64VectorSum(v))
}
