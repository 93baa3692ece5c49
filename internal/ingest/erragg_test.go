package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrAggKeepsOnlySample(t *testing.T) {
	a := newErrAgg(2)
	a.add("required field is empty")
	a.add("required field is empty")
	a.add(`"X" is not an integer`)

	assert.Equal(t, int64(3), a.total())
	assert.Equal(t, []string{"required field is empty", "required field is empty"}, a.sample())
}

func TestErrAggEmpty(t *testing.T) {
	a := newErrAgg(5)
	assert.Zero(t, a.total())
	assert.Empty(t, a.sample())
}
