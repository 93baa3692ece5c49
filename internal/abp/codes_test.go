package abp

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedCodes(t *testing.T) {
	keys := SortedCodes(CountryCodes)
	assert.Len(t, keys, len(CountryCodes))
	assert.True(t, sort.StringsAreSorted(keys))
	assert.Equal(t, "E", keys[0])
}

func TestCodeTables(t *testing.T) {
	assert.Equal(t, "Record linked to PAF", PostalCodes["D"])
	assert.Equal(t, "England", CountryCodes["E"])
	assert.Equal(t, "Visual Centre", RPCCodes["1"])
	assert.Equal(t, "In use", BLPUStateCodes["2"])
}
