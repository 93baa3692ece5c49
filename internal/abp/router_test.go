package abp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteKnownCodes(t *testing.T) {
	c := newTestCatalog(t)

	for _, k := range c.Kinds() {
		got, err := c.Route([]string{k.Code, "I", "1"})
		require.NoError(t, err, "code %s", k.Code)
		assert.Same(t, k, got)
	}
}

func TestRouteTrimsDiscriminator(t *testing.T) {
	c := newTestCatalog(t)

	got, err := c.Route([]string{" 21 ", "I"})
	require.NoError(t, err)
	assert.Equal(t, CodeBLPU, got.Code)
}

func TestRouteMalformed(t *testing.T) {
	c := newTestCatalog(t)

	for _, fields := range [][]string{nil, {}, {""}, {"   "}} {
		_, err := c.Route(fields)
		assert.ErrorIs(t, err, ErrMalformedLine, "fields %q", fields)
	}
}

func TestRouteUnknownCode(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.Route([]string{"98", "I", "1"})
	require.Error(t, err)
	var uk *UnknownKindError
	require.ErrorAs(t, err, &uk)
	assert.Equal(t, "98", uk.Code)
}
