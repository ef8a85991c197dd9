package dbcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetRebuildsSingleton(t *testing.T) {
	d1 := Reset(10)
	require.NotNil(t, d1.Catalog)
	require.NotNil(t, d1.Pool)

	d2 := Reset(20)
	assert.NotSame(t, d1, d2)
	assert.NotSame(t, d1.Catalog, d2.Catalog)
}

func TestInstanceIsLazilyCreatedAndStable(t *testing.T) {
	Reset(5)
	inst = nil
	a := Instance()
	b := Instance()
	assert.Same(t, a, b)
}
