package decompose_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zate/remote-agent-memory/internal/decompose"
)

func TestCache_ReturnsSameDecomposition(t *testing.T) {
	c, err := decompose.NewCache(decompose.New(nil), 100)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	text := "Configure the Docker environment"
	first := c.Decompose(text, nil)
	c.Wait()
	second := c.Decompose(text, nil)

	assert.Equal(t, first, second)
	assert.Equal(t, decompose.CategoryConfiguration, second.PrimaryCategory)
	assert.Equal(t, []string{"docker"}, second.Technologies)
}

func TestCache_DistinctTexts(t *testing.T) {
	c, err := decompose.NewCache(decompose.New(nil), 100)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	a := c.Decompose("Fix the broken build", nil)
	b := c.Decompose("Design the service architecture", nil)
	assert.Equal(t, decompose.CategoryDebugging, a.PrimaryCategory)
	assert.Equal(t, decompose.CategoryArchitecture, b.PrimaryCategory)
}

func TestNewCache_RejectsNonPositiveSize(t *testing.T) {
	_, err := decompose.NewCache(decompose.New(nil), 0)
	assert.Error(t, err)
}
