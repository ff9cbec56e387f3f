package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/fedtpg/testutil/fixtures"
	"github.com/BaSui01/fedtpg/tpg"
)

func TestContexts(t *testing.T) {
	ctx := TestContext(t)
	_, ok := ctx.Deadline()
	assert.True(t, ok)

	assert.Error(t, CancelledContext().Err())
	assert.NoError(t, TestContextWithTimeout(t, time.Minute).Err())
}

func TestAssertGraphsEquivalent_RoundTrip(t *testing.T) {
	g, _ := fixtures.LayeredGraph(t)
	imported, err := tpg.Import(tpg.Export(g))
	require.NoError(t, err)
	AssertGraphsEquivalent(t, g, imported)

	star, root := fixtures.StarGraph(t, 3)
	assert.Equal(t, 4, star.NbVertices())
	assert.Len(t, root.OutgoingEdges(), 3)
}

func TestWaitFor(t *testing.T) {
	n := 0
	assert.True(t, WaitFor(func() bool { n++; return n > 2 }, time.Second))
	assert.False(t, WaitFor(func() bool { return false }, 20*time.Millisecond))
}
