package toolset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologicalOrder_DiamondDependency(t *testing.T) {
	base := newToolset("base", nil)
	left := newToolset("left", []string{"base"})
	right := newToolset("right", []string{"base"})
	top := newToolset("top", []string{"left", "right"})

	order, err := topologicalOrder([]Toolset{top, left, right, base})
	require.NoError(t, err)

	pos := map[string]int{}
	for i, ts := range order {
		pos[ts.Metadata().Name] = i
	}
	assert.Less(t, pos["base"], pos["left"])
	assert.Less(t, pos["base"], pos["right"])
	assert.Less(t, pos["left"], pos["top"])
	assert.Less(t, pos["right"], pos["top"])
}

func TestTopologicalOrder_SelfCycleReportsChain(t *testing.T) {
	self := newToolset("self", []string{"self"})
	_, err := topologicalOrder([]Toolset{self})
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"self", "self"}, cycleErr.Chain)
}

func TestTopologicalOrder_ThreeWayCycleReportsFullChain(t *testing.T) {
	a := newToolset("a", []string{"b"})
	b := newToolset("b", []string{"c"})
	c := newToolset("c", []string{"a"})

	_, err := topologicalOrder([]Toolset{a, b, c})
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycleErr.Chain)
}

func TestTopologicalOrder_UndeclaredDependencyIsNotACycle(t *testing.T) {
	dependent := newToolset("sales", []string{"crm"})
	order, err := topologicalOrder([]Toolset{dependent})
	require.NoError(t, err)
	assert.Len(t, order, 1)
}
