package hdf5

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalk(t *testing.T) {
	f, _ := createFile(t)
	a, err := f.Root().CreateGroup("a")
	require.NoError(t, err)
	_, err = a.CreateDataset("x", NewFloat(4), []uint64{1})
	require.NoError(t, err)
	_, err = a.CreateGroup("b")
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("y", NewFloat(4), nil)
	require.NoError(t, err)

	var visited []string
	require.NoError(t, Walk(f.Root(), func(path string, obj interface{}, err error) error {
		require.NoError(t, err)
		switch obj.(type) {
		case *Group:
			visited = append(visited, "G"+path)
		case *Dataset:
			visited = append(visited, "D"+path)
		}
		return nil
	}))
	assert.Equal(t, []string{"G/", "G/a", "D/a/x", "G/a/b", "D/y"}, visited)

	stop := errors.New("stop")
	n := 0
	err = Walk(f.Root(), func(string, interface{}, error) error {
		n++
		if n == 2 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 2, n)
}
