package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func keySet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func TestReconcileKeys(t *testing.T) {
	add, remove := reconcileKeys(keySet("a", "b", "c"), keySet("b", "d"))
	assert.Equal(t, []string{"a", "c"}, add)
	assert.Equal(t, []string{"d"}, remove)
}

func TestReconcileKeysNoChanges(t *testing.T) {
	add, remove := reconcileKeys(keySet("a", "b"), keySet("a", "b"))
	assert.Empty(t, add)
	assert.Empty(t, remove)
}

func TestReconcileKeysEmptySets(t *testing.T) {
	add, remove := reconcileKeys(keySet(), keySet("a"))
	assert.Empty(t, add)
	assert.Equal(t, []string{"a"}, remove)

	add, remove = reconcileKeys(keySet("a"), keySet())
	assert.Equal(t, []string{"a"}, add)
	assert.Empty(t, remove)
}
