package kvstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SolracHQ/rivet/internal/bridge/kvstore"
)

func TestReadOnly_GetReturnsPresentValue(t *testing.T) {
	ro := kvstore.NewReadOnly(map[string]string{"environment": "staging"})

	v, ok := ro.Get("environment")
	assert.True(t, ok)
	assert.Equal(t, "staging", v)

	_, ok = ro.Get("missing")
	assert.False(t, ok)
}

func TestReadOnly_NilDataIsEmptyNotPanic(t *testing.T) {
	ro := kvstore.NewReadOnly(nil)
	assert.False(t, ro.Has("anything"))
	assert.Empty(t, ro.All())
}

func TestReadWrite_SetThenGet(t *testing.T) {
	rw := kvstore.NewReadWrite()
	rw.Set("artifact", "build-123")

	v, ok := rw.Get("artifact")
	assert.True(t, ok)
	assert.Equal(t, "build-123", v)
	assert.True(t, rw.Has("artifact"))
}

func TestReadWrite_ClearRemovesOneKey(t *testing.T) {
	rw := kvstore.NewReadWrite()
	rw.Set("a", "1")
	rw.Set("b", "2")

	rw.Clear("a")

	assert.False(t, rw.Has("a"))
	assert.True(t, rw.Has("b"))
}

func TestReadWrite_ClearAllEmptiesStore(t *testing.T) {
	rw := kvstore.NewReadWrite()
	rw.Set("a", "1")
	rw.Set("b", "2")

	rw.ClearAll()

	assert.Empty(t, rw.All())
}

func TestReadWrite_AllReturnsACopy(t *testing.T) {
	rw := kvstore.NewReadWrite()
	rw.Set("a", "1")

	snapshot := rw.All()
	snapshot["a"] = "mutated"

	v, _ := rw.Get("a")
	assert.Equal(t, "1", v, "mutating a snapshot must not affect the store")
}
