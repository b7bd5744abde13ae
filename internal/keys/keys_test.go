package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The exact key strings are an interop contract with existing store
// contents; these tests pin them byte for byte.
func TestKeyFormats(t *testing.T) {
	assert.Equal(t, "users:schema", TableSchema("users"))
	assert.Equal(t, "users:rows", TableRows("users"))
	assert.Equal(t, "users:next_id", TableNextID("users"))
	assert.Equal(t, "users:42", Row("users", "42"))
	assert.Equal(t, "users:index:email:a@b.c", FieldIndex("users", "email", "a@b.c"))
	assert.Equal(t, "users:sorted:score", TableSorted("users", "score"))
	assert.Equal(t, "session:deadbeef", Session("deadbeef"))
}

func TestPatterns(t *testing.T) {
	assert.Equal(t, "users:index:*", FieldIndexPattern("users"))
	assert.Equal(t, "*:schema", SchemaPattern())
}
