package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldMismatchError(t *testing.T) {
	err := &FieldMismatchError{
		Table:   "users",
		Missing: []string{"email"},
		Extra:   []string{"nickname"},
	}

	assert.True(t, errors.Is(err, ErrFieldMismatch))
	assert.Contains(t, err.Error(), `table "users"`)
	assert.Contains(t, err.Error(), "missing [email]")
	assert.Contains(t, err.Error(), "extra [nickname]")
}

func TestFieldMismatchErrorMissingOnly(t *testing.T) {
	err := &FieldMismatchError{Table: "users", Missing: []string{"name", "email"}}
	assert.Contains(t, err.Error(), "missing [name, email]")
	assert.NotContains(t, err.Error(), "extra")
}

func TestIsSystemField(t *testing.T) {
	assert.True(t, IsSystemField(FieldCreatedAt))
	assert.True(t, IsSystemField(FieldUpdatedAt))
	assert.False(t, IsSystemField("name"))
}

func TestRecordClone(t *testing.T) {
	r := Record{"a": "1"}
	c := r.Clone()
	c["a"] = "2"
	assert.Equal(t, "1", r["a"])
}
