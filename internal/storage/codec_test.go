package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/mcp-fleet/pkg/errors"
)

func TestToFieldMap(t *testing.T) {
	t.Run("struct", func(t *testing.T) {
		fields, err := toFieldMap(newNote("a1", "Hello", "x"))
		require.NoError(t, err)
		assert.Equal(t, "a1", fields["id"])
		assert.Equal(t, []interface{}{"x"}, fields["tags"])
		assert.NotContains(t, fields, "content")
	})

	t.Run("map is copied", func(t *testing.T) {
		input := map[string]interface{}{"title": "Hello"}
		fields, err := toFieldMap(input)
		require.NoError(t, err)
		fields["id"] = "generated"
		assert.NotContains(t, input, "id")
	})

	t.Run("nil", func(t *testing.T) {
		_, err := toFieldMap(nil)
		assert.True(t, errors.Is(err, errors.ErrCodeValidationRequired))
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := toFieldMap([]string{"a"})
		assert.True(t, errors.Is(err, errors.ErrCodeValidationInvalid))
	})
}

func TestFromFieldMap_TypeMismatch(t *testing.T) {
	_, err := fromFieldMap[note](map[string]interface{}{"id": "a1", "title": 42})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeValidationInvalid))
}

func TestDecodeEntity_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "not json"},
		{"empty object", "{}"},
		{"null", "null"},
		{"missing id", `{"title":"orphan"}`},
		{"fails validation", `{"id":"n1","tags":[]}`},
		{"wrong shape", `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeEntity[note]([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeStorageCorrupt))
		})
	}
}

func TestDecodeEntity_Valid(t *testing.T) {
	n, err := decodeEntity[note]([]byte(`{"id":"n1","title":"T","tags":["x"]}`))
	require.NoError(t, err)
	assert.Equal(t, "n1", n.ID)
	assert.Equal(t, []string{"x"}, n.Tags)
}

func TestMergePatch(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 6, time.UTC)
	current := newNote("a1", "Hello", "x")
	current.Content = "body"

	merged, err := mergePatch(current, map[string]interface{}{
		"tags":    []string{"y", "z"},
		"content": "new body",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "a1", merged.ID)
	assert.Equal(t, "Hello", merged.Title)
	assert.Equal(t, "new body", merged.Content)
	assert.Equal(t, []string{"y", "z"}, merged.Tags)
	assert.Equal(t, current.CreatedAt, merged.CreatedAt)
	assert.Equal(t, now, merged.UpdatedAt)
}

func TestMergePatch_WithoutUpdatedAtField(t *testing.T) {
	merged, err := mergePatch(counter{ID: "c1", Count: 1}, map[string]interface{}{"count": 5}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, counter{ID: "c1", Count: 5}, merged)
}

func TestMergePatch_Rejections(t *testing.T) {
	current := newNote("a1", "Hello")

	_, err := mergePatch(current, map[string]interface{}{"id": "other"}, time.Now())
	require.Error(t, err)
	assert.Contains(t, errors.GetMessage(err), "immutable")

	_, err = mergePatch(current, map[string]interface{}{"title": nil}, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeValidationInvalid))

	_, err = mergePatch(current, map[string]interface{}{"tags": "not-a-list"}, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeValidationInvalid))
}

func TestValidateEntity(t *testing.T) {
	assert.NoError(t, validateEntity(newNote("a1", "Hello")))

	err := validateEntity(note{ID: "a1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeValidationInvalid))
	assert.Contains(t, errors.GetInternal(err).Error(), "Title")
}
