package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikerSetAddIsIdempotent(t *testing.T) {
	set := NewLikerSet()

	assert.True(t, set.Add("u1"))
	assert.False(t, set.Add("u1"))
	assert.Equal(t, 1, set.Len())
	assert.True(t, set.Has("u1"))
	assert.False(t, set.Has("u2"))
}

func TestNewLikerSetDropsDuplicatesAndBlanks(t *testing.T) {
	set := NewLikerSet("b", "a", "b", "")

	assert.Equal(t, []string{"a", "b"}, set.IDs())
}

func TestLikerSetJSON(t *testing.T) {
	video := Video{ID: "v1", Likers: NewLikerSet("z", "a")}

	data, err := json.Marshal(video)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"likes":["a","z"]`)

	var decoded Video
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Likers.Has("z"))
	assert.Equal(t, 2, decoded.Likers.Len())
}

func TestUserPasswordHashIsNeverSerialized(t *testing.T) {
	data, err := json.Marshal(User{ID: "u1", PasswordHash: "secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}

func TestVisibilityFromBool(t *testing.T) {
	assert.Equal(t, VisibilityPublic, VisibilityFromBool(true))
	assert.Equal(t, VisibilityPrivate, VisibilityFromBool(false))
	assert.True(t, VisibilityPrivate.Valid())
	assert.False(t, Visibility("friends").Valid())
}
