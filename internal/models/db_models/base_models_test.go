package db_models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseModelBeforeCreate(t *testing.T) {
	var fresh BaseModel
	require.NoError(t, fresh.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, fresh.ID)

	fixed := uuid.New()
	preset := BaseModel{ID: fixed}
	require.NoError(t, preset.BeforeCreate(nil))
	assert.Equal(t, fixed, preset.ID)
}
