package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommentBeforeCreate(t *testing.T) {
	comment := &Comment{PostID: 1, Text: "Test Comment"}

	assert.True(t, comment.CreatedAt.IsZero())
	comment.BeforeCreate()
	assert.False(t, comment.CreatedAt.IsZero())
	assert.False(t, comment.UpdatedAt.IsZero())
}

func TestCommentSetPost(t *testing.T) {
	comment := &Comment{ID: 1, Text: "Test Comment"}

	t.Run("set valid post", func(t *testing.T) {
		post := &Post{ID: 4, Title: "Test Post", Contents: "Test Contents"}

		err := comment.SetPost(post)
		assert.NoError(t, err)
		assert.Equal(t, 4, comment.PostID)
	})

	t.Run("set nil post", func(t *testing.T) {
		err := comment.SetPost(nil)
		assert.Error(t, err)
	})
}
