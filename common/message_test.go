package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetContentString(t *testing.T) {
	t.Run("concatenates text blocks", func(t *testing.T) {
		msg := Message{
			Role: RoleUser,
			Content: []ContentBlock{
				{Type: ContentBlockTypeText, Text: "a"},
				{Type: ContentBlockTypeImage, Image: &ImageRef{Url: "u"}},
				{Type: ContentBlockTypeText, Text: "b"},
			},
		}
		assert.Equal(t, "ab", msg.GetContentString())
	})

	t.Run("falls back to legacy bare string", func(t *testing.T) {
		msg := Message{Role: RoleAssistant, Text: "legacy"}
		assert.Equal(t, "legacy", msg.GetContentString())
	})
}

func TestTextMessage(t *testing.T) {
	msg := TextMessage(RoleAssistant, "hello")
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "assistant", msg.GetRole())
	assert.Len(t, msg.Content, 1)
	assert.Equal(t, ContentBlockTypeText, msg.Content[0].Type)
	assert.Equal(t, "hello", msg.Content[0].Text)
}
