package contextwin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winnow/common"
	"winnow/editlog"
)

func twoTurnHistory() []common.Message {
	return []common.Message{
		common.TextMessage(common.RoleUser, "original user text"),
		common.TextMessage(common.RoleAssistant, "original assistant text"),
	}
}

func TestApplyReplaceContent(t *testing.T) {
	t.Run("last edit wins", func(t *testing.T) {
		log := editlog.New()
		log.Append(0, 0, common.RoleUser, editlog.Edit{Timestamp: 1, Kind: editlog.KindReplaceContent, Payload: "first"})
		log.Append(0, 0, common.RoleUser, editlog.Edit{Timestamp: 2, Kind: editlog.KindReplaceContent, Payload: "second"})

		prepared := Apply(twoTurnHistory(), log)
		assert.Equal(t, "second", prepared[0].Content[0].Text)
	})

	t.Run("raw history is not mutated", func(t *testing.T) {
		history := twoTurnHistory()
		log := editlog.New()
		log.Append(0, 0, common.RoleUser, editlog.Edit{Timestamp: 1, Kind: editlog.KindReplaceContent, Payload: "changed"})

		prepared := Apply(history, log)
		assert.Equal(t, "changed", prepared[0].Content[0].Text)
		assert.Equal(t, "original user text", history[0].Content[0].Text)
	})

	t.Run("untouched messages share blocks with the input", func(t *testing.T) {
		history := twoTurnHistory()
		log := editlog.New()
		log.Append(0, 0, common.RoleUser, editlog.Edit{Timestamp: 1, Kind: editlog.KindReplaceContent, Payload: "changed"})

		prepared := Apply(history, log)
		assert.Same(t, &history[1].Content[0], &prepared[1].Content[0])
	})
}

func TestApplyTruncationNotice(t *testing.T) {
	noticeLog := func() *editlog.EditLog {
		log := editlog.New()
		log.Append(1, 0, common.RoleAssistant, editlog.Edit{Timestamp: 1, Kind: editlog.KindAddTruncationNotice})
		return log
	}

	t.Run("prepends the notice with a newline", func(t *testing.T) {
		prepared := Apply(twoTurnHistory(), noticeLog())
		assert.Equal(t, ContextTruncationNotice()+"\noriginal assistant text", prepared[1].Content[0].Text)
	})

	t.Run("does not stack on an already-noticed block", func(t *testing.T) {
		history := twoTurnHistory()
		history[1].Content[0].Text = ContextTruncationNotice() + "\noriginal assistant text"

		prepared := Apply(history, noticeLog())
		assert.Equal(t, 1, strings.Count(prepared[1].Content[0].Text, ContextTruncationNotice()))
	})
}

func TestApplyIdempotence(t *testing.T) {
	log := editlog.New()
	log.Append(0, 0, common.RoleUser, editlog.Edit{Timestamp: 1, Kind: editlog.KindReplaceContent, Payload: "elided"})
	log.Append(1, 0, common.RoleAssistant, editlog.Edit{Timestamp: 2, Kind: editlog.KindAddTruncationNotice})

	once := Apply(twoTurnHistory(), log)
	twice := Apply(once, log)
	assert.Equal(t, once, twice)
}

func TestApplySkipsMismatches(t *testing.T) {
	t.Run("message index outside history", func(t *testing.T) {
		log := editlog.New()
		log.Append(9, 0, common.RoleUser, editlog.Edit{Timestamp: 1, Kind: editlog.KindReplaceContent, Payload: "x"})

		prepared := Apply(twoTurnHistory(), log)
		assert.Equal(t, twoTurnHistory(), prepared)
	})

	t.Run("block index outside message", func(t *testing.T) {
		log := editlog.New()
		log.Append(0, 5, common.RoleUser, editlog.Edit{Timestamp: 1, Kind: editlog.KindReplaceContent, Payload: "x"})

		prepared := Apply(twoTurnHistory(), log)
		assert.Equal(t, twoTurnHistory(), prepared)
	})

	t.Run("replace_content on a non-text block", func(t *testing.T) {
		history := []common.Message{{
			Role: common.RoleUser,
			Content: []common.ContentBlock{
				{Type: common.ContentBlockTypeImage, Image: &common.ImageRef{Url: "u"}},
			},
		}}
		log := editlog.New()
		log.Append(0, 0, common.RoleUser, editlog.Edit{Timestamp: 1, Kind: editlog.KindReplaceContent, Payload: "x"})

		prepared := Apply(history, log)
		assert.Equal(t, history, prepared)
	})

	t.Run("replace_content with non-string payload", func(t *testing.T) {
		log := editlog.New()
		log.Append(0, 0, common.RoleUser, editlog.Edit{Timestamp: 1, Kind: editlog.KindReplaceContent, Payload: 42})

		prepared := Apply(twoTurnHistory(), log)
		assert.Equal(t, "original user text", prepared[0].Content[0].Text)
	})

	t.Run("one bad edit does not block the rest", func(t *testing.T) {
		log := editlog.New()
		log.Append(9, 0, common.RoleUser, editlog.Edit{Timestamp: 1, Kind: editlog.KindReplaceContent, Payload: "x"})
		log.Append(0, 0, common.RoleUser, editlog.Edit{Timestamp: 1, Kind: editlog.KindReplaceContent, Payload: "applied"})

		prepared := Apply(twoTurnHistory(), log)
		assert.Equal(t, "applied", prepared[0].Content[0].Text)
	})

	t.Run("other kind is a no-op", func(t *testing.T) {
		log := editlog.New()
		log.Append(0, 0, common.RoleUser, editlog.Edit{Timestamp: 1, Kind: editlog.KindOther, Payload: map[string]any{"hint": "future"}})

		prepared := Apply(twoTurnHistory(), log)
		assert.Equal(t, twoTurnHistory(), prepared)
	})
}

func TestApplyEmptyLog(t *testing.T) {
	history := twoTurnHistory()

	prepared := Apply(history, editlog.New())
	require.Equal(t, history, prepared)

	prepared = Apply(history, nil)
	require.Equal(t, history, prepared)
}
