package contextwin

import (
	"strings"

	zlog "github.com/rs/zerolog/log"

	"winnow/common"
	"winnow/editlog"
)

// Apply projects an edit log onto a raw history and returns the prepared
// history. The raw history is never mutated: the outer slice is copied, and
// a message's block slice is copied the first time one of its blocks
// changes. Only the last edit per (message, block) is applied; mismatches
// (stale index, wrong block variant, wrong payload type) are logged and
// skipped so one bad edit never poisons the rest of the log.
//
// Apply is idempotent: replace_content sets the same text on re-application
// and add_truncation_notice refuses to prepend a notice that is already
// there.
func Apply(history []common.Message, log *editlog.EditLog) []common.Message {
	prepared := append([]common.Message(nil), history...)
	if log == nil || log.IsEmpty() {
		return prepared
	}

	for _, index := range log.Indices() {
		if index < 0 || index >= len(prepared) {
			zlog.Warn().Int("messageIndex", index).Int("historyLen", len(prepared)).Msg("skipping edits for message index outside history")
			continue
		}
		entry, _ := log.Get(index)
		copied := false
		for block := range entry.Blocks {
			edit, ok := log.LastEdit(index, block)
			if !ok {
				continue
			}
			if block < 0 || block >= len(prepared[index].Content) {
				zlog.Warn().Int("messageIndex", index).Int("blockIndex", block).Msg("skipping edit for block index outside message")
				continue
			}
			if !copied {
				prepared[index].Content = append([]common.ContentBlock(nil), prepared[index].Content...)
				copied = true
			}
			applyEdit(&prepared[index].Content[block], edit, index, block)
		}
	}
	return prepared
}

func applyEdit(block *common.ContentBlock, edit editlog.Edit, messageIndex, blockIndex int) {
	switch edit.Kind {
	case editlog.KindReplaceContent:
		text, ok := edit.Payload.(string)
		if !ok {
			zlog.Warn().Int("messageIndex", messageIndex).Int("blockIndex", blockIndex).Msg("skipping replace_content edit with non-string payload")
			return
		}
		if block.Type != common.ContentBlockTypeText {
			zlog.Warn().Int("messageIndex", messageIndex).Int("blockIndex", blockIndex).Str("blockType", string(block.Type)).Msg("skipping replace_content edit targeting non-text block")
			return
		}
		block.Text = text
	case editlog.KindAddTruncationNotice:
		if block.Type != common.ContentBlockTypeText {
			zlog.Warn().Int("messageIndex", messageIndex).Int("blockIndex", blockIndex).Str("blockType", string(block.Type)).Msg("skipping truncation notice targeting non-text block")
			return
		}
		notice := ContextTruncationNotice()
		if strings.HasPrefix(block.Text, notice) {
			return
		}
		block.Text = notice + "\n" + block.Text
	case editlog.KindOther:
		// reserved
	default:
		zlog.Warn().Int("messageIndex", messageIndex).Int("blockIndex", blockIndex).Str("kind", string(edit.Kind)).Msg("skipping edit with unknown kind")
	}
}
