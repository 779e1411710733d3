package contextwin

import (
	"math"
	"time"

	zlog "github.com/rs/zerolog/log"

	"winnow/common"
	"winnow/editlog"
)

// preservedPrefixLen is the number of leading messages truncation never
// evicts: the first user/assistant pair, which anchors the task.
const preservedPrefixLen = 2

// TruncateResult carries the truncator's outputs back to the manager.
type TruncateResult struct {
	History      []common.Message
	Log          *editlog.EditLog
	WasTruncated bool
}

// Truncate evicts a contiguous middle range of messages when the previous
// request's measured token count exceeded the allowed budget. The trigger
// is deliberately the prior request, not the current history's estimate:
// reacting to a measured overflow keeps behavior predictable and amortizes
// estimator error across turns.
//
// On eviction the edit log is rewritten: entries inside the evicted range
// are discarded, entries above it are re-keyed down, and a truncation
// notice edit is recorded against block 0 of the retained assistant message
// at index 1 (skipped with a warning when index 1 is not an assistant
// turn). The input history and log are not mutated.
func Truncate(history []common.Message, log *editlog.EditLog, maxAllowedTokens int, prevRequestTokens int, fraction float64, now time.Time) TruncateResult {
	if prevRequestTokens <= maxAllowedTokens {
		return TruncateResult{History: history, Log: log, WasTruncated: false}
	}

	evictable := len(history) - preservedPrefixLen
	if evictable <= 0 {
		zlog.Warn().Int("historyLen", len(history)).Msg("history too short to truncate despite token overflow")
		return TruncateResult{History: history, Log: log, WasTruncated: true}
	}

	remove := int(math.Ceil(float64(evictable) * fraction))
	// evict whole user/assistant pairs to preserve role alternation
	if remove%2 != 0 {
		remove++
	}
	if remove > evictable {
		remove = evictable
	}

	truncated := make([]common.Message, 0, len(history)-remove)
	truncated = append(truncated, history[:preservedPrefixLen]...)
	truncated = append(truncated, history[preservedPrefixLen+remove:]...)

	rewritten := log.Clone()
	rewritten.ShiftAfterEviction(preservedPrefixLen, remove)

	if len(history) > 1 && history[1].Role == common.RoleAssistant {
		ensureTruncationNotice(rewritten, now)
	} else {
		zlog.Warn().Msg("skipping truncation notice: message at index 1 is not an assistant message")
	}

	return TruncateResult{History: truncated, Log: rewritten, WasTruncated: true}
}

// ensureTruncationNotice records a notice edit on (1, 0) unless the latest
// edit there already is one, so back-to-back truncations never stack
// notices.
func ensureTruncationNotice(log *editlog.EditLog, now time.Time) {
	if last, ok := log.LastEdit(1, 0); ok && last.Kind == editlog.KindAddTruncationNotice {
		return
	}
	log.Append(1, 0, common.RoleAssistant, editlog.Edit{
		Timestamp: now.UnixMilli(),
		Kind:      editlog.KindAddTruncationNotice,
	})
}
