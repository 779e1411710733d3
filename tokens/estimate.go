package tokens

import (
	"encoding/json"
	"fmt"
	"math"

	"winnow/common"
)

const (
	// CharsPerToken is the conservative estimate for token-to-char conversion
	CharsPerToken = 2.5
	// ToolOverheadTokens is the fixed surcharge per tool_use / tool_result
	// block, covering provider-side framing the tokenizer never sees.
	ToolOverheadTokens = 20
)

// Counter maps text to a non-negative token count. Implementations must be
// pure and total.
type Counter func(text string) int

// HeuristicCounter estimates tokens from byte length using CharsPerToken.
// It overcounts for prose and undercounts for dense code, which is the
// right failure direction for budget checks.
func HeuristicCounter(text string) int {
	return int(math.Ceil(float64(len(text)) / CharsPerToken))
}

// Estimator computes deterministic token counts for prepared histories.
type Estimator struct {
	count       Counter
	imageTokens int
}

// NewEstimator builds an Estimator. A nil counter falls back to
// HeuristicCounter; a non-positive imageTokens falls back to the default.
func NewEstimator(count Counter, imageTokens int) Estimator {
	if count == nil {
		count = HeuristicCounter
	}
	if imageTokens <= 0 {
		imageTokens = common.DefaultImageTokens
	}
	return Estimator{count: count, imageTokens: imageTokens}
}

// History returns the token estimate for an entire prepared history.
func (e Estimator) History(messages []common.Message) int {
	total := 0
	for _, msg := range messages {
		total += e.Message(msg)
	}
	return total
}

// Message returns the token estimate for a single message. Legacy messages
// whose content is a bare string are counted as one text run.
func (e Estimator) Message(msg common.Message) int {
	if len(msg.Content) == 0 {
		return e.count(msg.Text)
	}
	total := 0
	for _, block := range msg.Content {
		total += e.Block(block)
	}
	return total
}

// Block returns the token estimate for one content block.
func (e Estimator) Block(block common.ContentBlock) int {
	switch block.Type {
	case common.ContentBlockTypeText:
		return e.count(block.Text)
	case common.ContentBlockTypeImage:
		return e.imageTokens
	case common.ContentBlockTypeToolUse:
		if block.ToolUse == nil {
			return 0
		}
		return e.count(block.ToolUse.Arguments) + e.count(block.ToolUse.Name) + ToolOverheadTokens
	case common.ContentBlockTypeToolResult:
		if block.ToolResult == nil {
			return 0
		}
		return e.count(toolResultText(block.ToolResult)) + ToolOverheadTokens
	default:
		return 0
	}
}

// toolResultText renders a tool result as the string the tokenizer sees:
// plain text as-is, structured content serialized.
func toolResultText(result *common.ToolResultBlock) string {
	if result.Content == nil {
		return result.Text
	}
	serialized, err := json.Marshal(result.Content)
	if err != nil {
		return fmt.Sprint(result.Content)
	}
	return string(serialized)
}
