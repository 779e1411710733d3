package common

// Role identifies which side of the conversation produced a message. The
// context window manager only ever sees user and assistant turns; system
// prompts are assembled upstream and never flow through preparation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentBlockType enumerates standardized content block kinds.
type ContentBlockType string

const (
	ContentBlockTypeText       ContentBlockType = "text"
	ContentBlockTypeImage      ContentBlockType = "image"
	ContentBlockTypeToolUse    ContentBlockType = "tool_use"
	ContentBlockTypeToolResult ContentBlockType = "tool_result"
)

// ImageRef is an opaque reference to image input. The manager never decodes
// image data; it only charges a fixed token estimate for it.
type ImageRef struct {
	Url string `json:"url,omitempty"`
}

// Tool invocation emitted by the assistant.
type ToolUseBlock struct {
	Id        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

// Tool result content provided back to the assistant, modeled within a
// user-role message. Text holds plain string results; Content holds
// structured results and is serialized before token counting.
type ToolResultBlock struct {
	ToolCallId string `json:"toolCallId,omitempty"`
	Name       string `json:"name,omitempty"`
	IsError    bool   `json:"isError,omitempty"`
	Text       string `json:"text,omitempty"`
	Content    any    `json:"content,omitempty"`
}

// A single content block within a message turn.
type ContentBlock struct {
	Type       ContentBlockType `json:"type"`
	Text       string           `json:"text,omitempty"`
	Image      *ImageRef        `json:"image,omitempty"`
	ToolUse    *ToolUseBlock    `json:"toolUse,omitempty"`
	ToolResult *ToolResultBlock `json:"toolResult,omitempty"`
}

// A single chat turn consisting of a role and ordered content blocks.
//
// Text is the legacy bare-string form: a message with no content blocks and
// a non-empty Text is treated as a single text run. New history producers
// should always populate Content.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// GetRole implements the shared message interface.
func (m Message) GetRole() string {
	return string(m.Role)
}

// GetContentString returns the concatenated text of all text blocks, or the
// legacy bare-string content for block-less messages.
func (m Message) GetContentString() string {
	if len(m.Content) == 0 {
		return m.Text
	}
	var s string
	for _, block := range m.Content {
		if block.Type == ContentBlockTypeText {
			s += block.Text
		}
	}
	return s
}

// TextMessage builds a single-text-block message.
func TextMessage(role Role, text string) Message {
	return Message{
		Role:    role,
		Content: []ContentBlock{{Type: ContentBlockTypeText, Text: text}},
	}
}
