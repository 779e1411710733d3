package contextwin

import (
	"regexp"
	"strings"
	"time"

	"winnow/common"
	"winnow/editlog"
)

// readFileResultPattern matches the header text block a read_file tool
// result starts with. The file's content lives in the following block.
var readFileResultPattern = regexp.MustCompile(`^\[read_file for '([^']+)'\] Result:$`)

// fileMentionPattern matches inline file content embedded in a text block.
// (?s) lets the content span newlines.
var fileMentionPattern = regexp.MustCompile(`(?s)<file_content path="([^"]*)">(.*?)</file_content>`)

// fileReadOccurrence is one sighting of a file's content in the raw
// history: either the content block of a read_file tool result, or an
// inline <file_content> mention inside a text block.
type fileReadOccurrence struct {
	messageIndex int
	blockIndex   int
	path         string
	mention      bool
	fullMatch    string // exact matched substring, mention shape only
}

// Elide scans the raw history for repeated file reads and returns a
// candidate edit log: a clone of seed with a replace_content edit appended
// for every occurrence except the last one per path. The last read is the
// one most likely to reflect current file state, and elision stays
// reversible through rollback, so keeping the newest copy loses nothing.
//
// All edits emitted by one call share a single timestamp. An occurrence
// whose block already projects to the elided form is skipped, so repeated
// calls over the same history leave the candidate equal to the seed.
func Elide(history []common.Message, seed *editlog.EditLog, now time.Time) *editlog.EditLog {
	candidate := editlog.New()
	if seed != nil {
		candidate = seed.Clone()
	}

	var paths []string
	byPath := map[string][]fileReadOccurrence{}
	record := func(occ fileReadOccurrence) {
		if _, seen := byPath[occ.path]; !seen {
			paths = append(paths, occ.path)
		}
		byPath[occ.path] = append(byPath[occ.path], occ)
	}

	for i, msg := range history {
		if msg.Role != common.RoleUser {
			continue
		}
		if len(msg.Content) >= 2 && msg.Content[0].Type == common.ContentBlockTypeText {
			if m := readFileResultPattern.FindStringSubmatch(msg.Content[0].Text); m != nil {
				record(fileReadOccurrence{messageIndex: i, blockIndex: 1, path: m[1]})
			}
		}
		for b, block := range msg.Content {
			if block.Type != common.ContentBlockTypeText {
				continue
			}
			for _, m := range fileMentionPattern.FindAllStringSubmatch(block.Text, -1) {
				record(fileReadOccurrence{
					messageIndex: i,
					blockIndex:   b,
					path:         m[1],
					mention:      true,
					fullMatch:    m[0],
				})
			}
		}
	}

	timestamp := now.UnixMilli()
	for _, path := range paths {
		occurrences := byPath[path]
		if len(occurrences) < 2 {
			continue
		}
		// keep the last occurrence untouched
		for _, occ := range occurrences[:len(occurrences)-1] {
			if occ.mention {
				elideMention(candidate, history, occ, timestamp)
			} else {
				elideToolResult(candidate, history, occ, timestamp)
			}
		}
	}
	return candidate
}

func elideToolResult(candidate *editlog.EditLog, history []common.Message, occ fileReadOccurrence, timestamp int64) {
	if last, ok := candidate.LastEdit(occ.messageIndex, occ.blockIndex); ok {
		if last.Kind == editlog.KindReplaceContent && last.Payload == DuplicateFileReadNotice() {
			return
		}
	}
	candidate.Append(occ.messageIndex, occ.blockIndex, history[occ.messageIndex].Role, editlog.Edit{
		Timestamp: timestamp,
		Kind:      editlog.KindReplaceContent,
		Payload:   DuplicateFileReadNotice(),
		Metadata:  &editlog.Metadata{OriginalPath: occ.path},
	})
}

func elideMention(candidate *editlog.EditLog, history []common.Message, occ fileReadOccurrence, timestamp int64) {
	current := currentBlockText(candidate, history, occ.messageIndex, occ.blockIndex)
	if !strings.Contains(current, occ.fullMatch) {
		// already elided by an earlier pass (or an earlier occurrence in
		// this block)
		return
	}
	replacement := `<file_content path="` + occ.path + `">` + DuplicateFileReadNotice() + `</file_content>`
	candidate.Append(occ.messageIndex, occ.blockIndex, history[occ.messageIndex].Role, editlog.Edit{
		Timestamp: timestamp,
		Kind:      editlog.KindReplaceContent,
		Payload:   strings.Replace(current, occ.fullMatch, replacement, 1),
		Metadata:  &editlog.Metadata{OriginalPath: occ.path, ReplacedMention: true},
	})
}

// currentBlockText resolves the text a block currently projects to: the
// payload of its latest replace_content edit, else the raw block text.
func currentBlockText(log *editlog.EditLog, history []common.Message, messageIndex, blockIndex int) string {
	if last, ok := log.LastEdit(messageIndex, blockIndex); ok && last.Kind == editlog.KindReplaceContent {
		if text, ok := last.Payload.(string); ok {
			return text
		}
	}
	if messageIndex >= 0 && messageIndex < len(history) {
		content := history[messageIndex].Content
		if blockIndex >= 0 && blockIndex < len(content) && content[blockIndex].Type == common.ContentBlockTypeText {
			return content[blockIndex].Text
		}
	}
	return ""
}
