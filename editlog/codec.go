package editlog

import (
	"encoding/json"
	"strconv"

	zlog "github.com/rs/zerolog/log"

	"winnow/common"
)

// The on-disk representation is a structural dump of the log with numeric
// keys rendered as base-10 strings and edits as 3- or 4-element arrays:
//
//	{"0": {"editType": "user", "blocks": {"1": [[ts, kind, payload, meta?]]}}}
//
// Decoding is lenient: keys that don't parse as integers and edit tuples
// that don't match the shape are dropped with a warning, so a corrupted
// record degrades to a smaller (or empty) log instead of failing the task.

type diskEntry struct {
	EditType string                       `json:"editType"`
	Blocks   map[string][]json.RawMessage `json:"blocks"`
}

func (e Edit) MarshalJSON() ([]byte, error) {
	tuple := []any{e.Timestamp, e.Kind, e.Payload}
	if e.Metadata != nil {
		tuple = append(tuple, e.Metadata)
	}
	return json.Marshal(tuple)
}

func (l *EditLog) MarshalJSON() ([]byte, error) {
	disk := make(map[string]diskEntry, len(l.entries))
	for index, entry := range l.entries {
		blocks := make(map[string][]json.RawMessage, len(entry.Blocks))
		for block, edits := range entry.Blocks {
			rawEdits := make([]json.RawMessage, 0, len(edits))
			for _, edit := range edits {
				raw, err := json.Marshal(edit)
				if err != nil {
					return nil, err
				}
				rawEdits = append(rawEdits, raw)
			}
			blocks[strconv.Itoa(block)] = rawEdits
		}
		disk[strconv.Itoa(index)] = diskEntry{
			EditType: string(entry.EditType),
			Blocks:   blocks,
		}
	}
	return json.Marshal(disk)
}

func (l *EditLog) UnmarshalJSON(data []byte) error {
	var disk map[string]diskEntry
	if err := json.Unmarshal(data, &disk); err != nil {
		return err
	}

	l.entries = make(map[int]*Entry, len(disk))
	for key, rawEntry := range disk {
		index, err := strconv.Atoi(key)
		if err != nil {
			zlog.Warn().Str("key", key).Msg("dropping edit log entry with non-numeric message key")
			continue
		}
		role := common.Role(rawEntry.EditType)
		if role != common.RoleUser && role != common.RoleAssistant {
			zlog.Warn().Int("messageIndex", index).Str("editType", rawEntry.EditType).Msg("dropping edit log entry with unknown edit type")
			continue
		}

		entry := &Entry{EditType: role, Blocks: map[int][]Edit{}}
		for blockKey, rawEdits := range rawEntry.Blocks {
			block, err := strconv.Atoi(blockKey)
			if err != nil {
				zlog.Warn().Int("messageIndex", index).Str("key", blockKey).Msg("dropping edit list with non-numeric block key")
				continue
			}
			edits := make([]Edit, 0, len(rawEdits))
			for _, rawEdit := range rawEdits {
				edit, ok := decodeEdit(rawEdit)
				if !ok {
					zlog.Warn().Int("messageIndex", index).Int("blockIndex", block).Msg("dropping malformed edit tuple")
					continue
				}
				edits = append(edits, edit)
			}
			if len(edits) > 0 {
				entry.Blocks[block] = edits
			}
		}
		if len(entry.Blocks) > 0 {
			l.entries[index] = entry
		}
	}
	return nil
}

func decodeEdit(raw json.RawMessage) (Edit, bool) {
	var tuple []json.RawMessage
	if err := json.Unmarshal(raw, &tuple); err != nil {
		return Edit{}, false
	}
	if len(tuple) != 3 && len(tuple) != 4 {
		return Edit{}, false
	}

	var edit Edit
	if err := json.Unmarshal(tuple[0], &edit.Timestamp); err != nil {
		return Edit{}, false
	}
	var kind string
	if err := json.Unmarshal(tuple[1], &kind); err != nil {
		return Edit{}, false
	}
	switch Kind(kind) {
	case KindReplaceContent, KindAddTruncationNotice, KindOther:
		edit.Kind = Kind(kind)
	default:
		return Edit{}, false
	}
	if err := json.Unmarshal(tuple[2], &edit.Payload); err != nil {
		return Edit{}, false
	}
	if len(tuple) == 4 {
		var metadata Metadata
		if err := json.Unmarshal(tuple[3], &metadata); err != nil {
			return Edit{}, false
		}
		edit.Metadata = &metadata
	}
	return edit, true
}
