package editlog

import (
	"reflect"
	"sort"

	"winnow/common"
)

// Kind is the type of mutation an edit applies to its target block.
type Kind string

const (
	KindReplaceContent      Kind = "replace_content"
	KindAddTruncationNotice Kind = "add_truncation_notice"
	// KindOther is reserved for forward compatibility. Applying it is a
	// no-op, but it still participates in rollback and persistence.
	KindOther Kind = "other"
)

// Metadata carries optional structured hints about an edit's origin.
type Metadata struct {
	OriginalPath    string `json:"originalPath,omitempty"`
	ReplacedMention bool   `json:"replacedMention,omitempty"`
}

// Edit is a single timestamped mutation targeting one (message, block) pair.
// Payload is the new full text for replace_content edits, nil for
// add_truncation_notice, and opaque for other.
type Edit struct {
	Timestamp int64
	Kind      Kind
	Payload   any
	Metadata  *Metadata
}

// Entry holds all edits for one message, grouped by block index. EditType
// records the role of the target message as of the first edit; it never
// changes afterwards.
type Entry struct {
	EditType common.Role
	Blocks   map[int][]Edit
}

// EditLog is an ordered, timestamped record of mutations overlaid on an
// immutable raw conversation. Within a block's edit list, append order is
// significant: only the last edit is applied, earlier edits exist solely so
// rollback can restore prior states.
type EditLog struct {
	entries map[int]*Entry
}

// New returns an empty edit log.
func New() *EditLog {
	return &EditLog{entries: map[int]*Entry{}}
}

// IsEmpty reports whether the log contains no entries at all.
func (l *EditLog) IsEmpty() bool {
	return len(l.entries) == 0
}

// Len returns the number of message entries.
func (l *EditLog) Len() int {
	return len(l.entries)
}

// Get returns the entry for the given message index, if present.
func (l *EditLog) Get(index int) (*Entry, bool) {
	entry, ok := l.entries[index]
	return entry, ok
}

// Set replaces the entry for the given message index.
func (l *EditLog) Set(index int, entry *Entry) {
	l.entries[index] = entry
}

// Delete removes the entry for the given message index.
func (l *EditLog) Delete(index int) {
	delete(l.entries, index)
}

// Indices returns all message indices with entries, in ascending order.
func (l *EditLog) Indices() []int {
	indices := make([]int, 0, len(l.entries))
	for index := range l.entries {
		indices = append(indices, index)
	}
	sort.Ints(indices)
	return indices
}

// Append adds an edit to the list for (index, block). The entry is created
// on first use, recording role as its EditType.
func (l *EditLog) Append(index int, block int, role common.Role, edit Edit) {
	entry, ok := l.entries[index]
	if !ok {
		entry = &Entry{EditType: role, Blocks: map[int][]Edit{}}
		l.entries[index] = entry
	}
	if entry.Blocks == nil {
		entry.Blocks = map[int][]Edit{}
	}
	entry.Blocks[block] = append(entry.Blocks[block], edit)
}

// LastEdit returns the most recent edit for (index, block), i.e. the one the
// applier would project onto the raw block.
func (l *EditLog) LastEdit(index int, block int) (Edit, bool) {
	entry, ok := l.entries[index]
	if !ok {
		return Edit{}, false
	}
	edits := entry.Blocks[block]
	if len(edits) == 0 {
		return Edit{}, false
	}
	return edits[len(edits)-1], true
}

// Clone returns a deep copy. Edit payloads and metadata are immutable by
// convention, so they are shared; maps and slices are copied.
func (l *EditLog) Clone() *EditLog {
	clone := New()
	for index, entry := range l.entries {
		blocks := make(map[int][]Edit, len(entry.Blocks))
		for block, edits := range entry.Blocks {
			blocks[block] = append([]Edit(nil), edits...)
		}
		clone.entries[index] = &Entry{EditType: entry.EditType, Blocks: blocks}
	}
	return clone
}

// Equal reports deep structural equality. This is what gates persistence:
// a process pass that produced no new edits must not trigger a store.
func (l *EditLog) Equal(other *EditLog) bool {
	if l == nil || other == nil {
		return l == other
	}
	if len(l.entries) != len(other.entries) {
		return false
	}
	for index, entry := range l.entries {
		otherEntry, ok := other.entries[index]
		if !ok {
			return false
		}
		if entry.EditType != otherEntry.EditType {
			return false
		}
		if len(entry.Blocks) != len(otherEntry.Blocks) {
			return false
		}
		for block, edits := range entry.Blocks {
			otherEdits, ok := otherEntry.Blocks[block]
			if !ok || len(edits) != len(otherEdits) {
				return false
			}
			for i := range edits {
				if !edits[i].equal(otherEdits[i]) {
					return false
				}
			}
		}
	}
	return true
}

func (e Edit) equal(other Edit) bool {
	if e.Timestamp != other.Timestamp || e.Kind != other.Kind {
		return false
	}
	if !reflect.DeepEqual(e.Payload, other.Payload) {
		return false
	}
	return reflect.DeepEqual(e.Metadata, other.Metadata)
}

// TrimAfter removes every edit whose timestamp is strictly greater than ts,
// pruning blocks and entries that become empty. Returns whether anything
// was removed. This is the rollback primitive: the surviving log is exactly
// the state the log had at instant ts.
func (l *EditLog) TrimAfter(ts int64) bool {
	changed := false
	for index, entry := range l.entries {
		for block, edits := range entry.Blocks {
			kept := edits[:0:0]
			for _, edit := range edits {
				if edit.Timestamp <= ts {
					kept = append(kept, edit)
				}
			}
			if len(kept) == len(edits) {
				continue
			}
			changed = true
			if len(kept) == 0 {
				delete(entry.Blocks, block)
			} else {
				entry.Blocks[block] = kept
			}
		}
		if len(entry.Blocks) == 0 {
			delete(l.entries, index)
		}
	}
	return changed
}

// ShiftAfterEviction rewrites message indices after the half-open range
// [start, start+count) of messages has been evicted: entries inside the
// range are discarded, entries above it are re-keyed down by count, and
// entries below it are untouched.
func (l *EditLog) ShiftAfterEviction(start int, count int) {
	if count <= 0 {
		return
	}
	shifted := make(map[int]*Entry, len(l.entries))
	for index, entry := range l.entries {
		switch {
		case index < start:
			shifted[index] = entry
		case index < start+count:
			// evicted along with its message
		default:
			shifted[index-count] = entry
		}
	}
	l.entries = shifted
}
