package contextwin

// Canonical notice strings. The applier and elider depend on these exact
// texts for their idempotence checks (prefix test for the truncation
// notice, payload comparison for the duplicate-read notice), so they must
// not vary between calls.

const contextTruncationNotice = "[NOTE] Some previous conversation history with the user has been removed to maintain optimal context window length. The initial user task and the most recent exchanges have been retained for continuity, while intermediate conversation history has been removed. Please keep this in mind as you continue assisting the user."

const duplicateFileReadNotice = "[[NOTE] This file read has been removed to save space in the context window. Refer to the latest file read for the most up to date version of this file.]"

// ContextTruncationNotice is prepended to the first retained assistant
// message after middle turns have been evicted.
func ContextTruncationNotice() string {
	return contextTruncationNotice
}

// DuplicateFileReadNotice replaces all but the last occurrence of a
// repeated file read.
func DuplicateFileReadNotice() string {
	return duplicateFileReadNotice
}
