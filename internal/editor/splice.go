package editor

import "strings"

// Wrap surrounds the selection [from, to) with before and after, as the bold
// and italic toolbar actions do. An empty selection wraps the placeholder
// word "text". Offsets are byte positions; the returned cursor sits at the
// start of the wrapped selection.
func Wrap(text string, from, to int, before, after string) (string, int) {
	from, to = clampRange(text, from, to)

	selected := text[from:to]
	if selected == "" {
		selected = "text"
	}
	replacement := before + selected + after

	return text[:from] + replacement + text[to:], from + len(before)
}

// Block replaces everything from the start of the line containing from up to
// to with a block prefix such as "# " or "- ". Off the first line the block
// is pushed onto its own line. The cursor lands after the inserted text.
func Block(text string, from, to int, block string) (string, int) {
	from, to = clampRange(text, from, to)

	lineStart := strings.LastIndexByte(text[:from], '\n') + 1

	insert := block
	if lineStart > 0 {
		insert = "\n" + block
	}

	return text[:lineStart] + insert + text[to:], lineStart + len(insert)
}

func clampRange(text string, from, to int) (int, int) {
	if from < 0 {
		from = 0
	}
	if from > len(text) {
		from = len(text)
	}
	if to < from {
		to = from
	}
	if to > len(text) {
		to = len(text)
	}
	return from, to
}
