package editor

import "testing"

func TestWrap(t *testing.T) {
	cases := []struct {
		name       string
		text       string
		from, to   int
		before     string
		after      string
		wantText   string
		wantCursor int
	}{
		{
			name: "bold selection",
			text: "hello world", from: 6, to: 11,
			before: "**", after: "**",
			wantText:   "hello **world**",
			wantCursor: 8,
		},
		{
			name: "empty selection inserts placeholder",
			text: "hello ", from: 6, to: 6,
			before: "*", after: "*",
			wantText:   "hello *text*",
			wantCursor: 7,
		},
		{
			name: "link around selection",
			text: "see docs here", from: 4, to: 8,
			before: "[", after: "](url)",
			wantText:   "see [docs](url) here",
			wantCursor: 5,
		},
		{
			name: "offsets past end are clamped",
			text: "abc", from: 2, to: 99,
			before: "`", after: "`",
			wantText:   "ab`c`",
			wantCursor: 3,
		},
		{
			name: "inverted range treated as empty",
			text: "abc", from: 2, to: 1,
			before: "**", after: "**",
			wantText:   "ab**text**c",
			wantCursor: 4,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, cursor := Wrap(tc.text, tc.from, tc.to, tc.before, tc.after)
			if got != tc.wantText {
				t.Fatalf("text = %q, want %q", got, tc.wantText)
			}
			if cursor != tc.wantCursor {
				t.Fatalf("cursor = %d, want %d", cursor, tc.wantCursor)
			}
		})
	}
}

func TestBlock(t *testing.T) {
	cases := []struct {
		name       string
		text       string
		from, to   int
		block      string
		wantText   string
		wantCursor int
	}{
		{
			name: "heading at start of document",
			text: "title", from: 0, to: 0,
			block:      "# ",
			wantText:   "# title",
			wantCursor: 2,
		},
		{
			name: "heading replaces line up to cursor",
			text: "some title", from: 5, to: 5,
			block:      "# ",
			wantText:   "# title",
			wantCursor: 2,
		},
		{
			name: "block on a later line gets its own line",
			text: "intro\nitem", from: 6, to: 6,
			block:      "- ",
			wantText:   "intro\n\n- item",
			wantCursor: 9,
		},
		{
			name: "selection spanning into the line is consumed",
			text: "abc\ndef ghi", from: 4, to: 8,
			block:      "> ",
			wantText:   "abc\n\n> ghi",
			wantCursor: 7,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, cursor := Block(tc.text, tc.from, tc.to, tc.block)
			if got != tc.wantText {
				t.Fatalf("text = %q, want %q", got, tc.wantText)
			}
			if cursor != tc.wantCursor {
				t.Fatalf("cursor = %d, want %d", cursor, tc.wantCursor)
			}
		})
	}
}
