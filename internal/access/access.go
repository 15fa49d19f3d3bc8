// Package access decides who may read or write a board. The functions are
// pure; absence and storage failures are the lookup's concern, not ours.
package access

import "markboard/api/internal/store"

// CanRead reports whether the caller may read the board. An empty callerID
// is anonymous and satisfies only the public case.
func CanRead(board store.Board, callerID string) bool {
	if board.IsPublic {
		return true
	}
	if callerID == "" {
		return false
	}
	return callerID == board.AuthorID || isEditor(board, callerID)
}

// CanWrite reports whether the caller may overwrite the board's content.
// Visibility never grants write access: a public board is read-open but
// write-closed to non-editors.
func CanWrite(board store.Board, callerID string) bool {
	if callerID == "" {
		return false
	}
	return callerID == board.AuthorID || isEditor(board, callerID)
}

func isEditor(board store.Board, callerID string) bool {
	for _, editor := range board.Editors {
		if editor == callerID {
			return true
		}
	}
	return false
}

// NormalizeEditors removes duplicates and the author from an editor list,
// preserving first-seen order. The author is privileged independently and
// never appears in the stored list.
func NormalizeEditors(authorID string, editorIDs []string) []string {
	seen := make(map[string]struct{}, len(editorIDs))
	normalized := make([]string, 0, len(editorIDs))
	for _, id := range editorIDs {
		if id == "" || id == authorID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		normalized = append(normalized, id)
	}
	return normalized
}
