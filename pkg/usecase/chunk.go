package usecase

import "strings"

// ChunkText normalizes whitespace and splits text into windows of at most
// size runes, each sharing overlap runes with the previous one. Every window
// advances by at least one rune and the last window ends at the text end.
func ChunkText(text string, size, overlap int) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" || size <= 0 {
		return nil
	}
	overlap = max(0, min(overlap, size-1))

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); {
		end := min(start+size, len(runes))
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}
