package similarity

// splitChunks splits text into overlapping chunks of at most chunkSize
// characters. The overlap preserves context across chunk boundaries. Text at
// or under chunkSize is returned as a single chunk. Boundaries are measured
// in runes so multi-byte characters are never split.
func splitChunks(text string, chunkSize, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
