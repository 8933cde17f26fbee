package webfetcher

// Window returns the characters of text in [startIndex, startIndex+maxLength).
// Indexes count runes, not bytes, so multi-byte characters are never split.
// An empty string is returned when startIndex is at or past the end.
func Window(text string, startIndex, maxLength int) string {
	if startIndex < 0 {
		startIndex = 0
	}
	if maxLength <= 0 {
		return ""
	}

	start := -1
	n := 0
	for pos := range text {
		if n == startIndex {
			start = pos
		}
		if start >= 0 && n-startIndex == maxLength {
			return text[start:pos]
		}
		n++
	}

	if start < 0 {
		return ""
	}
	return text[start:]
}
