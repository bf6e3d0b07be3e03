package store

import "strings"

// DefaultChapter labels vocabulary lines that precede any chapter header
const DefaultChapter = "Uncategorized"

var chapterMarkers = []string{"章", "Chapter"}

// Line is one retained line of an import
type Line struct {
	Content string
	Chapter string
}

// ParseLines splits raw import text into retained lines. Blank lines and
// separator lines (starting with "---") are dropped. With chapters enabled,
// lines containing a chapter marker become the chapter of the lines after them.
func ParseLines(text string, chapters bool) []Line {
	var lines []Line
	chapter := ""
	if chapters {
		chapter = DefaultChapter
	}

	for _, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || isSeparator(trimmed) {
			continue
		}
		if chapters && isChapterHeader(trimmed) {
			chapter = trimmed
			continue
		}
		lines = append(lines, Line{Content: trimmed, Chapter: chapter})
	}

	return lines
}

func isSeparator(line string) bool {
	return strings.HasPrefix(line, "---")
}

func isChapterHeader(line string) bool {
	for _, marker := range chapterMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}
