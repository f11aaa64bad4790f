package render

import "strings"

// Wrap breaks text into lines of at most cols characters, breaking at word
// boundaries only. A word longer than cols gets a line of its own rather
// than being split.
func Wrap(text string, cols int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= cols {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	return append(lines, line)
}
