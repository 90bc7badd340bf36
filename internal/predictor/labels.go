package predictor

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DefaultLabels is the label catalog matching the bundled model's output order.
var DefaultLabels = []string{
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J",
	"K", "L", "M", "N", "O", "P", "Q", "R", "S", "T",
	"U", "V", "W", "X", "Y", "Z",
	"Hello", "Thank You", "Yes", "No", "Please",
	"Sorry", "Help", "I Love You", "Goodbye",
}

// LoadLabels reads a label catalog from a file with one label per line.
// Blank lines and lines starting with '#' are skipped.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

// labelAt returns the label for a class index, or a "Sign N" placeholder
// when the index is beyond the catalog.
func labelAt(labels []string, idx int) string {
	if idx >= 0 && idx < len(labels) {
		return labels[idx]
	}
	return fmt.Sprintf("Sign %d", idx)
}
