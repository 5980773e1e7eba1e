// Package keywords loads the domain terms the transcript normalizer must spell correctly.
package keywords

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"ai-script-adherence-service/internal/models"
)

// List is an ordered set of domain terms.
type List []string

// Load reads one term per line from path. Blank lines and lines starting with '#'
// are skipped, terms are trimmed and de-duplicated keeping first occurrence.
// A missing or unreadable file yields an empty list and an error wrapping
// models.ErrConfigurationMissing so callers can log it and continue. A file that
// cannot be scanned to the end yields the terms read so far with the same error.
func Load(path string) (List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return List{}, fmt.Errorf("keyword file %s: %v: %w", path, err, models.ErrConfigurationMissing)
	}
	list, err := Parse(data)
	if err != nil {
		return list, fmt.Errorf("keyword file %s: %v: %w", path, err, models.ErrConfigurationMissing)
	}
	return list, nil
}

// maxLineBytes bounds a single keyword line.
const maxLineBytes = 1024 * 1024

// Parse splits raw file content into a keyword list. On a scan error the terms
// read before it are returned with the error.
func Parse(data []byte) (List, error) {
	list := List{}
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		term := strings.TrimSpace(scanner.Text())
		if term == "" || strings.HasPrefix(term, "#") || seen[term] {
			continue
		}
		seen[term] = true
		list = append(list, term)
	}
	if err := scanner.Err(); err != nil {
		return list, fmt.Errorf("failed to scan keywords: %w", err)
	}
	return list, nil
}

// Join renders the list the way it is embedded in the correction instruction.
func (l List) Join() string {
	return strings.Join(l, ", ")
}
