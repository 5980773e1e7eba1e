package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ai-script-adherence-service/internal/models"
)

// readTranscript loads fragments from a .json file (array of strings or an
// evaluation request object) or a text file with one fragment per line.
func readTranscript(path string) (models.RawTranscriptSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return parseJSONTranscript(data)
	}
	return parseTextTranscript(data)
}

func parseJSONTranscript(data []byte) (models.RawTranscriptSet, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var fragments models.RawTranscriptSet
		if err := json.Unmarshal(trimmed, &fragments); err != nil {
			return nil, fmt.Errorf("failed to parse transcript array: %w", err)
		}
		return fragments, nil
	}

	var req models.EvaluationRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, fmt.Errorf("failed to parse transcript request: %w", err)
	}
	return req.Fragments, nil
}

func parseTextTranscript(data []byte) (models.RawTranscriptSet, error) {
	var fragments models.RawTranscriptSet
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fragments = append(fragments, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan transcript: %w", err)
	}
	return fragments, nil
}
