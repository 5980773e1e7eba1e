package keywords

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-script-adherence-service/internal/models"
)

func TestParse(t *testing.T) {
	data := []byte("Choice Broking\n\n  FinX Algo  \n# comment\nChoice Broking\r\nMTF\n")

	got, err := Parse(data)

	require.NoError(t, err)
	assert.Equal(t, List{"Choice Broking", "FinX Algo", "MTF"}, got)
	assert.Equal(t, "Choice Broking, FinX Algo, MTF", got.Join())
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "", got.Join())
}

func TestLoad_MissingFileDegrades(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent.txt"))

	assert.ErrorIs(t, err, models.ErrConfigurationMissing)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestParse_LongLineKeepsLaterTerms(t *testing.T) {
	data := []byte("Choice Finx\n" + strings.Repeat("x", 70*1024) + "\nChoice Broking\n")

	got, err := Parse(data)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Choice Finx", got[0])
	assert.Equal(t, "Choice Broking", got[2])
}

func TestLoad_OversizedLineDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.txt")
	data := "Choice Finx\n" + strings.Repeat("x", maxLineBytes+1) + "\nChoice Broking\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	got, err := Load(path)

	assert.ErrorIs(t, err, models.ErrConfigurationMissing)
	assert.Equal(t, List{"Choice Finx"}, got)
}
