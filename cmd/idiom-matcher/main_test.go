package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	im "github.com/kydenul/idiom-matcher"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func writeTestInputs(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"en.json": `{"language": "en", "name": "English", "idioms": [
  {"idiom": "kick the bucket", "contexts": ["he kicked the bucket"], "idiom_only": [1, 0, 0], "idiom_context": [1, 0.1, 0]},
  {"idiom": "break the ice", "contexts": ["she broke the ice"], "idiom_only": [0, 1, 0], "idiom_context": [0, 1, 0.1]}
]}`,
		"fr.json": `{"language": "fr", "name": "French", "idioms": [
  {"idiom": "casser sa pipe", "english_translations": ["to die"], "idiom_only": [0.9, 0.1, 0], "idiom_context": [1, 0.2, 0]},
  {"idiom": "briser la glace", "idiom_only": [0.1, 0.9, 0], "idiom_context": [0, 1, 0.2]}
]}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	config := `idiom_matcher:
  source:
    language: en
    bundle: ` + filepath.Join(dir, "en.json") + `
  targets:
    - language: fr
      name: French
      bundle: ` + filepath.Join(dir, "fr.json") + `
  export:
    output_dir: ` + filepath.Join(dir, "results") + `
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "idiom-matcher.yaml"), []byte(config), 0o644))

	return dir
}

func TestOverlapCommand(t *testing.T) {
	out, err := runCommand(t, "overlap", "kick the bucket", "Kick the can")
	require.NoError(t, err)

	assert.Contains(t, out, "tokens a: [kick the bucket]")
	assert.Contains(t, out, "tokens b: [kick the can]")
	assert.Contains(t, out, "overlap: 0.5000")
}

func TestOverlapCommandArgs(t *testing.T) {
	_, err := runCommand(t, "overlap", "only one")
	assert.Error(t, err)

	_, err = runCommand(t, "overlap", "--tokenizer", "bpe", "a", "b")
	assert.ErrorIs(t, err, im.ErrInvalidConfiguration)
}

func TestAnalyzeCommand(t *testing.T) {
	dir := writeTestInputs(t)
	dbPath := filepath.Join(dir, "results.db")

	out, err := runCommand(t, "analyze",
		"--config", filepath.Join(dir, "idiom-matcher.yaml"),
		"--log-level", "error",
		"--min-threshold", "0.5",
		"--sqlite", dbPath,
		"--json")
	require.NoError(t, err)

	var summary []im.LanguageSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Len(t, summary, 1)
	assert.Equal(t, "fr", summary[0].Language)
	assert.Equal(t, 2, summary[0].Matches)
	assert.Empty(t, summary[0].Error)

	assert.FileExists(t, filepath.Join(dir, "results", "improved_fr_matches.json"))
	assert.FileExists(t, dbPath)

	out, err = runCommand(t, "stats", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "fr")
	assert.Contains(t, out, im.ModeDual)
}

func TestAnalyzeCommandInvalidOverride(t *testing.T) {
	dir := writeTestInputs(t)

	_, err := runCommand(t, "analyze",
		"--config", filepath.Join(dir, "idiom-matcher.yaml"),
		"--mode", "fuzzy")
	assert.ErrorIs(t, err, im.ErrInvalidConfiguration)
}

func TestSimilarCommand(t *testing.T) {
	dir := writeTestInputs(t)
	config := filepath.Join(dir, "idiom-matcher.yaml")

	out, err := runCommand(t, "similar", "Kick the Bucket", "--config", config, "--log-level", "error", "--json")
	require.NoError(t, err)

	var matches []im.Match
	require.NoError(t, json.Unmarshal([]byte(out), &matches))
	require.Len(t, matches, 2)
	assert.Equal(t, "casser sa pipe", matches[0].TargetIdiom)
	assert.Equal(t, "to die", matches[0].Translation)
	assert.Equal(t, 1, matches[0].Rank)
	assert.InDelta(t, 0.9939, matches[0].Score, 1e-4)
	assert.Equal(t, "briser la glace", matches[1].TargetIdiom)

	out, err = runCommand(t, "similar", "break the ice", "--config", config, "--log-level", "error",
		"--target", "FR", "--top-k", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "briser la glace")
	assert.NotContains(t, out, "casser sa pipe")
}

func TestSimilarCommandErrors(t *testing.T) {
	dir := writeTestInputs(t)
	config := filepath.Join(dir, "idiom-matcher.yaml")

	_, err := runCommand(t, "similar", "spill the beans", "--config", config, "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = runCommand(t, "similar", "break the ice", "--config", config, "--log-level", "error", "--target", "ja")
	assert.ErrorIs(t, err, im.ErrInvalidConfiguration)

	_, err = runCommand(t, "similar", "--config", config)
	assert.Error(t, err)
}

func TestStatsCommandRequiresDatabase(t *testing.T) {
	dir := writeTestInputs(t)

	_, err := runCommand(t, "stats", "--config", filepath.Join(dir, "idiom-matcher.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no results database")
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Language", "Score"}, [][]string{{"fr", "0.9000"}, {"fi"}},
		[]columnAlignment{alignLeft, alignRight})

	assert.Contains(t, out, "Language")
	assert.NotContains(t, out, "LANGUAGE", "headers keep their case")
	assert.Contains(t, out, "0.9000")
	assert.Equal(t, 6, strings.Count(out, "\n")+1, "top border, header, separator, two rows, bottom border")

	assert.Empty(t, renderTable(nil, nil, nil))
}
