package idiommatcher

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// field is one exported column: its name and how to read it from a Match
type field struct {
	name  string
	value func(Match) any
}

var (
	fSourceLanguage = field{"source_language", func(m Match) any { return m.SourceLanguage }}
	fSourceIdiom    = field{"source_idiom", func(m Match) any { return m.SourceIdiom }}
	fBestSource     = field{"best_source_match", func(m Match) any { return m.SourceIdiom }}
	fSourceContext  = field{"source_context", func(m Match) any { return m.SourceContext }}
	fTargetLanguage = field{"target_language", func(m Match) any { return m.TargetLanguage }}
	fTargetIdiom    = field{"target_idiom", func(m Match) any { return m.TargetIdiom }}
	fTargetContext  = field{"target_context", func(m Match) any { return m.TargetContext }}
	fTranslation    = field{"translation", func(m Match) any { return m.Translation }}
	fWeighted       = field{"weighted_similarity", func(m Match) any { return m.Score }}
	fIdiomOnly      = field{"idiom_only_similarity", func(m Match) any { return m.IdiomSimilarity }}
	fContext        = field{"context_similarity", func(m Match) any { return m.ContextSimilarity }}
	fOverlap        = field{"lexical_overlap", func(m Match) any { return m.LexicalOverlap }}
	fSimilarity     = field{"similarity", func(m Match) any { return m.Score }}
	fRank           = field{"rank", func(m Match) any { return m.Rank }}
)

// layoutFields is the fixed column order of each layout
var layoutFields = map[Layout][]field{
	LayoutDual: {
		fSourceLanguage, fSourceIdiom, fSourceContext,
		fTargetLanguage, fTargetIdiom, fTargetContext, fTranslation,
		fWeighted, fIdiomOnly, fContext, fOverlap,
	},
	LayoutDualBestPerTarget: {
		fTargetLanguage, fTargetIdiom, fTargetContext, fTranslation,
		fSourceLanguage, fBestSource, fSourceContext,
		fWeighted, fIdiomOnly, fContext, fOverlap,
	},
	LayoutBasic: {
		fSourceLanguage, fSourceIdiom, fSourceContext,
		fTargetLanguage, fTargetIdiom, fTargetContext, fTranslation,
		fSimilarity,
	},
	LayoutBasicBestPerTarget: {
		fTargetLanguage, fTargetIdiom, fTargetContext, fTranslation,
		fSourceLanguage, fBestSource, fSourceContext,
		fSimilarity,
	},
	LayoutTopK: {
		fSourceLanguage, fSourceIdiom, fSourceContext,
		fTargetLanguage, fTargetIdiom, fTargetContext, fTranslation,
		fSimilarity, fRank,
	},
}

// FieldNames returns the exported column names of layout in order
func FieldNames(layout Layout) []string {
	fields := layoutFields[layout]
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return names
}

// ExportResult describes the files written by one Export call
type ExportResult struct {
	JSONPath string
	CSVPath  string // empty when no CSV was written
	Records  int
}

// Exporter writes match sets as JSON and CSV into one directory
type Exporter struct {
	dir    string
	logger Logger
}

// NewExporter creates an Exporter writing into dir
func NewExporter(dir string, logger Logger) *Exporter {
	return &Exporter{dir: dir, logger: orDiscard(logger)}
}

// Dir returns the output directory
func (e *Exporter) Dir() string {
	return e.dir
}

// Export writes the first limit matches of set (all when limit <= 0) to
// <dir>/<name>.json and <dir>/<name>.csv, creating dir if needed.
// JSON keeps Unicode unescaped and keys in layout order. An empty set writes "[]"
// and no CSV file.
func (e *Exporter) Export(set MatchSet, name string, limit int) (ExportResult, error) {
	fields, ok := layoutFields[set.Layout]
	if !ok && set.Len() > 0 {
		return ExportResult{}, fmt.Errorf("%w: unknown layout %q", ErrInvalidConfiguration, set.Layout)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return ExportResult{}, fmt.Errorf("create output dir: %w", err)
	}

	set = set.Truncate(limit)
	result := ExportResult{
		JSONPath: filepath.Join(e.dir, name+".json"),
		Records:  set.Len(),
	}

	data, err := encodeJSON(set.Matches, fields)
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode %s: %w", name, err)
	}
	if err := writeFileAtomic(result.JSONPath, data); err != nil {
		return ExportResult{}, err
	}

	if set.Len() > 0 {
		result.CSVPath = filepath.Join(e.dir, name+".csv")
		data, err := encodeCSV(set.Matches, fields)
		if err != nil {
			return ExportResult{}, fmt.Errorf("encode %s: %w", name, err)
		}
		if err := writeFileAtomic(result.CSVPath, data); err != nil {
			return ExportResult{}, err
		}
	}

	e.logger.Infof("Export completed, name: %s, records: %d, json: %s, csv: %s",
		name, result.Records, result.JSONPath, result.CSVPath)

	return result, nil
}

// ExportValue writes any JSON-encodable value (e.g. a Report) to <dir>/<name>.json
func (e *Exporter) ExportValue(value any, name string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	raw, err := marshalNoEscape(value)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return "", fmt.Errorf("indent %s: %w", name, err)
	}
	out.WriteByte('\n')

	path := filepath.Join(e.dir, name+".json")
	return path, writeFileAtomic(path, out.Bytes())
}

// encodeJSON renders matches as an indented array of objects with keys in field order
func encodeJSON(matches []Match, fields []field) ([]byte, error) {
	var raw bytes.Buffer
	raw.WriteByte('[')
	for i, m := range matches {
		if i > 0 {
			raw.WriteByte(',')
		}
		raw.WriteByte('{')
		for k, f := range fields {
			if k > 0 {
				raw.WriteByte(',')
			}
			key, err := marshalNoEscape(f.name)
			if err != nil {
				return nil, err
			}
			value, err := marshalNoEscape(f.value(m))
			if err != nil {
				return nil, fmt.Errorf("record %d field %s: %w", i, f.name, err)
			}
			raw.Write(key)
			raw.WriteByte(':')
			raw.Write(value)
		}
		raw.WriteByte('}')
	}
	raw.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, raw.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')

	return out.Bytes(), nil
}

// marshalNoEscape is json.Marshal without HTML escaping
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// encodeCSV renders matches as CSV with a header row of field names
func encodeCSV(matches []Match, fields []field) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.name
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	row := make([]string, len(fields))
	for _, m := range matches {
		for i, f := range fields {
			row[i] = formatCell(f.value(m))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// formatCell formats one CSV value; floats use the shortest round-trip form
func formatCell(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprint(val)
	}
}

// writeFileAtomic writes data to a temp file next to path and renames it into place
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
