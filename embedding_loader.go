package idiommatcher

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
)

// listSeparator joins multi-valued CSV cells such as contexts and translations
const listSeparator = " ||| "

// maxVectorLineBytes bounds one .vec line; 1024-dim vectors fit comfortably
const maxVectorLineBytes = 4 * 1024 * 1024

// collectionLoader implements the CollectionLoader interface
type collectionLoader struct {
	logger           Logger
	progressCallback ProgressCallback
}

// NewCollectionLoader creates a new CollectionLoader instance
func NewCollectionLoader(logger Logger) CollectionLoader {
	return &collectionLoader{logger: orDiscard(logger)}
}

// SetProgressCallback sets a callback for progress reporting during loading
func (cl *collectionLoader) SetProgressCallback(callback ProgressCallback) {
	cl.progressCallback = callback
}

// bundleFile is the on-disk layout of a language bundle
type bundleFile struct {
	Language string        `json:"language"`
	Name     string        `json:"name"`
	Idioms   []bundleIdiom `json:"idioms"`
}

// bundleIdiom is one idiom of a bundle. Embedding is the simple-mode vector and is
// used as the idiom vector when IdiomOnly is absent.
type bundleIdiom struct {
	Idiom        string      `json:"idiom"`
	Contexts     []string    `json:"contexts"`
	Translations []string    `json:"english_translations"`
	Examples     []exampleJS `json:"examples"`
	IdiomOnly    []float32   `json:"idiom_only"`
	IdiomContext []float32   `json:"idiom_context"`
	Embedding    []float32   `json:"embedding"`
}

// exampleJS is a MAGPIE-style usage example
type exampleJS struct {
	Sentence string `json:"sentence"`
}

// toIdiom converts the JSON record, using examples when contexts are absent
func (bi bundleIdiom) toIdiom() Idiom {
	contexts := bi.Contexts
	if len(contexts) == 0 {
		for _, ex := range bi.Examples {
			if ex.Sentence != "" {
				contexts = append(contexts, ex.Sentence)
			}
		}
	}

	return Idiom{
		SurfaceForm:  strings.TrimSpace(bi.Idiom),
		Contexts:     contexts,
		Translations: bi.Translations,
	}
}

// LoadBundle loads a language bundle from a JSON file
func (cl *collectionLoader) LoadBundle(path string) (*Collection, error) {
	cl.logger.Infof("Loading idiom bundle, path: %s", path)

	file, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return cl.LoadBundleFromReader(file)
}

// LoadBundleFromReader loads a language bundle from any io.Reader
func (cl *collectionLoader) LoadBundleFromReader(reader io.Reader) (*Collection, error) {
	var bundle bundleFile
	if err := json.NewDecoder(reader).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("%w: decode bundle: %v", ErrInvalidVectorFormat, err)
	}

	collection := &Collection{
		Language: bundle.Language,
		Name:     bundle.Name,
		Entries:  make([]Entry, 0, len(bundle.Idioms)),
	}
	for _, bi := range bundle.Idioms {
		vector := bi.IdiomOnly
		if len(vector) == 0 {
			vector = bi.Embedding
		}
		collection.Entries = append(collection.Entries, Entry{
			Idiom:         bi.toIdiom(),
			IdiomVector:   vector,
			ContextVector: bi.IdiomContext,
		})
	}

	if err := collection.Validate(); err != nil {
		return nil, err
	}

	cl.logger.Infof("Idiom bundle loaded, language: %s, idioms: %d, dimension: %d, context_vectors: %v",
		collection.Language, collection.Len(), collection.Dimension(), collection.HasContextVectors())

	return collection, nil
}

// WriteBundle writes collection in the bundle layout read by LoadBundle
func WriteBundle(w io.Writer, collection *Collection) error {
	if collection == nil {
		return ErrEmptyCollection
	}

	bundle := bundleFile{
		Language: collection.Language,
		Name:     collection.Name,
		Idioms:   make([]bundleIdiom, 0, collection.Len()),
	}
	for _, e := range collection.Entries {
		bundle.Idioms = append(bundle.Idioms, bundleIdiom{
			Idiom:        e.Idiom.SurfaceForm,
			Contexts:     e.Idiom.Contexts,
			Translations: e.Idiom.Translations,
			IdiomOnly:    e.IdiomVector,
			IdiomContext: e.ContextVector,
		})
	}

	data, err := marshalNoEscape(bundle)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// LoadIdioms loads idioms without vectors from a .json or .csv file
func (cl *collectionLoader) LoadIdioms(path string) ([]Idiom, error) {
	cl.logger.Infof("Loading idioms, path: %s", path)

	file, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var idioms []Idiom
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		idioms, err = cl.readIdiomsJSON(file)
	case ".csv":
		idioms, err = cl.readIdiomsCSV(file)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("load idioms from %s: %w", path, err)
	}

	cl.logger.Infof("Idioms loaded, path: %s, count: %d", path, len(idioms))

	return idioms, nil
}

// readIdiomsJSON reads a list of idiom objects
func (*collectionLoader) readIdiomsJSON(reader io.Reader) ([]Idiom, error) {
	var records []bundleIdiom
	if err := json.NewDecoder(reader).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	idioms := make([]Idiom, 0, len(records))
	for _, r := range records {
		idioms = append(idioms, r.toIdiom())
	}
	return idioms, nil
}

// readIdiomsCSV reads idioms from a CSV file with an idiom column and " ||| "-joined
// context and translation columns. When no "contexts" column exists, the first column
// whose name contains "context" is used.
func (cl *collectionLoader) readIdiomsCSV(reader io.Reader) ([]Idiom, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	contextCol := -1
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		columns[name] = i
		if contextCol == -1 && strings.Contains(name, "context") && name != "num_contexts" {
			contextCol = i
		}
	}
	if i, ok := columns["contexts"]; ok {
		contextCol = i
	}

	idiomCol, ok := columns["idiom"]
	if !ok {
		return nil, fmt.Errorf("%w: csv has no idiom column", ErrUnsupportedFormat)
	}
	translationCol, hasTranslations := columns["english_translations"]
	countCol, hasCount := columns["num_contexts"]

	cell := func(row []string, i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var idioms []Idiom
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		idiom := Idiom{
			SurfaceForm: strings.TrimSpace(cell(row, idiomCol)),
			Contexts:    splitList(cell(row, contextCol)),
		}
		if hasTranslations {
			idiom.Translations = splitList(cell(row, translationCol))
		}

		if hasCount {
			declared, err := cast.ToIntE(strings.TrimSpace(cell(row, countCol)))
			if err != nil {
				cl.logger.Warnf("Invalid num_contexts, line_number: %d, value: %s", line, cell(row, countCol))
			} else if declared != len(idiom.Contexts) {
				cl.logger.Warnf("num_contexts differs from contexts found, line_number: %d, declared: %d, actual: %d",
					line, declared, len(idiom.Contexts))
			}
		}

		idioms = append(idioms, idiom)
	}

	return idioms, nil
}

// splitList splits a " ||| "-joined cell, dropping empty items
func splitList(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return []string{}
	}

	parts := strings.Split(cell, listSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadVectors loads labelled vectors from a .vec text file
func (cl *collectionLoader) LoadVectors(path string) ([]LabeledVector, error) {
	cl.logger.Infof("Loading vector file, path: %s", path)

	file, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return cl.LoadVectorsFromReader(file)
}

// LoadVectorsFromReader loads labelled vectors from any io.Reader.
//
// The first line is "count dimension". Every following line is a label followed by
// dimension numbers; the label is everything before the last dimension fields, so
// multi-word idioms need no quoting. Malformed lines are skipped with a warning and
// surface later as a count mismatch in Assemble.
//
//nolint:cyclop
func (cl *collectionLoader) LoadVectorsFromReader(reader io.Reader) ([]LabeledVector, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxVectorLineBytes)

	if !scanner.Scan() {
		return nil, ErrInvalidVectorFormat
	}

	firstLine := strings.TrimSpace(scanner.Text())
	if firstLine == "" {
		return nil, ErrInvalidVectorFormat
	}

	// Parse first line: "count dimension"
	parts := strings.Fields(firstLine)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: first line must contain vector count and dimension", ErrInvalidVectorFormat)
	}

	count, err := cast.ToIntE(parts[0])
	if err != nil || count < 0 {
		return nil, fmt.Errorf("%w: invalid vector count in first line", ErrInvalidVectorFormat)
	}

	dimension, err := cast.ToIntE(parts[1])
	if err != nil || dimension <= 0 {
		return nil, fmt.Errorf("%w: invalid dimension in first line", ErrInvalidVectorFormat)
	}

	cl.logger.Debugf("Vector file header parsed, count: %d, dimension: %d", count, dimension)

	vectors := make([]LabeledVector, 0, count)
	progressInterval := max(count/10, 100)

	for lineNumber := 2; scanner.Scan(); lineNumber++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < dimension+1 {
			cl.logger.Warnf("Skipping invalid line, line_number: %d, expected_parts: >=%d, actual_parts: %d",
				lineNumber, dimension+1, len(fields))
			continue
		}

		split := len(fields) - dimension
		label := strings.Join(fields[:split], " ")
		vector := make([]float32, dimension)

		parseError := false
		for i, raw := range fields[split:] {
			val, err := cast.ToFloat64E(raw)
			if err != nil {
				cl.logger.Warnf("Skipping line with invalid float value, line_number: %d, label: %s, value: %s",
					lineNumber, label, raw)
				parseError = true
				break
			}
			vector[i] = float32(val)
		}
		if parseError {
			continue
		}

		vectors = append(vectors, LabeledVector{Label: label, Vector: vector})

		if cl.progressCallback != nil && len(vectors)%progressInterval == 0 {
			cl.progressCallback(len(vectors), count)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading vector file: %w", err)
	}

	if cl.progressCallback != nil {
		cl.progressCallback(len(vectors), count)
	}

	if len(vectors) != count {
		cl.logger.Warnf("Loaded vector count differs from header, expected: %d, actual: %d",
			count, len(vectors))
	}

	return vectors, nil
}

// LoadCollection loads the inputs named by spec and assembles a validated Collection
func (cl *collectionLoader) LoadCollection(spec CollectionSpec) (*Collection, error) {
	if spec.Bundle != "" {
		collection, err := cl.LoadBundle(spec.Bundle)
		if err != nil {
			return nil, err
		}
		if spec.Language != "" {
			collection.Language = spec.Language
		}
		if spec.Name != "" {
			collection.Name = spec.Name
		}
		return collection, nil
	}

	if spec.Idioms == "" || spec.IdiomVectors == "" {
		return nil, fmt.Errorf("%w: %s needs a bundle, or idioms and idiom_vectors",
			ErrInvalidConfiguration, spec.Language)
	}

	idioms, err := cl.LoadIdioms(spec.Idioms)
	if err != nil {
		return nil, err
	}
	idiomVectors, err := cl.LoadVectors(spec.IdiomVectors)
	if err != nil {
		return nil, err
	}

	var contextVectors []LabeledVector
	if spec.ContextVectors != "" {
		if contextVectors, err = cl.LoadVectors(spec.ContextVectors); err != nil {
			return nil, err
		}
	}

	return Assemble(spec.Language, spec.DisplayName(), idioms, idiomVectors, contextVectors)
}

// Assemble bundles idioms with their vectors by position. Vector labels must match
// the idiom surface forms (whitespace-insensitive) and the counts must agree, so a
// shuffled or truncated vector file is rejected with ErrInputShape instead of silently
// pairing idioms with the wrong vectors. contextVectors may be nil.
func Assemble(language, name string, idioms []Idiom, idiomVectors, contextVectors []LabeledVector) (*Collection, error) {
	if len(idioms) != len(idiomVectors) {
		return nil, fmt.Errorf("%w: %s has %d idioms but %d idiom vectors",
			ErrInputShape, language, len(idioms), len(idiomVectors))
	}
	if contextVectors != nil && len(idioms) != len(contextVectors) {
		return nil, fmt.Errorf("%w: %s has %d idioms but %d context vectors",
			ErrInputShape, language, len(idioms), len(contextVectors))
	}

	collection := &Collection{
		Language: language,
		Name:     name,
		Entries:  make([]Entry, len(idioms)),
	}
	for i, idiom := range idioms {
		if !sameLabel(idiomVectors[i].Label, idiom.SurfaceForm) {
			return nil, fmt.Errorf("%w: %s idiom %d is %q but idiom vector is labelled %q",
				ErrInputShape, language, i, idiom.SurfaceForm, idiomVectors[i].Label)
		}
		entry := Entry{Idiom: idiom, IdiomVector: idiomVectors[i].Vector}

		if contextVectors != nil {
			if !sameLabel(contextVectors[i].Label, idiom.SurfaceForm) {
				return nil, fmt.Errorf("%w: %s idiom %d is %q but context vector is labelled %q",
					ErrInputShape, language, i, idiom.SurfaceForm, contextVectors[i].Label)
			}
			entry.ContextVector = contextVectors[i].Vector
		}

		collection.Entries[i] = entry
	}

	if err := collection.Validate(); err != nil {
		return nil, err
	}

	return collection, nil
}

// sameLabel compares two labels ignoring runs of whitespace
func sameLabel(a, b string) bool {
	return strings.Join(strings.Fields(a), " ") == strings.Join(strings.Fields(b), " ")
}

// openInput opens path, mapping a missing file to ErrVectorFileNotFound
func openInput(path string) (*os.File, error) {
	file, err := os.Open(path) //nolint:gosec
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrVectorFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return file, nil
}
