package idiommatcher

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// mockLogger is a simple logger for testing that captures messages
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (ml *mockLogger) add(msg string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.messages = append(ml.messages, msg)
}

func (ml *mockLogger) Debug(fields ...any) { ml.add("DEBUG: " + fmt.Sprint(fields...)) }

func (ml *mockLogger) Info(fields ...any) { ml.add("INFO: " + fmt.Sprint(fields...)) }

func (ml *mockLogger) Warn(fields ...any) { ml.add("WARN: " + fmt.Sprint(fields...)) }

func (ml *mockLogger) Error(fields ...any) { ml.add("ERROR: " + fmt.Sprint(fields...)) }

func (ml *mockLogger) Debugf(template string, args ...any) {
	ml.add("DEBUG: " + fmt.Sprintf(template, args...))
}

func (ml *mockLogger) Infof(template string, args ...any) {
	ml.add("INFO: " + fmt.Sprintf(template, args...))
}

func (ml *mockLogger) Warnf(template string, args ...any) {
	ml.add("WARN: " + fmt.Sprintf(template, args...))
}

func (ml *mockLogger) Errorf(template string, args ...any) {
	ml.add("ERROR: " + fmt.Sprintf(template, args...))
}

// contains reports whether any captured message contains substr
func (ml *mockLogger) contains(substr string) bool {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	for _, msg := range ml.messages {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// testEntry is a compact description of one collection entry
type testEntry struct {
	idiom   string
	context string
	idiomV  []float32
	ctxV    []float32
}

// newTestCollection builds a collection; entries without ctxV have no context vector
func newTestCollection(language string, entries ...testEntry) *Collection {
	c := &Collection{Language: language, Name: strings.ToUpper(language), Entries: []Entry{}}
	for _, e := range entries {
		idiom := Idiom{SurfaceForm: e.idiom}
		if e.context != "" {
			idiom.Contexts = []string{e.context}
			idiom.Translations = []string{"translation of " + e.idiom}
		}
		c.Entries = append(c.Entries, Entry{Idiom: idiom, IdiomVector: e.idiomV, ContextVector: e.ctxV})
	}
	return c
}

// englishFrench returns a small dual-mode source and target pair
func englishFrench() (*Collection, *Collection) {
	source := newTestCollection("en",
		testEntry{"kick the bucket", "he kicked the bucket", []float32{1, 0, 0}, []float32{1, 0.1, 0}},
		testEntry{"break the ice", "she broke the ice", []float32{0, 1, 0}, []float32{0, 1, 0.1}},
		testEntry{"piece of cake", "it was a piece of cake", []float32{0, 0, 1}, []float32{0.1, 0, 1}},
	)
	target := newTestCollection("fr",
		testEntry{"casser sa pipe", "il a cassé sa pipe", []float32{0.9, 0.1, 0}, []float32{1, 0.2, 0}},
		testEntry{"briser la glace", "elle a brisé la glace", []float32{0.1, 0.9, 0}, []float32{0, 1, 0.2}},
		testEntry{"c'est du gâteau", "c'était du gâteau", []float32{0, 0.2, 0.8}, []float32{0.1, 0.1, 1}},
		testEntry{"poser un lapin", "il m'a posé un lapin", []float32{0.3, 0.3, 0.3}, []float32{0.3, 0.3, 0.3}},
	)
	return source, target
}

// writeBundle writes collection as a bundle JSON file into dir
func writeBundle(t *testing.T, dir string, c *Collection) string {
	t.Helper()

	var buf bytes.Buffer
	if err := WriteBundle(&buf, c); err != nil {
		t.Fatalf("write bundle: %v", err)
	}
	data := buf.Bytes()

	path := filepath.Join(dir, c.Language+"_bundle.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write bundle: %v", err)
	}
	return path
}
