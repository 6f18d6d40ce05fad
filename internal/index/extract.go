package index

import (
	"fmt"
	"os"

	"github.com/SPTS7/CodeGrapher/internal/pyast"
)

// Extractor slices exact definition source out of project files. Files
// are re-read at extraction time, not during indexing, so the bytes
// reflect the file as it is when the graph is assembled. Content is
// cached per file for the lifetime of the Extractor, which is one run.
type Extractor struct {
	files map[string][]byte
}

// NewExtractor creates an Extractor with an empty file cache.
func NewExtractor() *Extractor {
	return &Extractor{files: make(map[string][]byte)}
}

// Source returns the exact [StartByte,EndByte) span of the definition,
// decorators included. The error is per-node: callers record it on the
// node and keep going.
func (e *Extractor) Source(def *pyast.Definition) (string, error) {
	content, ok := e.files[def.Module.AbsPath]
	if !ok {
		read, err := os.ReadFile(def.Module.AbsPath)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", def.Module.RelPath, err)
		}
		e.files[def.Module.AbsPath] = read
		content = read
	}

	start, end := int(def.StartByte), int(def.EndByte)
	if start < 0 || end > len(content) || start >= end {
		return "", fmt.Errorf("span [%d,%d) out of range for %s (%d bytes); file changed since indexing?",
			start, end, def.Module.RelPath, len(content))
	}
	return string(content[start:end]), nil
}
