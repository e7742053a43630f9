package knowledge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/fatty/pkg/logger"
)

// DefaultChunkSize is the maximum size, in characters, of a loaded document.
const DefaultChunkSize = 1500

// Document types stored in Metadata["type"].
const (
	TypeFile  = "file"
	TypePrice = "price"
)

// Document is a piece of text the assistant can ground answers on.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

var supportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// LoadDirectory reads every supported text file under dir, recursively.
// Files longer than DefaultChunkSize are split at sentence boundaries into
// documents with IDs "<path>#1", "<path>#2"... A missing directory yields no documents.
func LoadDirectory(dir string) ([]Document, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("docs directory not found, continuing without local documents",
			zap.String("dir", dir),
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var docs []Document
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = name
		}
		chunks := Chunk(text, DefaultChunkSize)
		for i, chunk := range chunks {
			id := filepath.ToSlash(rel)
			if len(chunks) > 1 {
				id = fmt.Sprintf("%s#%d", id, i+1)
			}
			docs = append(docs, Document{
				ID:   id,
				Text: chunk,
				Metadata: map[string]string{
					"type":      TypeFile,
					"file_path": path,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("local documents loaded",
		zap.String("dir", dir),
		zap.Int("count", len(docs)),
	)

	return docs, nil
}

// PriceDocument renders the real-time price block
func PriceDocument(lines []string, refresh time.Duration) Document {
	var b strings.Builder
	b.WriteString("\n📈 Real-time Token Prices:\n\n")
	for _, line := range lines {
		b.WriteString("• ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\nPrices auto-refresh every ")
	b.WriteString(humanizeInterval(refresh))
	b.WriteString(".")

	return Document{
		ID:       "token-prices",
		Text:     b.String(),
		Metadata: map[string]string{"type": TypePrice},
	}
}

func humanizeInterval(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d.Round(time.Second)/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
