package catalog

import (
	"bytes"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

//go:embed data/cantons.csv
var embedded embed.FS

const defaultSource = "data/cantons.csv"

// Format identifies a catalog encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatHCL Format = "hcl"
)

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".hcl":
		return FormatHCL, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

// columnAliases maps accepted header names to canonical columns. The
// spreadsheet the canton data came from used canton/type/hint.
var columnAliases = map[string]string{
	"item":       "item",
	"canton":     "item",
	"difficulty": "difficulty",
	"category":   "category",
	"type":       "category",
	"text":       "text",
	"hint":       "text",
	"hint text":  "text",
}

var requiredColumns = []string{"item", "difficulty", "category", "text"}

// Load reads a catalog from r. source names the input in errors.
func Load(r io.Reader, format Format, source string) (*Catalog, error) {
	var (
		entries []Entry
		err     error
	)
	switch format {
	case FormatCSV:
		entries, err = readCSV(r)
	case FormatHCL:
		entries, err = readHCL(r, source)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, withSource(err, source)
	}

	c, err := New(entries)
	if err != nil {
		return nil, withSource(err, source)
	}
	return c, nil
}

// LoadFile reads a catalog from path, choosing the format by extension.
func LoadFile(path string) (*Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, &DataError{Source: path, Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataError{Source: path, Err: err}
	}
	defer f.Close()
	return Load(f, format, path)
}

// Default returns the embedded canton catalog.
func Default() (*Catalog, error) {
	raw, err := embedded.ReadFile(defaultSource)
	if err != nil {
		return nil, &DataError{Source: defaultSource, Err: err}
	}
	return Load(bytes.NewReader(raw), FormatCSV, defaultSource)
}

func withSource(err error, source string) error {
	var de *DataError
	if errors.As(err, &de) {
		if de.Source == "" {
			de.Source = source
		}
		return de
	}
	return &DataError{Source: source, Err: err}
}

func readCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, err
	}

	cols := make(map[string]int)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if canon, ok := columnAliases[name]; ok {
			if _, dup := cols[canon]; !dup {
				cols[canon] = i
			}
		}
	}
	for _, col := range requiredColumns {
		if _, ok := cols[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	var entries []Entry
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &DataError{Row: row, Err: err}
		}
		if blank(rec) {
			continue
		}

		field := func(col string) string {
			if i := cols[col]; i < len(rec) {
				return rec[i]
			}
			return ""
		}

		diff, err := strconv.Atoi(strings.TrimSpace(field("difficulty")))
		if err != nil {
			return nil, &DataError{Row: row, Err: fmt.Errorf("%w: %q", ErrBadDifficulty, field("difficulty"))}
		}
		entries = append(entries, Entry{
			Item:       field("item"),
			Difficulty: diff,
			Category:   field("category"),
			Text:       field("text"),
		})
	}
	return entries, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

type hclCatalog struct {
	Items []hclItem `hcl:"item,block"`
}

type hclItem struct {
	Name  string    `hcl:"name,label"`
	Hints []hclHint `hcl:"hint,block"`
}

type hclHint struct {
	Difficulty int    `hcl:"difficulty"`
	Category   string `hcl:"category"`
	Text       string `hcl:"text"`
}

func readHCL(r io.Reader, source string) ([]Entry, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = "catalog.hcl"
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, source)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}

	var doc hclCatalog
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	var entries []Entry
	for _, item := range doc.Items {
		for _, h := range item.Hints {
			entries = append(entries, Entry{
				Item:       item.Name,
				Difficulty: h.Difficulty,
				Category:   h.Category,
				Text:       h.Text,
			})
		}
	}
	return entries, nil
}

// Loader memoizes a catalog behind an explicit loaded guard. Get loads once;
// Reload replaces the cached catalog only when the new load succeeds.
type Loader struct {
	path string

	mu     sync.Mutex
	cached *Catalog
}

// NewLoader returns a loader for path. An empty path selects the embedded
// default catalog.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Get returns the cached catalog, loading it on first use.
func (l *Loader) Get() (*Catalog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil {
		return l.cached, nil
	}
	c, err := l.load()
	if err != nil {
		return nil, err
	}
	l.cached = c
	return c, nil
}

// Reload rereads the source. On failure the previously cached catalog stays
// in place and the error is returned.
func (l *Loader) Reload() (*Catalog, error) {
	c, err := l.load()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cached = c
	l.mu.Unlock()
	return c, nil
}

func (l *Loader) load() (*Catalog, error) {
	if l.path == "" {
		return Default()
	}
	return LoadFile(l.path)
}
