// Package csvx provides CSV reading and writing for files exported from
// spreadsheets and legacy systems with unreliable text encodings.
//
// Reads attempt a fixed ladder of encodings (UTF-8, UTF-8 with BOM,
// Windows-1252, Latin-1) and fail only when every candidate fails.
// All cell and header access is column-name addressed via Table.
package csvx

import (
	"bytes"
	stdcsv "encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// utf8BOM is the byte-order mark some spreadsheet exports prepend.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// EncodingCandidates lists the encodings tried, in order, when reading.
var EncodingCandidates = []string{"utf-8", "utf-8-sig", "windows-1252", "latin-1"}

// DecodeError is returned when a file cannot be decoded with any
// candidate encoding.
type DecodeError struct {
	Path string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode %s with tried encodings %s",
		e.Path, strings.Join(EncodingCandidates, ", "))
}

// decode attempts to decode raw bytes using the named encoding.
// Returns false when the bytes are not valid in that encoding.
func decode(raw []byte, encoding string) (string, bool) {
	switch encoding {
	case "utf-8":
		if bytes.HasPrefix(raw, utf8BOM) {
			return "", false // let utf-8-sig claim it
		}
		if !utf8.Valid(raw) {
			return "", false
		}
		return string(raw), true

	case "utf-8-sig":
		if !bytes.HasPrefix(raw, utf8BOM) {
			return "", false
		}
		stripped := raw[len(utf8BOM):]
		if !utf8.Valid(stripped) {
			return "", false
		}
		return string(stripped), true

	case "windows-1252":
		// cp1252 leaves a handful of code points undefined; a byte in
		// that range means the file is not really cp1252.
		for _, b := range raw {
			switch b {
			case 0x81, 0x8D, 0x8F, 0x90, 0x9D:
				return "", false
			}
		}
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return "", false
		}
		return string(out), true

	case "latin-1":
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return "", false
		}
		return string(out), true
	}
	return "", false
}

// DecodeBytes decodes raw file contents trying each candidate encoding
// in order. Returns the decoded text and the encoding that succeeded.
func DecodeBytes(raw []byte) (string, string, bool) {
	for _, enc := range EncodingCandidates {
		if text, ok := decode(raw, enc); ok {
			return text, enc, true
		}
	}
	return "", "", false
}

// ReadFile reads a CSV file, trying multiple encodings until one succeeds.
// Rows may have ragged lengths; short rows are padded to the header width
// by Table accessors.
func ReadFile(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(raw, path)
}

// Parse builds a Table from raw CSV bytes. The path is used only for
// error messages.
func Parse(raw []byte, path string) (*Table, error) {
	text, _, ok := DecodeBytes(raw)
	if !ok {
		return nil, &DecodeError{Path: path}
	}

	r := stdcsv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv %s is empty", path)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = CleanHeader(h)
	}

	t := &Table{
		Headers: headers,
		Rows:    records[1:],
		index:   make(map[string]int, len(headers)),
	}
	for i, h := range headers {
		if _, exists := t.index[strings.ToLower(h)]; !exists {
			t.index[strings.ToLower(h)] = i
		}
	}
	return t, nil
}

// Write writes records to path atomically: the file appears fully
// written or not at all.
func Write(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".csvx-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := stdcsv.NewWriter(tmp)
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing csv: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// CleanHeader normalizes a header cell: strips BOM remnants, Excel
// formula wrappers (="..."), and surrounding whitespace.
func CleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF")
	h = strings.TrimSpace(h)
	if strings.HasPrefix(h, `="`) && strings.HasSuffix(h, `"`) {
		h = h[2 : len(h)-1]
	}
	return strings.TrimSpace(h)
}

// CleanCell trims whitespace from a data cell.
func CleanCell(c string) string {
	return strings.TrimSpace(c)
}
