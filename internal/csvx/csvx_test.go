package csvx

import (
	"os"
	"path/filepath"
	"testing"
)

// ----------------------------------------------------------------------------
// DecodeBytes Tests
// ----------------------------------------------------------------------------

func TestDecodeBytes(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		wantEnc  string
		wantText string
		wantOK   bool
	}{
		{
			name:     "plain ascii",
			raw:      []byte("a,b\n1,2\n"),
			wantEnc:  "utf-8",
			wantText: "a,b\n1,2\n",
			wantOK:   true,
		},
		{
			name:     "valid utf-8 multibyte",
			raw:      []byte("café,b\n"),
			wantEnc:  "utf-8",
			wantText: "café,b\n",
			wantOK:   true,
		},
		{
			name:     "utf-8 with BOM",
			raw:      append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b\n")...),
			wantEnc:  "utf-8-sig",
			wantText: "a,b\n",
			wantOK:   true,
		},
		{
			name: "windows-1252 smart quotes",
			// 0x93/0x94 are curly quotes in cp1252, invalid as utf-8
			raw:      []byte{0x93, 'h', 'i', 0x94},
			wantEnc:  "windows-1252",
			wantText: "“hi”",
			wantOK:   true,
		},
		{
			name: "latin-1 fallback for undefined cp1252 byte",
			// 0x81 is undefined in cp1252 but maps to U+0081 in latin-1
			raw:     []byte{'a', 0x81, 'b'},
			wantEnc: "latin-1",
			wantOK:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, enc, ok := DecodeBytes(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("DecodeBytes() ok = %v, want %v", ok, tt.wantOK)
			}
			if enc != tt.wantEnc {
				t.Errorf("DecodeBytes() encoding = %q, want %q", enc, tt.wantEnc)
			}
			if tt.wantText != "" && text != tt.wantText {
				t.Errorf("DecodeBytes() text = %q, want %q", text, tt.wantText)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// CleanHeader Tests
// ----------------------------------------------------------------------------

func TestCleanHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "SKU", want: "SKU"},
		{name: "surrounding whitespace", input: "  Parent SKU ", want: "Parent SKU"},
		{name: "bom remnant", input: "\uFEFFCustomer", want: "Customer"},
		{name: "excel formula wrapper", input: `="Quantity"`, want: "Quantity"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanHeader(tt.input); got != tt.want {
				t.Errorf("CleanHeader(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Table Tests
// ----------------------------------------------------------------------------

func TestParseTable(t *testing.T) {
	raw := []byte("Customer, SKU ,Qty\nAcme Co,ABC123, 3 \n,DEF456,")
	tbl, err := Parse(raw, "test.csv")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := tbl.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	if got := tbl.Headers[1]; got != "SKU" {
		t.Errorf("header not cleaned: %q", got)
	}
	if got := tbl.Cell(0, "sku"); got != "ABC123" {
		t.Errorf("case-insensitive lookup: Cell(0, sku) = %q", got)
	}
	if got := tbl.Cell(0, "Qty"); got != "3" {
		t.Errorf("Cell(0, Qty) = %q, want trimmed \"3\"", got)
	}
	if got := tbl.Cell(1, "Customer"); got != "" {
		t.Errorf("Cell(1, Customer) = %q, want empty", got)
	}
	if got := tbl.Cell(0, "Missing"); got != "" {
		t.Errorf("missing column should yield empty, got %q", got)
	}
}

func TestReadFileEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(path); err == nil {
		t.Fatal("ReadFile() expected error for empty csv")
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("ReadFile() expected error for missing file")
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "result.csv")

	records := [][]string{
		{"Salesperson", "SKU", "Quantity"},
		{"Jada Claiborne", "ABC123-SM", "3"},
	}
	if err := Write(path, records); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	tbl, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() after Write error = %v", err)
	}
	if tbl.Len() != 1 || tbl.Cell(0, "SKU") != "ABC123-SM" {
		t.Errorf("round trip mismatch: %+v", tbl.Rows)
	}

	// No stray temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the output file, found %d entries", len(entries))
	}
}
