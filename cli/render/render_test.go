package render

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{"json lowercase", "json", FormatJSON, false},
		{"json uppercase", "JSON", FormatJSON, false},
		{"table", "table", FormatTable, false},
		{"yaml", "yaml", FormatYAML, false},
		{"empty", "", "", false},
		{"invalid", "xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormat_InvalidErrorMessage(t *testing.T) {
	_, err := ParseFormat("csv")
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
	if !strings.Contains(err.Error(), "json, table, or yaml") {
		t.Errorf("error message should mention valid formats, got: %v", err)
	}
}

func TestNew_DefaultsToJSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	if got := New("", &buf).Format(); got != FormatJSON {
		t.Errorf("Format() = %v, want %v", got, FormatJSON)
	}
	if got := New(FormatYAML, &buf).Format(); got != FormatYAML {
		t.Errorf("Format() = %v, want %v", got, FormatYAML)
	}
}

func TestRenderer_JSONAndYAML(t *testing.T) {
	data := map[string]string{"scheme": "fountain_coded"}
	tests := []struct {
		format Format
		want   string
	}{
		{FormatJSON, `"scheme": "fountain_coded"`},
		{FormatYAML, "scheme: fountain_coded"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := New(tt.format, &buf).Render(data); err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want substring %q", buf.String(), tt.want)
			}
		})
	}
}

func TestRenderer_Table_Struct(t *testing.T) {
	type view struct {
		Name   string `json:"name"`
		Parts  int    `json:"parts"`
		Hidden string `json:"-"`
		Bytes  []byte `json:"bytes"`
	}

	var buf bytes.Buffer
	if err := New(FormatTable, &buf).Render(view{Name: "psbt", Parts: 3, Hidden: "secret", Bytes: []byte{1, 2}}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"name:", "psbt", "parts:", "3", "2 bytes"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output missing %q: %s", want, got)
		}
	}
	if strings.Contains(got, "secret") {
		t.Errorf("table output should skip json:\"-\" fields: %s", got)
	}
}

func TestRenderer_Table_Slice(t *testing.T) {
	type item struct {
		ID      string `json:"id"`
		Outcome string `json:"outcome"`
	}

	var buf bytes.Buffer
	data := []item{{ID: "1", Outcome: "complete"}, {ID: "2", Outcome: "failed"}}
	if err := New(FormatTable, &buf).Render(data); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "OUTCOME") {
		t.Errorf("header = %q, want ID and OUTCOME", lines[0])
	}
	if !strings.Contains(lines[2], "failed") {
		t.Errorf("row 2 = %q, want failed", lines[2])
	}
}

func TestRenderer_Table_EmptySlice(t *testing.T) {
	var buf bytes.Buffer
	if err := New(FormatTable, &buf).Render([]string{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "(no results)") {
		t.Errorf("empty slice should show '(no results)', got: %s", buf.String())
	}
}

func TestRenderer_Table_MapSorted(t *testing.T) {
	var buf bytes.Buffer
	if err := New(FormatTable, &buf).Render(map[string]int{"b": 2, "a": 1}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	got := buf.String()
	if strings.Index(got, "a:") > strings.Index(got, "b:") {
		t.Errorf("map keys should be sorted: %s", got)
	}
}

type fakeTable struct{}

func (fakeTable) Columns() []string { return []string{"part", "frame"} }
func (fakeTable) Rows() [][]string {
	return [][]string{{"1", strings.Repeat("x", MaxCellWidth+10)}}
}

func TestRenderer_Table_Tabular(t *testing.T) {
	var buf bytes.Buffer
	if err := New(FormatTable, &buf).Render(fakeTable{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "PART") || !strings.Contains(got, "FRAME") {
		t.Errorf("missing headers: %s", got)
	}
	if strings.Contains(got, strings.Repeat("x", MaxCellWidth+1)) {
		t.Errorf("long cell not truncated: %s", got)
	}
	if !strings.Contains(got, "...") {
		t.Errorf("truncated cell should end with ...: %s", got)
	}
}
