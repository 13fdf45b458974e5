package core

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestNewImportReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("user_email;user_name")...),
			expected: "user_email;user_name",
		},
		{
			name:     "file without BOM",
			input:    []byte("user_email;user_name"),
			expected: "user_email;user_name",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "cyrillic kept",
			input:    []byte("Иван;Петров"),
			expected: "Иван;Петров",
		},
		{
			name:     "invalid byte replaced",
			input:    []byte{'a', 'n', 0x80, 'n'},
			expected: "an�n",
		},
		{
			name:     "UTF-16LE with BOM",
			input:    []byte{0xFF, 0xFE, 'a', 0, ';', 0, 'b', 0},
			expected: "a;b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, _ := NewImportReader(bytes.NewReader(tt.input), int64(len(tt.input)))
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestCountingReader(t *testing.T) {
	data := strings.Repeat("x", 200)
	r := NewCountingReader(strings.NewReader(data), 400)

	buf := make([]byte, 100)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.BytesRead != 100 {
		t.Errorf("BytesRead = %d, want 100", r.BytesRead)
	}
	if got := r.Progress(); got != 25 {
		t.Errorf("Progress() = %d, want 25", got)
	}

	if _, err := io.ReadAll(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Progress(); got != 50 {
		t.Errorf("Progress() = %d, want 50", got)
	}
}

func TestCountingReader_Progress(t *testing.T) {
	tests := []struct {
		name  string
		read  int64
		total int64
		want  int
	}{
		{"unknown total", 50, 0, 0},
		{"half", 50, 100, 50},
		{"complete", 100, 100, 100},
		{"over total capped", 150, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &CountingReader{BytesRead: tt.read, Total: tt.total}
			if got := r.Progress(); got != tt.want {
				t.Errorf("Progress() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewImportReader_CountsRawBytes(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("abc")...)
	reader, counter := NewImportReader(bytes.NewReader(input), int64(len(input)))

	if _, err := io.ReadAll(reader); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter.BytesRead != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", counter.BytesRead, len(input))
	}
	if counter.Progress() != 100 {
		t.Errorf("Progress() = %d, want 100", counter.Progress())
	}
}
