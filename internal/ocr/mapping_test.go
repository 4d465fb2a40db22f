package ocr

import (
	"errors"
	"testing"
)

func referenceMapping() Mapping {
	return Mapping{
		SuccessField:  "status",
		SuccessValue:  "success",
		ContentFields: []string{"markdown_content", "content"},
		PathFields:    []string{"merged_markdown"},
		URLFields:     []string{"dl_url", "download_url"},
	}
}

func TestInterpretSuccess(t *testing.T) {
	t.Parallel()
	m := referenceMapping()

	out := m.Interpret([]byte(`{"status":"success","content":"hello","dl_url":"http://x/y"}`))
	if out.Kind != KindCompleted {
		t.Fatalf("Kind = %v, want KindCompleted", out.Kind)
	}
	if out.Text != "hello" {
		t.Errorf("Text = %q, want %q", out.Text, "hello")
	}
	if out.ResultURL != "http://x/y" {
		t.Errorf("ResultURL = %q, want %q", out.ResultURL, "http://x/y")
	}
}

func TestInterpretContentFieldPriority(t *testing.T) {
	t.Parallel()
	m := referenceMapping()

	// markdown_content comes first in the candidate list and must win.
	out := m.Interpret([]byte(`{"status":"success","markdown_content":"primary","content":"secondary"}`))
	if out.Text != "primary" {
		t.Errorf("Text = %q, want %q", out.Text, "primary")
	}
}

func TestInterpretPathField(t *testing.T) {
	t.Parallel()
	m := referenceMapping()
	m.readFile = func(path string) ([]byte, error) {
		if path != "/static/result.md" {
			t.Errorf("readFile path = %q, want /static/result.md", path)
		}
		return []byte("from file"), nil
	}

	out := m.Interpret([]byte(`{"status":"success","merged_markdown":"/static/result.md"}`))
	if out.Kind != KindCompleted {
		t.Fatalf("Kind = %v, want KindCompleted", out.Kind)
	}
	if out.Text != "from file" {
		t.Errorf("Text = %q, want %q", out.Text, "from file")
	}
}

func TestInterpretPathFieldReadFailure(t *testing.T) {
	t.Parallel()
	m := referenceMapping()
	m.readFile = func(string) ([]byte, error) {
		return nil, errors.New("no such file")
	}

	// A completion signal with an unreadable result file still completes,
	// just with empty text.
	out := m.Interpret([]byte(`{"status":"success","merged_markdown":"/static/missing.md"}`))
	if out.Kind != KindCompleted {
		t.Fatalf("Kind = %v, want KindCompleted", out.Kind)
	}
	if out.Text != "" {
		t.Errorf("Text = %q, want empty", out.Text)
	}
}

func TestInterpretStillProcessing(t *testing.T) {
	t.Parallel()
	m := referenceMapping()

	for _, body := range []string{
		`{"status":"processing"}`,
		`{"message":"accepted"}`,
	} {
		out := m.Interpret([]byte(body))
		if out.Kind != KindStillProcessing {
			t.Errorf("Interpret(%s).Kind = %v, want KindStillProcessing", body, out.Kind)
		}
	}
}

func TestInterpretParseFailure(t *testing.T) {
	t.Parallel()
	m := referenceMapping()

	out := m.Interpret([]byte(`<html>not json</html>`))
	if out.Kind != KindParseFailed {
		t.Fatalf("Kind = %v, want KindParseFailed", out.Kind)
	}
	if out.Body == "" {
		t.Error("Body should carry the raw response for logging")
	}
}

func TestInterpretBooleanSuccess(t *testing.T) {
	t.Parallel()
	// Second deployment variant: {"completed": true} with different field names.
	m := Mapping{
		SuccessField:  "completed",
		SuccessValue:  "true",
		ContentFields: []string{"content"},
		URLFields:     []string{"download_url"},
	}

	out := m.Interpret([]byte(`{"completed":true,"content":"ok","download_url":"http://d/l"}`))
	if out.Kind != KindCompleted {
		t.Fatalf("Kind = %v, want KindCompleted", out.Kind)
	}
	if out.Text != "ok" || out.ResultURL != "http://d/l" {
		t.Errorf("Text=%q ResultURL=%q, want ok and http://d/l", out.Text, out.ResultURL)
	}

	out = m.Interpret([]byte(`{"completed":false}`))
	if out.Kind != KindStillProcessing {
		t.Errorf("completed:false Kind = %v, want KindStillProcessing", out.Kind)
	}
}

func TestInterpretURLFieldFallback(t *testing.T) {
	t.Parallel()
	m := referenceMapping()

	out := m.Interpret([]byte(`{"status":"success","content":"x","download_url":"http://alt"}`))
	if out.ResultURL != "http://alt" {
		t.Errorf("ResultURL = %q, want %q", out.ResultURL, "http://alt")
	}
}
