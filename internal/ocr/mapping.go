package ocr

import (
	"encoding/json"
	"os"
)

// OutcomeKind classifies what an HTTP 200 response (or a non-200 status)
// means for the job.
type OutcomeKind int

const (
	// KindCompleted: the engine signalled success; Text and ResultURL carry
	// the extracted result.
	KindCompleted OutcomeKind = iota
	// KindStillProcessing: a well-formed response without the success signal.
	// The job stays in processing; an asynchronous engine reports later.
	KindStillProcessing
	// KindParseFailed: the body was not valid JSON. The caller decides
	// whether that counts as success (lenient) or failure (strict).
	KindParseFailed
	// KindHTTPError: non-200 status; HTTPStatus and Body are set.
	KindHTTPError
)

// Outcome is the interpreted result of one Submit call.
type Outcome struct {
	Kind       OutcomeKind
	Text       string
	ResultURL  string
	HTTPStatus int
	Body       string
}

// Mapping translates an engine response body into an Outcome. Deployed
// engines use incompatible field names, so the mapping is built from
// configuration: the success signal plus ordered candidate lists for the
// result text, result file path, and download URL.
type Mapping struct {
	// SuccessField/SuccessValue define the completion signal. SuccessValue
	// "true" additionally accepts a JSON boolean true, covering engines that
	// report {"completed": true}.
	SuccessField string
	SuccessValue string
	// ContentFields are tried in order; the first present string wins.
	ContentFields []string
	// PathFields are tried after ContentFields; the field value is a
	// filesystem path whose contents become the result text.
	PathFields []string
	// URLFields are tried in order for the download URL.
	URLFields []string

	// readFile is swapped in tests; nil means os.ReadFile.
	readFile func(string) ([]byte, error)
}

// Interpret parses body and extracts the job outcome per the mapping.
func (m Mapping) Interpret(body []byte) Outcome {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Outcome{Kind: KindParseFailed, Body: string(body)}
	}

	if !m.success(fields) {
		return Outcome{Kind: KindStillProcessing}
	}

	out := Outcome{Kind: KindCompleted}
	for _, f := range m.ContentFields {
		if s, ok := stringField(fields, f); ok {
			out.Text = s
			break
		}
	}
	if out.Text == "" {
		for _, f := range m.PathFields {
			path, ok := stringField(fields, f)
			if !ok {
				continue
			}
			if content, err := m.read(path); err == nil {
				out.Text = string(content)
			}
			break
		}
	}
	for _, f := range m.URLFields {
		if s, ok := stringField(fields, f); ok {
			out.ResultURL = s
			break
		}
	}
	return out
}

func (m Mapping) success(fields map[string]json.RawMessage) bool {
	raw, ok := fields[m.SuccessField]
	if !ok {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == m.SuccessValue
	}
	if m.SuccessValue == "true" {
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return b
		}
	}
	return false
}

func (m Mapping) read(path string) ([]byte, error) {
	if m.readFile != nil {
		return m.readFile(path)
	}
	return os.ReadFile(path)
}

func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
