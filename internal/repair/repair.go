package repair

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gavelhq/gavel/internal/model"
)

// Result is the typed shape recovered from raw LLM output.
type Result struct {
	Findings    []model.Finding `json:"findings"`
	Suggestions []string        `json:"suggestions"`
}

// Parse recovers a Result from raw LLM text. It never returns an error:
// the tiers run in order (fence strip, brace scan, textual fixes, aggressive
// array extraction) and total failure yields empty findings with a
// diagnostic suggestion.
func Parse(raw string) Result {
	candidate := extractCandidate(raw)

	if res, ok := tryDecode(candidate); ok {
		return res
	}
	if res, ok := tryDecode(applyTextualFixes(candidate)); ok {
		return res
	}
	if res, ok := tryDecode(extractArrays(raw)); ok {
		return res
	}
	return Result{
		Findings:    []model.Finding{},
		Suggestions: []string{"analysis output could not be parsed; manual review recommended"},
	}
}

// extractCandidate pulls the most plausible JSON span out of raw text:
// a fenced code block if present, else the first balanced {...} span,
// else the text as-is.
func extractCandidate(raw string) string {
	s := strings.TrimSpace(raw)

	if idx := strings.Index(s, "```json"); idx != -1 {
		rest := s[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) > 2 {
			return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
		}
	}
	if span := balancedBraceSpan(s); span != "" {
		return span
	}
	return s
}

// balancedBraceSpan returns the first {...} span with balanced braces,
// or "" if none exists.
func balancedBraceSpan(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

var (
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	singleQuoteRe   = regexp.MustCompile(`'([^'\\]*)'`)
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// applyTextualFixes repairs the common LLM JSON mistakes conservatively:
// bare keys get quoted, single-quoted strings become double-quoted, and
// trailing commas are dropped.
func applyTextualFixes(s string) string {
	s = bareKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = singleQuoteRe.ReplaceAllString(s, `"$1"`)
	s = trailingCommaRe.ReplaceAllString(s, `$1`)
	return s
}

var (
	findingsArrayRe    = regexp.MustCompile(`"?findings"?\s*:\s*(\[[\s\S]*?\])\s*(?:,|\})`)
	suggestionsArrayRe = regexp.MustCompile(`"?suggestions"?\s*:\s*(\[[\s\S]*?\])\s*(?:,|\})`)
)

// extractArrays is the aggressive tier: fish the findings and suggestions
// array bodies out of otherwise unusable text and reassemble a minimal
// object.
func extractArrays(raw string) string {
	findings := "[]"
	suggestions := "[]"
	if m := findingsArrayRe.FindStringSubmatch(raw); m != nil {
		findings = applyTextualFixes(m[1])
	}
	if m := suggestionsArrayRe.FindStringSubmatch(raw); m != nil {
		suggestions = applyTextualFixes(m[1])
	}
	if findings == "[]" && suggestions == "[]" {
		return ""
	}
	return `{"findings":` + findings + `,"suggestions":` + suggestions + `}`
}

// tryDecode parses candidate text and coerces it into a schema-valid Result.
func tryDecode(s string) (Result, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return Result{}, false
	}
	var payload struct {
		Findings    []json.RawMessage `json:"findings"`
		Suggestions []json.RawMessage `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return Result{}, false
	}
	// An object that carries neither key is not a result; some other JSON
	// fragment matched the brace scan.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &keys); err != nil {
		return Result{}, false
	}
	if _, ok := keys["findings"]; !ok {
		if _, ok := keys["suggestions"]; !ok {
			return Result{}, false
		}
	}

	res := Result{Findings: []model.Finding{}, Suggestions: []string{}}
	for _, rawFinding := range payload.Findings {
		if f, ok := coerceFinding(rawFinding); ok {
			res.Findings = append(res.Findings, f)
		}
	}
	for _, rawSuggestion := range payload.Suggestions {
		// Non-string suggestions are dropped.
		var str string
		if err := json.Unmarshal(rawSuggestion, &str); err == nil && str != "" {
			res.Suggestions = append(res.Suggestions, str)
		}
	}
	return res, true
}

// coerceFinding validates one finding object, applying safe defaults for
// missing fields. Non-object findings are dropped.
func coerceFinding(raw json.RawMessage) (model.Finding, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return model.Finding{}, false
	}
	f := model.Finding{
		Type:     "general",
		Severity: model.SeverityLow,
	}
	if v, ok := obj["type"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil && s != "" {
			f.Type = s
		}
	}
	if v, ok := obj["severity"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil && model.ValidSeverity(model.Severity(s)) {
			f.Severity = model.Severity(s)
		}
	}
	if v, ok := obj["description"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			f.Description = s
		}
	}
	if v, ok := obj["suggestion"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			f.Suggestion = s
		}
	}
	for _, key := range []string{"file", "filename"} {
		if v, ok := obj[key]; ok {
			var s string
			if json.Unmarshal(v, &s) == nil && s != "" {
				f.File = s
				break
			}
		}
	}
	if v, ok := obj["line_number"]; ok {
		var n int
		if json.Unmarshal(v, &n) == nil && n > 0 {
			f.Line = n
		}
	}
	return f, true
}
