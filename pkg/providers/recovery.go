package providers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"
)

// Recover turns raw provider output into a typed GenerationResult, tolerating
// truncation and format drift. Stages run in order; the first success wins:
//
//  1. Direct parse of the whole text as a JSON document.
//  2. Direct parse after re-escaping literal control characters that a
//     provider emitted unescaped inside string values.
//  3. Truncation-targeted repair (only when truncated): capture the primary
//     field's value up to the cut point and synthesize a minimal document.
//  4. Field-targeted extraction: pattern-match the primary field and keyword
//     array independently of the surrounding document being valid JSON.
//  5. Permissive block extraction: parse the first {...} span found anywhere
//     in the text after normalizing doubled escape sequences.
//
// Exhausting every stage returns a *MalformedOutputError carrying the head of
// the raw text. Recover performs no I/O beyond logging and is safe for
// concurrent use.
func Recover(raw, primaryField string, truncated bool) (*GenerationResult, error) {
	if res, ok := parseDocument(raw, primaryField); ok {
		return finalize(res, StageDirect), nil
	}
	slog.Debug("direct parse failed, re-escaping control characters",
		"field", primaryField, "truncated", truncated)

	if res, ok := parseDocument(escapeControlChars(raw), primaryField); ok {
		return finalize(res, StageReescape), nil
	}

	if truncated {
		slog.Info("re-escaped parse failed, attempting truncation repair",
			"field", primaryField)
		if res, ok := repairTruncated(raw, primaryField); ok {
			return finalize(res, StageTruncationRepair), nil
		}
	}

	slog.Info("structured parse failed, extracting fields by pattern",
		"field", primaryField)
	if res, ok := extractFields(raw, primaryField); ok {
		return finalize(res, StageFieldExtract), nil
	}

	slog.Warn("field extraction failed, trying permissive block extraction",
		"field", primaryField)
	if res, ok := extractBlock(raw, primaryField); ok {
		return finalize(res, StageBlockExtract), nil
	}

	return nil, &MalformedOutputError{
		Snippet: Snippet(raw),
		Cause:   errors.New("all recovery stages exhausted"),
	}
}

// parseDocument attempts a strict JSON parse and accepts the document only if
// it contains a non-empty primary field.
func parseDocument(raw, primaryField string) (*GenerationResult, bool) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false
	}

	primary, _ := doc[primaryField].(string)
	if strings.TrimSpace(primary) == "" {
		return nil, false
	}

	var keywords []string
	if rawList, ok := doc["keywords"].([]interface{}); ok {
		for _, entry := range rawList {
			if s, ok := entry.(string); ok && strings.TrimSpace(s) != "" {
				keywords = append(keywords, s)
			}
		}
	}

	return &GenerationResult{
		PrimaryField: primaryField,
		Primary:      primary,
		Keywords:     keywords,
	}, true
}

// escapeControlChars re-escapes literal newline, carriage-return, and tab
// characters found inside JSON string values. Some providers respect JSON
// syntax loosely and emit these raw.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		if escaped {
			escaped = false
			b.WriteByte(c)
			continue
		}
		switch c {
		case '\\':
			escaped = true
			b.WriteByte(c)
		case '"':
			inString = false
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// repairTruncated recovers a usable partial answer from a response that was
// cut mid-string. It locates the opening of the primary field's value, takes
// everything up to the cut point, and synthesizes a minimal valid document
// with an empty keyword list.
func repairTruncated(raw, primaryField string) (*GenerationResult, bool) {
	opening := regexp.MustCompile(`"` + regexp.QuoteMeta(primaryField) + `"\s*:\s*"`)
	loc := opening.FindStringIndex(raw)
	if loc == nil {
		return nil, false
	}

	value, _ := scanStringValue(raw[loc[1]:])
	value = strings.TrimSuffix(value, `\`) // drop a partial escape at the cut
	value = unescapeCommon(value)
	if strings.TrimSpace(value) == "" {
		return nil, false
	}

	synthesized, err := json.Marshal(map[string]interface{}{
		primaryField: value,
		"keywords":   []string{},
	})
	if err != nil {
		return nil, false
	}
	return parseDocument(string(synthesized), primaryField)
}

// scanStringValue reads a JSON string value body up to its closing unescaped
// quote, or to the end of input when the closing quote never arrives (the
// truncation case). It reports whether the string was closed.
func scanStringValue(s string) (string, bool) {
	escaped := false
	for i := 0; i < len(s); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch s[i] {
		case '\\':
			escaped = true
		case '"':
			return s[:i], true
		}
	}
	return s, false
}

// extractFields pattern-matches the primary field value and, separately, a
// keywords array. It succeeds even when the surrounding document is not valid
// JSON at all, e.g. when the provider wrapped the object in prose.
func extractFields(raw, primaryField string) (*GenerationResult, bool) {
	fieldRE := regexp.MustCompile(`"` + regexp.QuoteMeta(primaryField) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	m := fieldRE.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	primary := unescapeCommon(m[1])
	if strings.TrimSpace(primary) == "" {
		return nil, false
	}

	var keywords []string
	if arr := keywordArrayRE.FindStringSubmatch(raw); arr != nil {
		for _, entry := range quotedStringRE.FindAllStringSubmatch(arr[1], -1) {
			if s := unescapeCommon(entry[1]); strings.TrimSpace(s) != "" {
				keywords = append(keywords, s)
			}
		}
	}

	return &GenerationResult{
		PrimaryField: primaryField,
		Primary:      primary,
		Keywords:     keywords,
	}, true
}

var (
	keywordArrayRE = regexp.MustCompile(`"keywords"\s*:\s*\[([^\]]*)\]`)
	quotedStringRE = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

// extractBlock locates the outermost {...} span anywhere in the text, which
// handles responses wrapped in prose or code fencing, and retries a direct
// parse on that span alone after normalizing doubled escape sequences.
func extractBlock(raw, primaryField string) (*GenerationResult, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	span := normalizeDoubledEscapes(raw[start : end+1])
	return parseDocument(span, primaryField)
}

// doubledEscapeReplacer collapses double-escaped sequences that show up when
// a provider JSON-encodes an already-encoded string.
var doubledEscapeReplacer = strings.NewReplacer(
	`\\n`, `\n`,
	`\\r`, `\r`,
	`\\t`, `\t`,
	`\\"`, `\"`,
	`\\\\`, `\\`,
)

func normalizeDoubledEscapes(s string) string {
	return doubledEscapeReplacer.Replace(s)
}

// unescapeCommon decodes the escape sequences providers actually emit inside
// string values. Anything unrecognized keeps its backslash untouched.
func unescapeCommon(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(s[i])
			b.WriteByte(s[i+1])
		}
		i++
	}
	return b.String()
}

// bulletMarkers are the line prefixes treated as existing bullet formatting.
var bulletMarkers = []string{"- ", "• ", "* "}

// finalize applies the uniform post-processing every successful stage gets:
// trim the primary field, re-wrap lines with bullet markers when the provider
// ignored formatting instructions, and cap keywords at MaxKeywords.
func finalize(res *GenerationResult, stage RecoveryStage) *GenerationResult {
	res.Stage = stage
	res.Primary = strings.TrimSpace(res.Primary)

	if !hasBullets(res.Primary) {
		res.Primary = rewrapBullets(res.Primary)
	}

	if len(res.Keywords) > MaxKeywords {
		res.Keywords = res.Keywords[:MaxKeywords]
	}

	if n := CountBulletLines(res.Primary); n < 3 {
		// Over-compression signal, not a failure.
		slog.Warn("primary field decomposed into few bullet lines",
			"field", res.PrimaryField, "lines", n, "stage", stage)
	}

	return res
}

func hasBullets(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		for _, marker := range bulletMarkers {
			if strings.HasPrefix(trimmed, marker) {
				return true
			}
		}
	}
	return false
}

// rewrapBullets prefixes each non-empty line with a bullet marker. Single-line
// prose is left alone; wrapping it would mangle short answers.
func rewrapBullets(text string) string {
	lines := strings.Split(text, "\n")
	wrapped := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		wrapped = append(wrapped, "- "+trimmed)
	}
	if len(wrapped) < 2 {
		return text
	}
	return strings.Join(wrapped, "\n")
}

// CountBulletLines counts lines carrying a bullet marker.
func CountBulletLines(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		for _, marker := range bulletMarkers {
			if strings.HasPrefix(trimmed, marker) {
				count++
				break
			}
		}
	}
	return count
}

// Incompleteness heuristic defaults for adapters implementing the
// budget-increase retry. Empirically chosen; configurable, not contract.
const (
	MinCompleteLength  = 50
	MinCompleteBullets = 2
)

// terminalPunctuation are the runes accepted as a complete final line.
const terminalPunctuation = `.)]}"'?!`

// LooksIncomplete judges whether a recovered result still reads as cut off:
// primary text shorter than MinCompleteLength, fewer than MinCompleteBullets
// bullet lines, or a final line that does not end in terminal punctuation.
func LooksIncomplete(res *GenerationResult) bool {
	text := strings.TrimSpace(res.Primary)
	if len([]rune(text)) < MinCompleteLength {
		return true
	}
	if CountBulletLines(text) < MinCompleteBullets {
		return true
	}

	lines := strings.Split(text, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return true
	}
	return !strings.ContainsRune(terminalPunctuation, rune(last[len(last)-1]))
}
