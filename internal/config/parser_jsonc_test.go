package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONCRemovesCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "items": [
    "one", /* block comment */
    "two",
  ],
  "nested": {
    "enabled": true,
  },
}
`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")
	require.NotContains(t, normalized, ",]")
	require.NotContains(t, normalized, ",}")
}

func TestNormalizeJSONCRetainsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text",}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Contains(t, normalized, "// and /* comment-like */")
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8) // line2, col2
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 5, col)
}

func TestStringListUnmarshal(t *testing.T) {
	var list stringList
	require.NoError(t, json.Unmarshal([]byte(`["video/webm","video/mp4"]`), &list))
	require.Equal(t, stringList{"video/webm", "video/mp4"}, list)

	require.NoError(t, json.Unmarshal([]byte(`"video/webm, , video/mp4"`), &list))
	require.Equal(t, stringList{"video/webm", "video/mp4"}, list)

	err := json.Unmarshal([]byte(`42`), &list)
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected string array")
}

func TestParseJSONCRejectsInvalidCommandArgv(t *testing.T) {
	_, _, err := parseJSONC(`{"clipboard_cmd":"unterminated ' quote"}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid clipboard_cmd")
}

func TestParseJSONCTrimsBackendAndIndicatorFields(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  "backend": {"url": "  https://interview.example.com  "},
  "indicator": {
    "backend": " desktop ",
    "desktop_app_name": "  rehearse-indicator  "
  }
}`, Default())
	require.NoError(t, err)
	require.Equal(t, "https://interview.example.com", cfg.Backend.URL)
	require.Equal(t, "desktop", cfg.Indicator.Backend)
	require.Equal(t, "rehearse-indicator", cfg.Indicator.DesktopAppName)
}

func TestParseJSONCRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := parseJSONC(`{"history":{"enable":false}}{"history":{"enable":true}}`, Default())
	require.Error(t, err)
	require.True(
		t,
		strings.Contains(err.Error(), "multiple JSON values") || strings.Contains(err.Error(), "unknown field"),
		"unexpected error: %v",
		err,
	)
}

func TestParseJSONCTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := parseJSONC(`{
  "capture": {"width": "wide"}
}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line")
	require.Contains(t, err.Error(), "column")
}

func TestParseJSONCMimeTypesSupportsCommaString(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  "capture": {"mime_types": "video/mp4, , video/webm"}
}`, Default())
	require.NoError(t, err)
	require.Equal(t, []string{"video/mp4", "video/webm"}, cfg.Capture.MimeTypes)
}

func TestParseJSONCDoesNotMutateBaseMimeTypes(t *testing.T) {
	base := Default()
	want := append([]string(nil), base.Capture.MimeTypes...)

	_, _, err := parseJSONC(`{"capture": {"mime_types": ["video/mp4"]}}`, base)
	require.NoError(t, err)
	require.Equal(t, want, base.Capture.MimeTypes)
}

func TestNormalizeJSONCPreservesOffsets(t *testing.T) {
	input := "{\n  \"a\": 1, // note\n  /* gone */\n}\n"
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Len(t, normalized, len(input))
	require.Equal(t, strings.Count(input, "\n"), strings.Count(normalized, "\n"))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal([]byte(normalized), &decoded))
	require.Equal(t, map[string]int{"a": 1}, decoded)
}

func TestParseJSONCReportsLineOfTypeError(t *testing.T) {
	_, _, err := parseJSONC("{\n  // timeout\n  \"upload\": {\"min_bytes\": \"big\"}\n}", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 3")
}
