package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, err
	}

	return finish(payload, base)
}

type jsoncState int

const (
	jsoncCode jsoncState = iota
	jsoncString
	jsoncEscape
	jsoncLineComment
	jsoncBlockComment
)

// normalizeJSONC blanks out comments and trailing commas so the result
// decodes as plain JSON. Byte offsets and newlines are preserved so decode
// errors still point at the right line.
func normalizeJSONC(content string) (string, error) {
	out := []byte(content)
	state := jsoncCode
	pendingComma := -1

	for i := 0; i < len(out); i++ {
		ch := out[i]
		switch state {
		case jsoncString:
			switch ch {
			case '\\':
				state = jsoncEscape
			case '"':
				state = jsoncCode
			}
		case jsoncEscape:
			state = jsoncString
		case jsoncLineComment:
			if ch == '\n' || ch == '\r' {
				state = jsoncCode
				continue
			}
			out[i] = ' '
		case jsoncBlockComment:
			if ch == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				i++
				state = jsoncCode
				continue
			}
			if !isJSONWhitespace(ch) {
				out[i] = ' '
			}
		default:
			switch {
			case ch == '/' && i+1 < len(out) && out[i+1] == '/':
				out[i], out[i+1] = ' ', ' '
				i++
				state = jsoncLineComment
			case ch == '/' && i+1 < len(out) && out[i+1] == '*':
				out[i], out[i+1] = ' ', ' '
				i++
				state = jsoncBlockComment
			case isJSONWhitespace(ch):
			case ch == '}' || ch == ']':
				if pendingComma >= 0 {
					out[pendingComma] = ' '
				}
				pendingComma = -1
			case ch == ',':
				pendingComma = i
			default:
				pendingComma = -1
				if ch == '"' {
					state = jsoncString
				}
			}
		}
	}

	if state == jsoncBlockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}
	return string(out), nil
}

func isJSONWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t'
}

// ensureSingleJSONValue rejects content after the top-level object.
func ensureSingleJSONValue(decoder *json.Decoder) error {
	if _, err := decoder.Token(); errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("multiple JSON values are not allowed")
}

// wrapJSONDecodeError prefixes syntax and type errors with a line and column.
func wrapJSONDecodeError(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// offsetToLineCol converts a 1-based decoder offset to line and column.
func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	before := content[:min(int(offset), len(content))]
	if before != "" {
		before = before[:len(before)-1]
	}
	line := strings.Count(before, "\n") + 1
	col := len(before) - strings.LastIndex(before, "\n")
	return line, col
}
