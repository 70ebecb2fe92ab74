package config

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

// SplitCommand turns a shell-like command string into argv. Single quotes
// are literal; double quotes and bare words expand $VAR and ${VAR}; a word
// starting with ~/ expands to the home directory; an unquoted # starts a
// comment. An empty or comment-only string yields nil.
func SplitCommand(input string) ([]string, error) {
	s := splitter{lookup: os.Getenv, home: homeDir}
	return s.split(input)
}

type splitter struct {
	lookup func(string) string
	home   func() string

	argv    []string
	word    strings.Builder
	inWord  bool
	quote   rune
	escaped bool
}

func (s *splitter) split(input string) ([]string, error) {
	runes := []rune(strings.TrimSpace(input))
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if s.escaped {
			s.write(r)
			s.escaped = false
			continue
		}

		switch s.quote {
		case '\'':
			if r == '\'' {
				s.quote = 0
			} else {
				s.write(r)
			}
			continue
		case '"':
			switch r {
			case '"':
				s.quote = 0
			case '\\':
				s.escaped = true
			case '$':
				i = s.expand(runes, i)
			default:
				s.write(r)
			}
			continue
		}

		switch {
		case r == '\\':
			s.escaped = true
			s.inWord = true
		case r == '\'' || r == '"':
			s.quote = r
			s.inWord = true
		case r == '#' && !s.inWord:
			s.flush()
			return s.argv, nil
		case r == '~' && !s.inWord && (i+1 == len(runes) || runes[i+1] == '/'):
			s.writeString(s.home())
		case r == '$':
			i = s.expand(runes, i)
		case unicode.IsSpace(r):
			s.flush()
		default:
			s.write(r)
		}
	}

	if s.escaped {
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
	}
	if s.quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}
	s.flush()
	return s.argv, nil
}

// expand consumes a variable reference starting at runes[i] == '$' and
// returns the index of its last rune.
func (s *splitter) expand(runes []rune, i int) int {
	s.inWord = true
	if i+1 < len(runes) && runes[i+1] == '{' {
		for j := i + 2; j < len(runes); j++ {
			if runes[j] == '}' {
				s.writeString(s.lookup(string(runes[i+2 : j])))
				return j
			}
		}
		s.write('$')
		return i
	}

	j := i + 1
	for j < len(runes) && (runes[j] == '_' || unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j])) {
		j++
	}
	if j == i+1 {
		s.write('$')
		return i
	}
	s.writeString(s.lookup(string(runes[i+1 : j])))
	return j - 1
}

func (s *splitter) write(r rune) {
	s.word.WriteRune(r)
	s.inWord = true
}

func (s *splitter) writeString(v string) {
	s.word.WriteString(v)
	s.inWord = true
}

func (s *splitter) flush() {
	if s.inWord {
		s.argv = append(s.argv, s.word.String())
	}
	s.word.Reset()
	s.inWord = false
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "~"
	}
	return home
}

func mustSplitCommand(input string) []string {
	argv, err := SplitCommand(input)
	if err != nil {
		panic(err)
	}
	return argv
}
