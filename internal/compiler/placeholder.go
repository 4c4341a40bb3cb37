package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind classifies a $...$ placeholder.
type TokenKind int

const (
	// TokenParameter is a $name$ reference to a declared parameter.
	TokenParameter TokenKind = iota
	// TokenInput is a $input_data_N[x, y, z]$ read.
	TokenInput
	// TokenOutput is a $output_data_N[x, y, z] = value$ write.
	TokenOutput
)

const (
	inputPrefix  = "input_data_"
	outputPrefix = "output_data_"
)

// Token is one placeholder found in shader source.
type Token struct {
	Kind  TokenKind
	Start int    // offset of the opening '$'
	End   int    // offset just past the closing '$'
	Name  string // parameter name, or input_data_N / output_data_N
	Index int    // N for accessors
	// Coords holds the x, y and z expressions of an accessor.
	Coords [3]string
	// Value is the right-hand side of an output write.
	Value string
}

// Placeholders scans src for $...$ tokens in source order.
func Placeholders(src string) ([]Token, error) {
	var tokens []Token
	pos := 0
	for {
		open := strings.IndexByte(src[pos:], '$')
		if open < 0 {
			return tokens, nil
		}
		open += pos
		closing := strings.IndexByte(src[open+1:], '$')
		if closing < 0 {
			return nil, fmt.Errorf("%w at offset %d", ErrUnterminatedPlaceholder, open)
		}
		closing += open + 1

		tok, err := parseToken(src[open+1 : closing])
		if err != nil {
			return nil, fmt.Errorf("placeholder at offset %d: %w", open, err)
		}
		tok.Start, tok.End = open, closing+1
		tokens = append(tokens, tok)
		pos = closing + 1
	}
}

func parseToken(body string) (Token, error) {
	body = strings.TrimSpace(body)
	bracket := strings.IndexByte(body, '[')
	if bracket < 0 {
		if !isIdentifier(body) {
			return Token{}, fmt.Errorf("%w: %q", ErrMalformedPlaceholder, body)
		}
		return Token{Kind: TokenParameter, Name: body}, nil
	}

	name := strings.TrimSpace(body[:bracket])
	var tok Token
	switch {
	case strings.HasPrefix(name, inputPrefix):
		tok.Kind = TokenInput
		name = name[len(inputPrefix):]
	case strings.HasPrefix(name, outputPrefix):
		tok.Kind = TokenOutput
		name = name[len(outputPrefix):]
	default:
		return Token{}, fmt.Errorf("%w: unknown accessor %q", ErrMalformedPlaceholder, name)
	}
	idx, err := strconv.Atoi(name)
	if err != nil || idx < 0 {
		return Token{}, fmt.Errorf("%w: bad tensor index in %q", ErrMalformedPlaceholder, body)
	}
	tok.Index = idx
	if tok.Kind == TokenInput {
		tok.Name = inputPrefix + name
	} else {
		tok.Name = outputPrefix + name
	}

	end := matchingBracket(body, bracket)
	if end < 0 {
		return Token{}, fmt.Errorf("%w: unbalanced brackets in %q", ErrMalformedPlaceholder, body)
	}
	coords := splitTopLevel(body[bracket+1:end], ',')
	if len(coords) != 3 {
		return Token{}, fmt.Errorf("%w: accessor needs 3 coordinates, got %d in %q",
			ErrMalformedPlaceholder, len(coords), body)
	}
	for i, c := range coords {
		c = strings.TrimSpace(c)
		if c == "" {
			return Token{}, fmt.Errorf("%w: empty coordinate in %q", ErrMalformedPlaceholder, body)
		}
		tok.Coords[i] = c
	}

	rest := strings.TrimSpace(body[end+1:])
	switch tok.Kind {
	case TokenInput:
		if rest != "" {
			return Token{}, fmt.Errorf("%w: unexpected %q after input accessor", ErrMalformedPlaceholder, rest)
		}
	case TokenOutput:
		if !strings.HasPrefix(rest, "=") || strings.TrimSpace(rest[1:]) == "" {
			return Token{}, fmt.Errorf("%w: output accessor needs '= value' in %q", ErrMalformedPlaceholder, body)
		}
		tok.Value = strings.TrimSpace(rest[1:])
	}
	return tok, nil
}

// matchingBracket returns the index of the ']' closing the '[' at open.
func matchingBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s on sep outside of parentheses and brackets.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
