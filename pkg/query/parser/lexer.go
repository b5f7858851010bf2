package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"querydict-hq/querydict/pkg/query/ast"
	qerrors "querydict-hq/querydict/pkg/query/errors"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenTerm
	TokenPhrase
	TokenRegex
	TokenColon
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenLBrace
	TokenRBrace
	TokenAnd
	TokenOr
	TokenNot
	TokenTo
	TokenPlus
	TokenMinus
	TokenTilde
	TokenCaret
)

var tokenNames = map[TokenType]string{
	TokenEOF:      "end of query",
	TokenTerm:     "term",
	TokenPhrase:   "phrase",
	TokenRegex:    "regular expression",
	TokenColon:    "':'",
	TokenLParen:   "'('",
	TokenRParen:   "')'",
	TokenLBracket: "'['",
	TokenRBracket: "']'",
	TokenLBrace:   "'{'",
	TokenRBrace:   "'}'",
	TokenAnd:      "AND",
	TokenOr:       "OR",
	TokenNot:      "NOT",
	TokenTo:       "TO",
	TokenPlus:     "'+'",
	TokenMinus:    "'-'",
	TokenTilde:    "'~'",
	TokenCaret:    "'^'",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token represents a lexical token.
type Token struct {
	Type TokenType

	// Value is the unescaped text for terms, the quoted source text for
	// phrases and the body for regular expressions.
	Value string

	// Wildcard is set for terms containing an unescaped * or ?.
	Wildcard bool

	Pos ast.Position
	End int // Byte offset just past the token
}

func (t Token) String() string {
	switch t.Type {
	case TokenTerm, TokenPhrase:
		return fmt.Sprintf("%s %q", t.Type, t.Value)
	default:
		return t.Type.String()
	}
}

// termStops are the runes that end an unescaped term.
const termStops = `():^~[]{}"`

// Lexer tokenizes query input.
type Lexer struct {
	input string
	pos   int

	// Position tracking for pos.
	line int
	col  int
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1, col: 1}
}

// Tokenize returns every token in the input, ending with TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	start := l.position()
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: start, End: l.pos}, nil
	}

	ch := l.input[l.pos]

	// Single-character tokens
	if typ, ok := singleTokens[ch]; ok {
		l.advance()
		return Token{Type: typ, Value: string(ch), Pos: start, End: l.pos}, nil
	}

	switch ch {
	case '&', '|':
		if l.peekByte(1) == ch {
			l.advance()
			l.advance()
			typ := TokenAnd
			if ch == '|' {
				typ = TokenOr
			}
			return Token{Type: typ, Value: string([]byte{ch, ch}), Pos: start, End: l.pos}, nil
		}
	case '+':
		l.advance()
		return Token{Type: TokenPlus, Value: "+", Pos: start, End: l.pos}, nil
	case '-':
		l.advance()
		return Token{Type: TokenMinus, Value: "-", Pos: start, End: l.pos}, nil
	case '!':
		l.advance()
		return Token{Type: TokenNot, Value: "!", Pos: start, End: l.pos}, nil
	case '"':
		return l.readPhrase(start)
	case '/':
		return l.readRegex(start)
	}

	return l.readTerm(start)
}

var singleTokens = map[byte]TokenType{
	':': TokenColon,
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
	'{': TokenLBrace,
	'}': TokenRBrace,
	'~': TokenTilde,
	'^': TokenCaret,
}

func (l *Lexer) readPhrase(start ast.Position) (Token, error) {
	begin := l.pos
	l.advance() // opening quote
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case '\\':
			l.advance()
			if l.pos >= len(l.input) {
				return Token{}, l.errorf(start, "Unterminated phrase")
			}
			l.advance()
		case '"':
			l.advance()
			return Token{Type: TokenPhrase, Value: l.input[begin:l.pos], Pos: start, End: l.pos}, nil
		default:
			l.advance()
		}
	}
	return Token{}, l.errorf(start, "Unterminated phrase")
}

func (l *Lexer) readRegex(start ast.Position) (Token, error) {
	l.advance() // opening slash
	var sb strings.Builder
	for l.pos < len(l.input) {
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		switch r {
		case '\\':
			l.advance()
			if l.pos >= len(l.input) {
				return Token{}, l.errorf(start, "Unterminated regular expression")
			}
			next, _ := utf8.DecodeRuneInString(l.input[l.pos:])
			if next != '/' {
				sb.WriteRune('\\')
			}
			sb.WriteRune(next)
			l.advance()
		case '/':
			l.advance()
			return Token{Type: TokenRegex, Value: sb.String(), Pos: start, End: l.pos}, nil
		default:
			sb.WriteRune(r)
			l.advance()
		}
	}
	return Token{}, l.errorf(start, "Unterminated regular expression")
}

func (l *Lexer) readTerm(start ast.Position) (Token, error) {
	begin := l.pos
	var sb strings.Builder
	escaped := false
	wildcard := false

	for l.pos < len(l.input) {
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		if unicode.IsSpace(r) || strings.ContainsRune(termStops, r) {
			break
		}
		if (r == '&' || r == '|') && l.peekByte(1) == byte(r) {
			break
		}
		if r == '\\' {
			l.advance()
			if l.pos >= len(l.input) {
				return Token{}, l.errorf(l.position(), "Escape character at end of query")
			}
			next, _ := utf8.DecodeRuneInString(l.input[l.pos:])
			sb.WriteRune(next)
			l.advance()
			escaped = true
			continue
		}
		if r == '*' || r == '?' {
			wildcard = true
		}
		sb.WriteRune(r)
		l.advance()
	}

	if l.pos == begin {
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		return Token{}, l.errorf(start, "Unexpected character %q", r)
	}

	value := sb.String()
	if !escaped {
		switch value {
		case "AND":
			return Token{Type: TokenAnd, Value: value, Pos: start, End: l.pos}, nil
		case "OR":
			return Token{Type: TokenOr, Value: value, Pos: start, End: l.pos}, nil
		case "NOT":
			return Token{Type: TokenNot, Value: value, Pos: start, End: l.pos}, nil
		case "TO":
			return Token{Type: TokenTo, Value: value, Pos: start, End: l.pos}, nil
		}
	}

	return Token{Type: TokenTerm, Value: value, Wildcard: wildcard, Pos: start, End: l.pos}, nil
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.advance()
	}
}

// advance moves past the rune at the current offset.
func (l *Lexer) advance() {
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) peekByte(n int) byte {
	if l.pos+n < len(l.input) {
		return l.input[l.pos+n]
	}
	return 0
}

func (l *Lexer) position() ast.Position {
	return ast.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) errorf(pos ast.Position, format string, args ...interface{}) *qerrors.Error {
	return qerrors.New(qerrors.ErrorTypeSyntax, pos, format, args...)
}
