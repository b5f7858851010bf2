package parser

import (
	"strconv"
	"strings"

	"querydict-hq/querydict/pkg/query/ast"
	qerrors "querydict-hq/querydict/pkg/query/errors"
)

// DefaultMaxLength is the default limit on the query size in bytes.
const DefaultMaxLength = 64 * 1024

// Parser parses query strings into expression trees.
// It is stateless between calls and safe for concurrent use.
type Parser struct {
	maxLength int // Maximum query size in bytes (default: 64KB)
}

// NewParser creates a new parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxLength: DefaultMaxLength,
	}
}

// WithMaxLength sets the maximum query size. Zero or negative disables the limit.
func (p *Parser) WithMaxLength(n int) *Parser {
	p.maxLength = n
	return p
}

// Parse parses the query and returns the root node of the expression tree.
// Errors are *errors.Error values of type syntax carrying the offending position.
func (p *Parser) Parse(query string) (*ast.Node, error) {
	if p.maxLength > 0 && len(query) > p.maxLength {
		return nil, qerrors.New(qerrors.ErrorTypeSyntax, ast.Position{},
			"Query is %d bytes, exceeding the limit of %d", len(query), p.maxLength)
	}

	tokens, err := NewLexer(query).Tokenize()
	if err != nil {
		return nil, err
	}

	s := &state{tokens: tokens}
	if s.peek().Type == TokenEOF {
		return nil, s.errorf(s.peek(), "Empty query")
	}

	root, err := s.parseImplicit()
	if err != nil {
		return nil, err
	}
	if tok := s.peek(); tok.Type != TokenEOF {
		return nil, s.errorf(tok, "Unexpected %s", tok)
	}
	return root, nil
}

// Parse parses query with a default parser.
func Parse(query string) (*ast.Node, error) {
	return NewParser().Parse(query)
}

// state is the cursor over the token stream of a single Parse call.
type state struct {
	tokens []Token
	pos    int
}

func (s *state) peek() Token {
	return s.tokens[s.pos]
}

func (s *state) peekAt(n int) Token {
	if s.pos+n < len(s.tokens) {
		return s.tokens[s.pos+n]
	}
	return s.tokens[len(s.tokens)-1]
}

func (s *state) next() Token {
	tok := s.tokens[s.pos]
	if tok.Type != TokenEOF {
		s.pos++
	}
	return tok
}

func (s *state) errorf(tok Token, format string, args ...interface{}) *qerrors.Error {
	return qerrors.New(qerrors.ErrorTypeSyntax, tok.Pos, format, args...)
}

// startsOperand reports whether tok can begin an expression.
func startsOperand(tok Token) bool {
	switch tok.Type {
	case TokenTerm, TokenPhrase, TokenRegex, TokenTo,
		TokenLParen, TokenLBracket, TokenLBrace,
		TokenNot, TokenPlus, TokenMinus:
		return true
	}
	return false
}

// parseImplicit handles juxtaposed expressions (lowest precedence).
// Two or more operands without an operator between them become an Ambiguous node.
func (s *state) parseImplicit() (*ast.Node, error) {
	first, err := s.parseOr()
	if err != nil {
		return nil, err
	}

	operands := []*ast.Node{first}
	for startsOperand(s.peek()) {
		operand, err := s.parseOr()
		if err != nil {
			return nil, err
		}
		operands = append(operands, operand)
	}

	if len(operands) == 1 {
		return first, nil
	}
	node := ast.NewAmbiguous(operands...)
	node.Pos = first.Pos
	return node, nil
}

// parseOr handles OR chains, flattened into a single node.
func (s *state) parseOr() (*ast.Node, error) {
	return s.parseChain(TokenOr, ast.KindOr, s.parseAnd)
}

// parseAnd handles AND chains, flattened into a single node.
func (s *state) parseAnd() (*ast.Node, error) {
	return s.parseChain(TokenAnd, ast.KindAnd, s.parseUnary)
}

func (s *state) parseChain(op TokenType, kind ast.Kind, operand func() (*ast.Node, error)) (*ast.Node, error) {
	first, err := operand()
	if err != nil {
		return nil, err
	}
	if s.peek().Type != op {
		return first, nil
	}

	node := &ast.Node{Kind: kind, Children: []*ast.Node{first}, Pos: first.Pos}
	for s.peek().Type == op {
		opTok := s.next()
		if !startsOperand(s.peek()) {
			return nil, s.errorf(s.peek(), "Missing operand after %s", opTok.Type)
		}
		right, err := operand()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, right)
	}
	return node, nil
}

// parseUnary handles the prefix modifiers NOT, !, - and +.
func (s *state) parseUnary() (*ast.Node, error) {
	var kind ast.Kind
	switch s.peek().Type {
	case TokenNot:
		kind = ast.KindNot
	case TokenMinus:
		kind = ast.KindProhibit
	case TokenPlus:
		kind = ast.KindPlus
	default:
		atom, err := s.parseAtom()
		if err != nil {
			return nil, err
		}
		return s.parsePostfix(atom)
	}

	opTok := s.next()
	if !startsOperand(s.peek()) {
		return nil, s.errorf(s.peek(), "Missing operand after %s", opTok.Type)
	}
	operand, err := s.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: kind, Children: []*ast.Node{operand}, Pos: opTok.Pos}, nil
}

// parsePostfix handles fuzzy (~) and boost (^) suffixes.
func (s *state) parsePostfix(node *ast.Node) (*ast.Node, error) {
	for {
		switch s.peek().Type {
		case TokenTilde:
			tilde := s.next()
			degree := ""
			if tok := s.peek(); tok.Type == TokenTerm && tok.Pos.Offset == tilde.End && isNumber(tok.Value) {
				degree = s.next().Value
			}
			node = &ast.Node{Kind: ast.KindFuzzy, Value: degree, Children: []*ast.Node{node}, Pos: node.Pos}
		case TokenCaret:
			caret := s.next()
			tok := s.peek()
			if tok.Type != TokenTerm || tok.Pos.Offset != caret.End || !isNumber(tok.Value) {
				return nil, s.errorf(caret, "Boost must be followed by a number")
			}
			s.next()
			node = &ast.Node{Kind: ast.KindBoost, Value: tok.Value, Children: []*ast.Node{node}, Pos: node.Pos}
		default:
			return node, nil
		}
	}
}

// parseAtom handles groups, fields, terms, phrases, regular expressions and ranges.
func (s *state) parseAtom() (*ast.Node, error) {
	tok := s.peek()

	switch tok.Type {
	case TokenLParen:
		inner, err := s.parseParens()
		if err != nil {
			return nil, err
		}
		node := ast.NewGroup(inner)
		node.Pos = tok.Pos
		return node, nil

	case TokenTerm:
		if s.peekAt(1).Type == TokenColon {
			return s.parseField()
		}
		s.next()
		return termNode(tok), nil

	case TokenTo:
		// TO is only a keyword inside a range.
		s.next()
		return &ast.Node{Kind: ast.KindTerm, Value: tok.Value, Pos: tok.Pos}, nil

	case TokenPhrase:
		s.next()
		return &ast.Node{Kind: ast.KindPhrase, Value: tok.Value, Pos: tok.Pos}, nil

	case TokenRegex:
		s.next()
		return &ast.Node{Kind: ast.KindRegex, Value: tok.Value, Pos: tok.Pos}, nil

	case TokenLBracket, TokenLBrace:
		return s.parseRange()

	case TokenEOF:
		return nil, s.errorf(tok, "Unexpected end of query")

	default:
		return nil, s.errorf(tok, "Unexpected %s", tok)
	}
}

// parseParens parses "( expr )" and returns expr.
func (s *state) parseParens() (*ast.Node, error) {
	open := s.next()
	if s.peek().Type == TokenRParen {
		return nil, s.errorf(s.peek(), "Empty group")
	}

	inner, err := s.parseImplicit()
	if err != nil {
		return nil, err
	}

	if tok := s.peek(); tok.Type != TokenRParen {
		if tok.Type == TokenEOF {
			return nil, s.errorf(open, "Missing closing parenthesis")
		}
		return nil, s.errorf(tok, "Expected ')' but got %s", tok)
	}
	s.next()
	return inner, nil
}

// parseField parses "name:value". The value may itself carry modifiers,
// which then wrap the value rather than the field.
func (s *state) parseField() (*ast.Node, error) {
	name := s.next()
	s.next() // colon

	var value *ast.Node
	var err error

	switch tok := s.peek(); {
	case tok.Type == TokenLParen:
		value, err = s.parseParens()
		if err != nil {
			return nil, err
		}
		value = &ast.Node{Kind: ast.KindFieldGroup, Name: name.Value, Children: []*ast.Node{value}, Pos: tok.Pos}
		value, err = s.parsePostfix(value)
	case startsOperand(tok):
		value, err = s.parseUnary()
	case tok.Type == TokenEOF:
		return nil, s.errorf(tok, "Missing value for field %q", name.Value)
	default:
		return nil, s.errorf(tok, "Unexpected %s after field %q", tok, name.Value)
	}
	if err != nil {
		return nil, err
	}

	node := ast.NewField(name.Value, value)
	node.Pos = name.Pos
	return node, nil
}

// parseRange parses "[low TO high]" with either bracket style on either end.
func (s *state) parseRange() (*ast.Node, error) {
	open := s.next()
	node := &ast.Node{Kind: ast.KindRange, IncludeLow: open.Type == TokenLBracket, Pos: open.Pos}

	low, err := s.rangeBound()
	if err != nil {
		return nil, err
	}
	node.Low = low

	if tok := s.peek(); tok.Type != TokenTo {
		return nil, s.errorf(tok, "Expected TO in range but got %s", tok)
	}
	s.next()

	high, err := s.rangeBound()
	if err != nil {
		return nil, err
	}
	node.High = high

	switch tok := s.next(); tok.Type {
	case TokenRBracket:
		node.IncludeHigh = true
	case TokenRBrace:
		node.IncludeHigh = false
	case TokenEOF:
		return nil, s.errorf(open, "Unterminated range")
	default:
		return nil, s.errorf(tok, "Expected ']' or '}' but got %s", tok)
	}
	return node, nil
}

func (s *state) rangeBound() (string, error) {
	tok := s.peek()
	switch tok.Type {
	case TokenTerm, TokenPhrase:
		s.next()
		return tok.Value, nil
	default:
		return "", s.errorf(tok, "Expected range bound but got %s", tok)
	}
}

func termNode(tok Token) *ast.Node {
	kind := ast.KindTerm
	if tok.Wildcard {
		kind = ast.KindWildcard
	}
	return &ast.Node{Kind: kind, Value: tok.Value, Pos: tok.Pos}
}

// isNumber accepts unsigned decimals such as 2, 0.8 or .5.
func isNumber(s string) bool {
	if s == "" || strings.Trim(s, "0123456789.") != "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
