package parser

import (
	"github.com/ChAoSUnItY/Yakou/internal/diagnostic"
	"github.com/ChAoSUnItY/Yakou/internal/lexer"
)

// Parser holds the parser state
type Parser struct {
	path      string
	tokens    []lexer.Token
	pos       int
	diags     *diagnostic.Diagnostics
	warnedEOF bool
}

// New creates a new parser over the given source text
func New(path, source string) *Parser {
	l := lexer.New(source)
	return NewFromTokens(path, l.Tokenize())
}

// NewFromTokens creates a parser over an externally produced token
// stream. The stream does not need to be EOF-terminated; truncation is
// tolerated and reported.
func NewFromTokens(path string, tokens []lexer.Token) *Parser {
	return &Parser{
		path:   path,
		tokens: tokens,
		diags:  diagnostic.New(),
	}
}

// Diagnostics returns the parser's diagnostics
func (p *Parser) Diagnostics() *diagnostic.Diagnostics {
	return p.diags
}

// current returns the current token
func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.EOF, Pos: p.lastPos()}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without consuming
func (p *Parser) peek() lexer.Token {
	return p.peekAt(1)
}

// peekAt returns the token n positions ahead without consuming
func (p *Parser) peekAt(n int) lexer.Token {
	if p.pos+n >= len(p.tokens) {
		return lexer.Token{Kind: lexer.EOF, Pos: p.lastPos()}
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) lastPos() lexer.Position {
	if len(p.tokens) == 0 {
		return lexer.Position{}
	}
	return p.tokens[len(p.tokens)-1].Pos
}

// atEOF reports whether the stream is exhausted
func (p *Parser) atEOF() bool {
	return p.current().Kind == lexer.EOF
}

// advance moves to the next token and returns the consumed token
func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	} else if !p.warnedEOF {
		p.warnedEOF = true
		p.diags.Warningf(p.lastPos(), "internal compiler error: reached last token but parsing continues")
	}
	return tok
}

// check returns true if the current token is of the given kind
func (p *Parser) check(kind lexer.TokenKind) bool {
	return p.current().Kind == kind
}

// checkKw returns true if the current token is the given reserved word
func (p *Parser) checkKw(kw string) bool {
	return p.current().IsKeyword(kw)
}

// match consumes the current token if it matches, returns true if consumed
func (p *Parser) match(kind lexer.TokenKind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

// matchKw consumes the current token if it is the given reserved word
func (p *Parser) matchKw(kw string) bool {
	if p.checkKw(kw) {
		p.advance()
		return true
	}
	return false
}

// assert consumes the current token when it matches the expected kind.
// On a mismatch it reports an error, skips the offending token, and
// reports false so the enclosing parse can continue.
func (p *Parser) assert(kind lexer.TokenKind) (lexer.Token, bool) {
	tok := p.current()
	if tok.Kind != kind {
		p.diags.Errorf(tok.Pos, "expected %s, got %s", kind, describe(tok))
		p.advance()
		return tok, false
	}
	return p.advance(), true
}

// assertKw is assert for reserved words
func (p *Parser) assertKw(kw string) (lexer.Token, bool) {
	tok := p.current()
	if !tok.IsKeyword(kw) {
		p.diags.Errorf(tok.Pos, "expected '%s', got %s", kw, describe(tok))
		p.advance()
		return tok, false
	}
	return p.advance(), true
}

// assertName consumes a non-reserved identifier
func (p *Parser) assertName(what string) (lexer.Token, bool) {
	tok := p.current()
	if tok.Kind != lexer.IDENT || tok.IsReserved() {
		p.diags.Errorf(tok.Pos, "expected %s, got %s", what, describe(tok))
		p.advance()
		return tok, false
	}
	return p.advance(), true
}

// describe renders a token for diagnostics, showing the literal text of
// identifiers.
func describe(tok lexer.Token) string {
	if tok.Kind == lexer.IDENT {
		return "'" + tok.Literal + "'"
	}
	return tok.Kind.String()
}
