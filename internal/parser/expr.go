package parser

import (
	"strconv"
	"strings"

	"github.com/ChAoSUnItY/Yakou/internal/ast"
	"github.com/ChAoSUnItY/Yakou/internal/lexer"
)

// Expression parsing - precedence climbing
//
// Precedence levels (lowest to highest binding):
//  1. assignment =       (right-associative, handled in parseExpression)
//  2. ||
//  3. &&
//  4. == !=
//  5. < <= > >=
//  6. |
//  7. ^
//  8. &
//  9. << >> >>>
// 10. + -
// 11. * / %
// 12. unary prefix + - ! ~ ++ --
// 13. postfix ++ -- (identifier-calls only)
// 14. primary, chain . / index [] / call () / companion ::

const (
	precNone       = 0
	precLogicalOr  = 1
	precLogicalAnd = 2
	precEquality   = 3
	precRelational = 4
	precBitOr      = 5
	precBitXor     = 6
	precBitAnd     = 7
	precShift      = 8
	precAdditive   = 9
	precMulti      = 10
)

func tokenPrecedence(kind lexer.TokenKind) int {
	switch kind {
	case lexer.DOUBLE_PIPE:
		return precLogicalOr
	case lexer.DOUBLE_AMP:
		return precLogicalAnd
	case lexer.EQ, lexer.NEQ:
		return precEquality
	case lexer.LT, lexer.LEQ, lexer.GT, lexer.GEQ:
		return precRelational
	case lexer.PIPE:
		return precBitOr
	case lexer.CARET:
		return precBitXor
	case lexer.AMP:
		return precBitAnd
	case lexer.SHL, lexer.SHR, lexer.USHR:
		return precShift
	case lexer.PLUS, lexer.MINUS:
		return precAdditive
	case lexer.STAR, lexer.SLASH, lexer.PERCENT:
		return precMulti
	default:
		return precNone
	}
}

// parseExpression parses a full expression including assignment, which
// is right-associative and binds loosest.
func (p *Parser) parseExpression() ast.Expression {
	left := p.parsePrecedence(precLogicalOr)

	if p.check(lexer.ASSIGN) {
		op := p.advance()
		right := p.parseExpression()
		return &ast.AssignmentExpression{
			Left:  left,
			Op:    op.Kind,
			Right: right,
			Pos:   left.Span().Extend(right.Span()),
		}
	}

	return left
}

func (p *Parser) parsePrecedence(minPrec int) ast.Expression {
	left := p.parseUnary()

	for {
		prec := tokenPrecedence(p.current().Kind)
		if prec < minPrec || prec == precNone {
			break
		}

		op := p.advance()
		right := p.parsePrecedence(prec + 1)
		left = &ast.BinaryExpression{
			Left:  left,
			Op:    op.Kind,
			Right: right,
			Pos:   left.Span().Extend(right.Span()),
		}
	}

	return left
}

// parseUnary parses prefix operators
func (p *Parser) parseUnary() ast.Expression {
	tok := p.current()
	switch tok.Kind {
	case lexer.PLUS, lexer.MINUS, lexer.BANG, lexer.TILDE, lexer.INC, lexer.DEC:
		op := p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpression{
			Op:      op.Kind,
			Operand: operand,
			Pos:     op.Pos.Extend(operand.Span()),
		}
	}
	return p.parsePostfix()
}

// parsePostfix parses postfix ++/--, valid on identifier-calls only
func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parseChain()

	if p.check(lexer.INC) || p.check(lexer.DEC) {
		if _, ok := expr.(*ast.IdentifierCall); ok {
			op := p.advance()
			return &ast.UnaryExpression{
				Op:        op.Kind,
				Operand:   expr,
				IsPostfix: true,
				Pos:       expr.Span().Extend(op.Pos),
			}
		}
	}

	return expr
}

// parseChain parses a primary expression followed by chained member
// access, calls, and index suffixes, building a left-leaning chain.
func (p *Parser) parseChain() ast.Expression {
	expr := p.parsePrimary()

	for {
		switch p.current().Kind {
		case lexer.DOT:
			p.advance()
			name, ok := p.assertName("member name")
			if !ok {
				return expr
			}
			if p.check(lexer.LPAREN) {
				p.advance()
				args := p.parseArgList()
				p.assert(lexer.RPAREN)
				expr = &ast.FunctionCall{
					Previous: expr,
					Name:     name.Literal,
					Args:     args,
					Pos:      expr.Span().Extend(name.Pos),
				}
			} else {
				expr = &ast.IdentifierCall{
					Previous: expr,
					Name:     name.Literal,
					Pos:      expr.Span().Extend(name.Pos),
				}
			}

		case lexer.LBRACKET:
			p.advance()
			index := p.parseExpression()
			end, _ := p.assert(lexer.RBRACKET)
			expr = &ast.IndexExpression{
				Previous: expr,
				Index:    index,
				Pos:      expr.Span().Extend(end.Pos),
			}

		default:
			return expr
		}
	}
}

// parsePrimary parses a primary expression
func (p *Parser) parsePrimary() ast.Expression {
	tok := p.current()

	switch tok.Kind {
	case lexer.INT_LIT:
		p.advance()
		value, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.diags.Errorf(tok.Pos, "integer literal '%s' out of range", tok.Literal)
		}
		return &ast.IntLiteral{Value: value, Raw: tok.Literal, Pos: tok.Pos}

	case lexer.FLOAT_LIT:
		p.advance()
		raw := strings.TrimSuffix(tok.Literal, "D")
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			p.diags.Errorf(tok.Pos, "float literal '%s' out of range", tok.Literal)
		}
		return &ast.FloatLiteral{Value: value, Raw: tok.Literal, Pos: tok.Pos}

	case lexer.CHAR_LIT:
		p.advance()
		var value rune
		for _, r := range tok.Literal {
			value = r
			break
		}
		return &ast.CharLiteral{Value: value, Pos: tok.Pos}

	case lexer.STRING_LIT:
		p.advance()
		return &ast.StringLiteral{Value: tok.Literal, Pos: tok.Pos}

	case lexer.LPAREN:
		p.advance()
		inner := p.parseExpression()
		end, _ := p.assert(lexer.RPAREN)
		return &ast.ParenthesizedExpression{Inner: inner, Pos: tok.Pos.Extend(end.Pos)}

	case lexer.COLON:
		// Inferred-type array initialization: :{e1, ...} or :[e1, ...]
		return p.parseInferredArrayInit()

	case lexer.IDENT:
		switch tok.Literal {
		case "true", "false":
			p.advance()
			return &ast.BoolLiteral{Value: tok.Literal == "true", Pos: tok.Pos}
		case "null":
			p.advance()
			return &ast.NullLiteral{Pos: tok.Pos}
		case "self":
			p.advance()
			return &ast.IdentifierCall{Name: "self", Pos: tok.Pos}
		case "new":
			return p.parseConstructorCall()
		}
		if tok.IsReserved() {
			break
		}
		return p.parseIdentifierExpression()
	}

	p.diags.Errorf(tok.Pos, "unexpected token %s in expression", describe(tok))
	p.advance()
	return &ast.IdentifierCall{Name: "<error>", Pos: tok.Pos}
}

// parseConstructorCall parses: "new" QualifiedName "(" args ")"
func (p *Parser) parseConstructorCall() *ast.ConstructorCall {
	kw, _ := p.assertKw("new")
	ownerRef := p.parseQualifiedName()
	p.assert(lexer.LPAREN)
	args := p.parseArgList()
	end, _ := p.assert(lexer.RPAREN)

	pos := kw.Pos.Extend(end.Pos)
	return &ast.ConstructorCall{
		OwnerRef: ownerRef,
		Args:     args,
		Pos:      pos,
	}
}

// parseQualifiedName parses: Name { "::" Name }
func (p *Parser) parseQualifiedName() *ast.Reference {
	name, ok := p.assertName("class name")
	if !ok {
		return nil
	}
	segments := []string{name.Literal}
	toks := []lexer.Token{name}
	pos := name.Pos
	for p.check(lexer.DOUBLE_COLON) && p.peek().Kind == lexer.IDENT && !p.peek().IsReserved() {
		p.advance()
		seg := p.advance()
		segments = append(segments, seg.Literal)
		toks = append(toks, seg)
		pos = pos.Extend(seg.Pos)
	}
	return ast.NewReference(segments, pos, toks)
}

// parseIdentifierExpression parses expressions that begin with a plain
// identifier: variable and field access, calls, companion paths via
// "::", and typed array syntax via ":".
func (p *Parser) parseIdentifierExpression() ast.Expression {
	name := p.advance()
	segments := []string{name.Literal}
	toks := []lexer.Token{name}
	pos := name.Pos

	for p.check(lexer.DOUBLE_COLON) && p.peek().Kind == lexer.IDENT && !p.peek().IsReserved() {
		p.advance()
		seg := p.advance()
		segments = append(segments, seg.Literal)
		toks = append(toks, seg)
		pos = pos.Extend(seg.Pos)
	}

	// Typed array syntax: TypeRef ":" "[" ...
	if p.check(lexer.COLON) && p.peek().Kind == lexer.LBRACKET {
		baseRef := ast.NewReference(segments, pos, toks)
		return p.parseTypedArray(baseRef)
	}

	if p.check(lexer.LPAREN) {
		p.advance()
		args := p.parseArgList()
		end, _ := p.assert(lexer.RPAREN)

		call := &ast.FunctionCall{
			Name: segments[len(segments)-1],
			Args: args,
			Pos:  pos.Extend(end.Pos),
		}
		if len(segments) > 1 {
			call.OwnerRef = ast.NewReference(segments[:len(segments)-1], pos, toks[:len(toks)-1])
			call.InCompanion = true
		}
		return call
	}

	ident := &ast.IdentifierCall{
		Name: segments[len(segments)-1],
		Pos:  pos,
	}
	if len(segments) > 1 {
		ident.OwnerRef = ast.NewReference(segments[:len(segments)-1], pos, toks[:len(toks)-1])
	}
	return ident
}

// parseInferredArrayInit parses: ":" "{" Exprs "}" | ":" "[" Exprs "]"
func (p *Parser) parseInferredArrayInit() *ast.ArrayInitialization {
	colon := p.advance()

	var closer lexer.TokenKind
	switch p.current().Kind {
	case lexer.LBRACE:
		closer = lexer.RBRACE
	case lexer.LBRACKET:
		closer = lexer.RBRACKET
	default:
		tok := p.current()
		p.diags.Errorf(tok.Pos, "expected '{' or '[' after ':', got %s", describe(tok))
		return &ast.ArrayInitialization{Pos: colon.Pos}
	}
	p.advance()

	var elements []ast.Expression
	for !p.check(closer) && !p.atEOF() {
		elements = append(elements, p.parseExpression())
		if !p.match(lexer.COMMA) {
			break
		}
	}
	end, _ := p.assert(closer)

	return &ast.ArrayInitialization{
		Elements: elements,
		Pos:      colon.Pos.Extend(end.Pos),
	}
}

// parseTypedArray parses, after TypeRef ":":
//
//	"[" Expr? "]" { "[" Expr? "]" } "{" Exprs? "}"
//
// Nonempty dimensions produce an ArrayDeclaration; empty dimensions a
// typed ArrayInitialization over the element list.
func (p *Parser) parseTypedArray(baseRef *ast.Reference) ast.Expression {
	p.advance() // ':'

	var dims []ast.Expression
	groups := 0
	for p.check(lexer.LBRACKET) {
		p.advance()
		groups++
		if p.check(lexer.RBRACKET) {
			dims = append(dims, nil)
		} else {
			dims = append(dims, p.parseExpression())
		}
		p.assert(lexer.RBRACKET)
	}

	sized := false
	for _, d := range dims {
		if d != nil {
			sized = true
		}
	}

	var elements []ast.Expression
	endPos := p.current().Pos
	if _, ok := p.assert(lexer.LBRACE); ok {
		for !p.check(lexer.RBRACE) && !p.atEOF() {
			elements = append(elements, p.parseExpression())
			if !p.match(lexer.COMMA) {
				break
			}
		}
		end, _ := p.assert(lexer.RBRACE)
		endPos = end.Pos
	}

	if sized {
		if len(elements) > 0 {
			p.diags.Errorf(endPos, "sized array declaration cannot carry initializer elements")
		}
		return &ast.ArrayDeclaration{
			BaseTypeRef: baseRef,
			Dimensions:  dims,
			Pos:         baseRef.Pos.Extend(endPos),
		}
	}

	// Empty dimensions: the element type is the base with one bracket
	// group fewer than written.
	elemRef := baseRef
	for i := 1; i < groups; i++ {
		elemRef = &ast.Reference{
			Path: elemRef.Path + "[]",
			Name: elemRef.Name + "[]",
			Pos:  elemRef.Pos,
		}
	}
	return &ast.ArrayInitialization{
		InferTypeRef: elemRef,
		Elements:     elements,
		Pos:          baseRef.Pos.Extend(endPos),
	}
}

// parseArgList parses a comma-separated argument list
func (p *Parser) parseArgList() []ast.Expression {
	var args []ast.Expression
	if p.check(lexer.RPAREN) {
		return args
	}
	args = append(args, p.parseExpression())
	for p.match(lexer.COMMA) {
		args = append(args, p.parseExpression())
	}
	return args
}
