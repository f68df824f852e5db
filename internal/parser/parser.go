package parser

import (
	"github.com/ChAoSUnItY/Yakou/internal/ast"
	"github.com/ChAoSUnItY/Yakou/internal/lexer"
	"github.com/ChAoSUnItY/Yakou/internal/types"
)

// accessors maps reserved accessor words to their access levels
var accessors = map[string]types.Access{
	"pub":  types.AccessPub,
	"prot": types.AccessProt,
	"intl": types.AccessIntl,
	"priv": types.AccessPriv,
}

// Parse parses the token stream into a File AST. The parser never
// aborts on malformed input: structural errors are reported and parsing
// continues with the next usable token.
func (p *Parser) Parse() *ast.File {
	file := &ast.File{Path: p.path}

	if p.atEOF() {
		p.diags.Warningf(lexer.Position{}, "empty source")
		return file
	}

	var pkg *ast.Reference
	if p.checkKw("mod") {
		pkg = p.parsePackageDecl()
	}

	var usages []*ast.Usage
	for p.checkKw("use") {
		p.advance()
		usages = append(usages, p.parseUsageRefs(nil)...)
		p.match(lexer.SEMICOLON)
	}

	file.Clazz = p.parseClassDecl(pkg, usages)

	for p.checkKw("impl") {
		p.parseImplDecl(file.Clazz)
	}

	for !p.atEOF() {
		tok := p.current()
		p.diags.Errorf(tok.Pos, "unexpected token %s at top level", describe(tok))
		p.advance()
	}

	return file
}

// parsePackageDecl parses: mod a.b.c
func (p *Parser) parsePackageDecl() *ast.Reference {
	tok, _ := p.assertKw("mod")
	name, ok := p.assertName("package name")
	if !ok {
		return nil
	}
	segments := []string{name.Literal}
	toks := []lexer.Token{name}
	pos := tok.Pos.Extend(name.Pos)
	for p.match(lexer.DOT) {
		seg, ok := p.assertName("package name")
		if !ok {
			break
		}
		segments = append(segments, seg.Literal)
		toks = append(toks, seg)
		pos = pos.Extend(seg.Pos)
	}
	return ast.NewReference(segments, pos, toks)
}

// parseUsageRefs parses: Name { "::" Name } [ "::" "{" UsageRef { "," UsageRef } "}" ] [ "as" Name ]
// A brace group expands into one usage per leaf.
func (p *Parser) parseUsageRefs(prefix []string) []*ast.Usage {
	segments := append([]string(nil), prefix...)
	var toks []lexer.Token

	name, ok := p.assertName("usage path")
	if !ok {
		return nil
	}
	segments = append(segments, name.Literal)
	toks = append(toks, name)
	pos := name.Pos

	for p.check(lexer.DOUBLE_COLON) {
		if p.peek().Kind == lexer.LBRACE {
			p.advance() // '::'
			p.advance() // '{'
			var usages []*ast.Usage
			for !p.check(lexer.RBRACE) && !p.atEOF() {
				usages = append(usages, p.parseUsageRefs(segments)...)
				if !p.match(lexer.COMMA) {
					break
				}
			}
			p.assert(lexer.RBRACE)
			return usages
		}
		p.advance() // '::'
		seg, ok := p.assertName("usage path")
		if !ok {
			break
		}
		segments = append(segments, seg.Literal)
		toks = append(toks, seg)
		pos = pos.Extend(seg.Pos)
	}

	alias := ""
	if p.matchKw("as") {
		aliasTok, ok := p.assertName("usage alias")
		if ok {
			alias = aliasTok.Literal
			pos = pos.Extend(aliasTok.Pos)
		}
	}

	return []*ast.Usage{{
		Ref:   ast.NewReference(segments, pos, toks),
		Alias: alias,
		Pos:   pos,
	}}
}

// parseAccessor consumes an optional accessor keyword. It reports
// explicit 'pub' as redundant.
func (p *Parser) parseAccessor() (types.Access, bool) {
	tok := p.current()
	if tok.Kind != lexer.IDENT {
		return types.AccessPub, false
	}
	access, ok := accessors[tok.Literal]
	if !ok {
		return types.AccessPub, false
	}
	p.advance()
	if access == types.AccessPub {
		p.diags.Warningf(tok.Pos, "redundant 'pub': declarations are public by default")
	}
	return access, true
}

// parseClassDecl parses: [Accessor] "class" Name [ "{" fields "}" ]
func (p *Parser) parseClassDecl(pkg *ast.Reference, usages []*ast.Usage) *ast.Class {
	access, _ := p.parseAccessor()
	kw, ok := p.assertKw("class")
	if !ok {
		return &ast.Class{Pkg: pkg, Usages: usages, Access: access, Name: "<error>", Pos: kw.Pos}
	}
	name, ok := p.assertName("class name")
	clazz := &ast.Class{
		Pkg:    pkg,
		Usages: usages,
		Access: access,
		Name:   name.Literal,
		Pos:    kw.Pos.Extend(name.Pos),
	}
	if !ok {
		clazz.Name = "<error>"
	}

	if p.match(lexer.LBRACE) {
		seen := make(map[fieldBlockKey]bool)
		p.parseFieldBlocks(clazz, false, seen)
		p.assert(lexer.RBRACE)
	}
	return clazz
}

// fieldBlockKey identifies one (access, mut) combination per class or
// companion scope.
type fieldBlockKey struct {
	access types.Access
	mut    bool
	comp   bool
}

// parseFieldBlocks parses the body of a class (or of a companion block
// inside it): access/mut block headers followed by field declarations.
func (p *Parser) parseFieldBlocks(clazz *ast.Class, comp bool, seen map[fieldBlockKey]bool) {
	access := types.AccessPub
	mut := false
	sawComp := false

	for !p.check(lexer.RBRACE) && !p.atEOF() {
		tok := p.current()

		switch {
		case tok.IsKeyword("comp"):
			p.advance()
			if comp {
				p.diags.Errorf(tok.Pos, "companion blocks cannot nest")
			} else if sawComp {
				p.diags.Warningf(tok.Pos, "duplicate companion block")
			}
			sawComp = true
			if _, ok := p.assert(lexer.LBRACE); ok {
				p.parseFieldBlocks(clazz, true, seen)
				p.assert(lexer.RBRACE)
			}

		case tok.Kind == lexer.IDENT && (tok.Literal == "mut" || accessors[tok.Literal] != types.AccessPub || tok.Literal == "pub"):
			// Block header: accessor and mut in either order, ending with ':'
			access, mut = p.parseFieldBlockHeader()
			key := fieldBlockKey{access: access, mut: mut, comp: comp}
			if seen[key] {
				hint := "merge the fields into the earlier block"
				msg := "duplicate access block"
				p.diags.ErrorWithHint(tok.Pos, msg, hint)
			}
			seen[key] = true

		case tok.Kind == lexer.IDENT && !tok.IsReserved():
			field := p.parseFieldDecl(clazz, access, mut, comp)
			if field != nil {
				clazz.Fields = append(clazz.Fields, field)
			}
			p.match(lexer.COMMA)

		default:
			p.diags.Errorf(tok.Pos, "unexpected token %s in class body", describe(tok))
			p.advance()
		}
	}
}

// parseFieldBlockHeader parses: { accessor | "mut" } ":"
func (p *Parser) parseFieldBlockHeader() (types.Access, bool) {
	access := types.AccessPub
	accessSet := false
	mut := false

	for {
		tok := p.current()
		if tok.IsKeyword("mut") {
			if mut {
				p.diags.Errorf(tok.Pos, "duplicate 'mut' modifier")
			}
			mut = true
			p.advance()
			continue
		}
		if tok.Kind == lexer.IDENT {
			if a, ok := accessors[tok.Literal]; ok {
				if accessSet {
					p.diags.Errorf(tok.Pos, "duplicate access modifier '%s'", tok.Literal)
				} else if a == types.AccessPub {
					p.diags.Warningf(tok.Pos, "redundant 'pub': declarations are public by default")
				}
				access = a
				accessSet = true
				p.advance()
				continue
			}
		}
		break
	}

	p.assert(lexer.COLON)
	return access, mut
}

// parseFieldDecl parses: Name ":" Type
func (p *Parser) parseFieldDecl(clazz *ast.Class, access types.Access, mut, comp bool) *ast.Field {
	name, ok := p.assertName("field name")
	if !ok {
		return nil
	}
	p.assert(lexer.COLON)
	typeRef := p.parseTypeRef()
	pos := name.Pos
	if typeRef != nil {
		pos = pos.Extend(typeRef.Pos)
	}
	return &ast.Field{
		Owner:   clazz,
		Access:  access,
		Mut:     mut,
		Comp:    comp,
		Name:    name.Literal,
		TypeRef: typeRef,
		Pos:     pos,
	}
}

// parseTypeRef parses: Name { "::" Name } { "[" "]" }
// Array suffixes are appended to the reference text and decomposed by
// type resolution.
func (p *Parser) parseTypeRef() *ast.Reference {
	name, ok := p.assertName("type name")
	if !ok {
		return nil
	}
	segments := []string{name.Literal}
	toks := []lexer.Token{name}
	pos := name.Pos
	for p.check(lexer.DOUBLE_COLON) && p.peek().Kind == lexer.IDENT {
		p.advance()
		seg := p.advance()
		segments = append(segments, seg.Literal)
		toks = append(toks, seg)
		pos = pos.Extend(seg.Pos)
	}
	ref := ast.NewReference(segments, pos, toks)
	for p.check(lexer.LBRACKET) && p.peek().Kind == lexer.RBRACKET {
		p.advance()
		end := p.advance()
		ref.Path += "[]"
		ref.Name += "[]"
		ref.Pos = ref.Pos.Extend(end.Pos)
	}
	return ref
}

// parseImplDecl parses: "impl" Name "{" members "}" and appends the
// members to the class.
func (p *Parser) parseImplDecl(clazz *ast.Class) {
	p.assertKw("impl")
	name, ok := p.assertName("class name")
	if ok && clazz != nil && name.Literal != clazz.Name {
		p.diags.Errorf(name.Pos, "impl block for unknown class '%s'", name.Literal)
	}
	if _, ok := p.assert(lexer.LBRACE); !ok {
		return
	}
	p.parseMembers(clazz, false)
	p.assert(lexer.RBRACE)
}

// parseMembers parses modifier-prefixed member declarations inside an
// impl brace group. Modifiers reset after each declaration.
func (p *Parser) parseMembers(clazz *ast.Class, comp bool) {
	sawComp := false

	for !p.check(lexer.RBRACE) && !p.atEOF() {
		access := types.AccessPub
		accessSet := false
		mut := false
		compMod := false

	modifiers:
		for {
			tok := p.current()
			switch {
			case tok.IsKeyword("pub"), tok.IsKeyword("prot"), tok.IsKeyword("intl"), tok.IsKeyword("priv"):
				a := accessors[tok.Literal]
				if accessSet {
					p.diags.Errorf(tok.Pos, "duplicate access modifier '%s'", tok.Literal)
				} else if mut {
					p.diags.Errorf(tok.Pos, "access modifier '%s' must precede 'mut'", tok.Literal)
				} else if a == types.AccessPub {
					p.diags.Warningf(tok.Pos, "redundant 'pub': declarations are public by default")
				}
				access = a
				accessSet = true
				p.advance()

			case tok.IsKeyword("mut"):
				if mut {
					p.diags.Errorf(tok.Pos, "duplicate 'mut' modifier")
				}
				mut = true
				p.advance()

			case tok.IsKeyword("comp"):
				p.advance()
				if p.check(lexer.LBRACE) {
					if comp {
						p.diags.Errorf(tok.Pos, "companion blocks cannot nest")
					} else if sawComp {
						p.diags.Warningf(tok.Pos, "duplicate companion block")
					}
					sawComp = true
					p.advance()
					p.parseMembers(clazz, true)
					p.assert(lexer.RBRACE)
					break modifiers
				}
				if compMod || comp {
					p.diags.Errorf(tok.Pos, "duplicate 'comp' modifier")
				}
				compMod = true

			case tok.IsKeyword("new"):
				ctor := p.parseConstructorDecl(clazz, access, mut, comp || compMod)
				if ctor != nil && clazz != nil {
					clazz.Constructors = append(clazz.Constructors, ctor)
				}
				break modifiers

			case tok.IsKeyword("fn"):
				fn := p.parseFunctionDecl(clazz, access, mut, comp || compMod)
				if fn != nil && clazz != nil {
					clazz.Functions = append(clazz.Functions, fn)
				}
				break modifiers

			default:
				p.diags.Errorf(tok.Pos, "unexpected token %s in impl body", describe(tok))
				p.advance()
				break modifiers
			}
		}
	}
}

// parseConstructorDecl parses: "new" "(" params ")" "{" statements "}"
func (p *Parser) parseConstructorDecl(clazz *ast.Class, access types.Access, mut, comp bool) *ast.Constructor {
	kw, _ := p.assertKw("new")
	if comp {
		p.diags.Errorf(kw.Pos, "constructors are not allowed in companion blocks")
	}
	if mut {
		p.diags.Errorf(kw.Pos, "constructors cannot be 'mut'")
	}
	p.assert(lexer.LPAREN)
	params := p.parseParamList()
	p.assert(lexer.RPAREN)
	stmts := p.parseStatementBlock()

	return &ast.Constructor{
		Owner:  clazz,
		Access: access,
		Params: params,
		Stmts:  stmts,
		Pos:    kw.Pos,
	}
}

// parseFunctionDecl parses: "fn" Name "(" params ")" [ ":" Type ] "{" statements "}"
func (p *Parser) parseFunctionDecl(clazz *ast.Class, access types.Access, mut, comp bool) *ast.Function {
	kw, _ := p.assertKw("fn")
	name, ok := p.assertName("function name")
	if !ok {
		return nil
	}
	p.assert(lexer.LPAREN)
	params := p.parseParamList()
	p.assert(lexer.RPAREN)

	var retTypeRef *ast.Reference
	if p.match(lexer.COLON) {
		retTypeRef = p.parseTypeRef()
	}

	stmts := p.parseStatementBlock()

	return &ast.Function{
		Owner:      clazz,
		Access:     access,
		Mut:        mut,
		Comp:       comp,
		Name:       name.Literal,
		Params:     params,
		RetTypeRef: retTypeRef,
		Stmts:      stmts,
		Pos:        kw.Pos.Extend(name.Pos),
	}
}

// parseParamList parses a comma-separated list of parameters
func (p *Parser) parseParamList() []*ast.Parameter {
	var params []*ast.Parameter
	if p.check(lexer.RPAREN) {
		return params
	}

	for {
		param := p.parseParam()
		if param != nil {
			params = append(params, param)
		}
		if !p.match(lexer.COMMA) {
			break
		}
	}
	return params
}

// parseParam parses: [ "mut" ] Name ":" Type
func (p *Parser) parseParam() *ast.Parameter {
	mut := p.matchKw("mut")
	name, ok := p.assertName("parameter name")
	if !ok {
		return nil
	}
	p.assert(lexer.COLON)
	typeRef := p.parseTypeRef()
	return &ast.Parameter{
		Mut:     mut,
		Name:    name.Literal,
		TypeRef: typeRef,
		Pos:     name.Pos,
	}
}

// parseStatementBlock parses: "{" statement* "}"
func (p *Parser) parseStatementBlock() []ast.Statement {
	if _, ok := p.assert(lexer.LBRACE); !ok {
		return nil
	}
	var stmts []ast.Statement
	for !p.check(lexer.RBRACE) && !p.atEOF() {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.assert(lexer.RBRACE)
	return stmts
}

// parseStatement parses a statement
func (p *Parser) parseStatement() ast.Statement {
	tok := p.current()
	switch {
	case tok.IsKeyword("return"):
		return p.parseReturnStatement()
	case tok.IsKeyword("if"):
		return p.parseIfStatement()
	case tok.IsKeyword("for"):
		return p.parseForStatement()
	case tok.Kind == lexer.LBRACE:
		return p.parseBlockStatement()
	case tok.IsKeyword("mut"):
		return p.parseVariableDeclaration()
	case tok.Kind == lexer.IDENT && !tok.IsReserved() && p.peek().Kind == lexer.DECLARE:
		return p.parseVariableDeclaration()
	default:
		expr := p.parseExpression()
		return &ast.ExpressionStatement{Expr: expr, Pos: expr.Span()}
	}
}

// parseVariableDeclaration parses: [ "mut" ] Name ":=" Expr
func (p *Parser) parseVariableDeclaration() *ast.VariableDeclaration {
	tok := p.current()
	mut := p.matchKw("mut")
	name, _ := p.assertName("variable name")
	p.assert(lexer.DECLARE)
	expr := p.parseExpression()

	return &ast.VariableDeclaration{
		Mut:  mut,
		Name: name.Literal,
		Expr: expr,
		Pos:  tok.Pos.Extend(expr.Span()),
	}
}

// parseReturnStatement parses: "return" [ Expr ]
func (p *Parser) parseReturnStatement() *ast.ReturnStatement {
	kw, _ := p.assertKw("return")
	stmt := &ast.ReturnStatement{Pos: kw.Pos}

	tok := p.current()
	if tok.Kind == lexer.RBRACE || tok.Kind == lexer.EOF || tok.IsKeyword("else") ||
		tok.IsKeyword("return") || tok.IsKeyword("if") || tok.IsKeyword("for") || tok.IsKeyword("mut") {
		return stmt
	}
	stmt.Expr = p.parseExpression()
	stmt.Pos = kw.Pos.Extend(stmt.Expr.Span())
	return stmt
}

// parseIfStatement parses: "if" Expr Stmt [ "else" Stmt ]
func (p *Parser) parseIfStatement() *ast.IfStatement {
	kw, _ := p.assertKw("if")
	cond := p.parseExpression()
	then := p.parseStatement()

	var elseStmt ast.Statement
	if p.matchKw("else") {
		elseStmt = p.parseStatement()
	}

	return &ast.IfStatement{
		Cond: cond,
		Then: then,
		Else: elseStmt,
		Pos:  kw.Pos,
	}
}

// parseForStatement parses: "for" Stmt ";" Expr? ";" Expr Stmt
func (p *Parser) parseForStatement() *ast.JForStatement {
	kw, _ := p.assertKw("for")

	var init ast.Statement
	if !p.check(lexer.SEMICOLON) {
		init = p.parseStatement()
	}
	p.assert(lexer.SEMICOLON)

	var cond ast.Expression
	if !p.check(lexer.SEMICOLON) {
		cond = p.parseExpression()
	}
	p.assert(lexer.SEMICOLON)

	post := p.parseExpression()
	body := p.parseStatement()

	return &ast.JForStatement{
		Init: init,
		Cond: cond,
		Post: post,
		Body: body,
		Pos:  kw.Pos,
	}
}

// parseBlockStatement parses: "{" Stmt* "}"
func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	tok := p.current()
	stmts := p.parseStatementBlock()
	return &ast.BlockStatement{Stmts: stmts, Pos: tok.Pos}
}
