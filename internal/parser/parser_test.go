package parser

import (
	"strings"
	"testing"

	"github.com/ChAoSUnItY/Yakou/internal/ast"
	"github.com/ChAoSUnItY/Yakou/internal/lexer"
	"github.com/ChAoSUnItY/Yakou/internal/types"
)

func parse(t *testing.T, source string) *ast.File {
	t.Helper()
	p := New("test.yk", source)
	file := p.Parse()
	if p.Diagnostics().HasErrors() {
		t.Fatalf("unexpected errors: %s", p.Diagnostics().Format("test"))
	}
	return file
}

func parseWithErrors(t *testing.T, source string) (*ast.File, *Parser) {
	t.Helper()
	p := New("test.yk", source)
	file := p.Parse()
	return file, p
}

func hasDiagnostic(p *Parser, fragment string) bool {
	for _, d := range p.Diagnostics().All() {
		if strings.Contains(d.Message, fragment) {
			return true
		}
	}
	return false
}

func TestParsePackageAndUsages(t *testing.T) {
	file := parse(t, `mod a.b use c::{D, E as F} class G`)

	clazz := file.Clazz
	if clazz == nil {
		t.Fatal("expected class declaration")
	}
	if clazz.Pkg == nil || clazz.Pkg.Path != "a/b" {
		t.Fatalf("expected package path 'a/b', got %+v", clazz.Pkg)
	}
	if len(clazz.Usages) != 2 {
		t.Fatalf("expected 2 usages, got %d", len(clazz.Usages))
	}
	if clazz.Usages[0].Ref.Path != "c/D" || clazz.Usages[0].Alias != "" {
		t.Errorf("unexpected first usage: %+v", clazz.Usages[0])
	}
	if clazz.Usages[1].Ref.Path != "c/E" || clazz.Usages[1].Alias != "F" {
		t.Errorf("unexpected second usage: %+v", clazz.Usages[1])
	}
	if clazz.Usages[1].SimpleName() != "F" {
		t.Errorf("aliased usage must resolve by alias, got %q", clazz.Usages[1].SimpleName())
	}
	if ref := clazz.Reference(); ref.Path != "a/b/G" {
		t.Errorf("expected class path 'a/b/G', got %q", ref.Path)
	}
	if len(clazz.Fields)+len(clazz.Functions)+len(clazz.Constructors) != 0 {
		t.Error("expected no members")
	}
}

func TestParseFieldBlocks(t *testing.T) {
	file := parse(t, `class X { pub: a: i32, mut priv: b: i64 }`)

	fields := file.Clazz.Fields
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	a := fields[0]
	if a.Name != "a" || a.Access != types.AccessPub || a.Mut || a.Comp {
		t.Errorf("unexpected field a: %+v", a)
	}
	if a.TypeRef.Name != "i32" {
		t.Errorf("expected type ref i32, got %q", a.TypeRef.Name)
	}

	b := fields[1]
	if b.Name != "b" || b.Access != types.AccessPriv || !b.Mut {
		t.Errorf("unexpected field b: %+v", b)
	}
	if b.TypeRef.Name != "i64" {
		t.Errorf("expected type ref i64, got %q", b.TypeRef.Name)
	}
}

func TestParseCompanionFieldBlock(t *testing.T) {
	file := parse(t, `class X { comp { a: i32 } priv: b: i32 }`)

	fields := file.Clazz.Fields
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if !fields[0].Comp {
		t.Error("field a must be a companion field")
	}
	if fields[1].Comp {
		t.Error("field b must not be a companion field")
	}
}

func TestDuplicateAccessBlock(t *testing.T) {
	_, p := parseWithErrors(t, `class X { priv: a: i32, priv: b: i32 }`)
	if !hasDiagnostic(p, "duplicate access block") {
		t.Errorf("expected duplicate access block error, got: %s", p.Diagnostics().Format("test"))
	}
}

func TestRedundantPubWarning(t *testing.T) {
	_, p := parseWithErrors(t, `pub class X`)
	if p.Diagnostics().HasErrors() {
		t.Fatalf("unexpected errors: %s", p.Diagnostics().Format("test"))
	}
	if !hasDiagnostic(p, "redundant 'pub'") {
		t.Errorf("expected redundant pub warning, got: %s", p.Diagnostics().Format("test"))
	}
}

func TestParseImplMembers(t *testing.T) {
	file := parse(t, `class X impl X {
		new(a: i32) {}
		priv fn f(mut x: i64, y: str): i32 { return 0 }
		comp {
			fn g() {}
		}
	}`)

	clazz := file.Clazz
	if len(clazz.Constructors) != 1 {
		t.Fatalf("expected 1 constructor, got %d", len(clazz.Constructors))
	}
	ctor := clazz.Constructors[0]
	if len(ctor.Params) != 1 || ctor.Params[0].Name != "a" {
		t.Errorf("unexpected constructor params: %+v", ctor.Params)
	}

	if len(clazz.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(clazz.Functions))
	}
	f := clazz.Functions[0]
	if f.Name != "f" || f.Access != types.AccessPriv || f.Comp {
		t.Errorf("unexpected function f: %+v", f)
	}
	if len(f.Params) != 2 || !f.Params[0].Mut || f.Params[0].Name != "x" {
		t.Errorf("unexpected params of f: %+v", f.Params)
	}
	if f.RetTypeRef == nil || f.RetTypeRef.Name != "i32" {
		t.Errorf("expected return type ref i32, got %+v", f.RetTypeRef)
	}

	g := clazz.Functions[1]
	if g.Name != "g" || !g.Comp {
		t.Errorf("expected companion function g, got %+v", g)
	}
	if g.RetTypeRef != nil {
		t.Error("g must have no declared return type")
	}
}

func TestNestedCompanionBlockIsError(t *testing.T) {
	_, p := parseWithErrors(t, `class X impl X { comp { comp { fn g() {} } } }`)
	if !hasDiagnostic(p, "companion blocks cannot nest") {
		t.Errorf("expected nested companion error, got: %s", p.Diagnostics().Format("test"))
	}
}

func TestConstructorInCompanionBlockIsError(t *testing.T) {
	_, p := parseWithErrors(t, `class X impl X { comp { new() {} } }`)
	if !hasDiagnostic(p, "constructors are not allowed in companion blocks") {
		t.Errorf("expected constructor-in-companion error, got: %s", p.Diagnostics().Format("test"))
	}
}

func TestMutConstructorIsError(t *testing.T) {
	_, p := parseWithErrors(t, `class X impl X { mut new() {} }`)
	if !hasDiagnostic(p, "constructors cannot be 'mut'") {
		t.Errorf("expected mut constructor error, got: %s", p.Diagnostics().Format("test"))
	}
}

func TestAccessAfterMutIsError(t *testing.T) {
	_, p := parseWithErrors(t, `class X impl X { mut priv fn f() {} }`)
	if !hasDiagnostic(p, "must precede 'mut'") {
		t.Errorf("expected ordering error, got: %s", p.Diagnostics().Format("test"))
	}
}

func TestParseStatements(t *testing.T) {
	file := parse(t, `class X impl X {
		fn f() {
			mut i := 0
			if i < 10 { i = i + 1 } else i = 0
			for mut j := 0; j < 3; j++ {
				i = i + j
			}
			return
		}
	}`)

	stmts := file.Clazz.Functions[0].Stmts
	if len(stmts) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(stmts))
	}

	decl, ok := stmts[0].(*ast.VariableDeclaration)
	if !ok || !decl.Mut || decl.Name != "i" {
		t.Errorf("unexpected first statement: %+v", stmts[0])
	}

	ifStmt, ok := stmts[1].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected if statement, got %T", stmts[1])
	}
	if _, ok := ifStmt.Then.(*ast.BlockStatement); !ok {
		t.Errorf("expected block then-branch, got %T", ifStmt.Then)
	}
	if ifStmt.Else == nil {
		t.Error("expected else branch")
	}

	forStmt, ok := stmts[2].(*ast.JForStatement)
	if !ok {
		t.Fatalf("expected for statement, got %T", stmts[2])
	}
	if _, ok := forStmt.Init.(*ast.VariableDeclaration); !ok {
		t.Errorf("expected variable declaration init, got %T", forStmt.Init)
	}
	if forStmt.Cond == nil || forStmt.Post == nil {
		t.Error("expected condition and post expressions")
	}
	if post, ok := forStmt.Post.(*ast.UnaryExpression); !ok || !post.IsPostfix {
		t.Errorf("expected postfix post expression, got %+v", forStmt.Post)
	}

	ret, ok := stmts[3].(*ast.ReturnStatement)
	if !ok || ret.Expr != nil {
		t.Errorf("expected bare return, got %+v", stmts[3])
	}
}

func parseExprStatement(t *testing.T, expr string) ast.Expression {
	t.Helper()
	file := parse(t, `class X impl X { fn f() { `+expr+` } }`)
	stmts := file.Clazz.Functions[0].Stmts
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	es, ok := stmts[0].(*ast.ExpressionStatement)
	if !ok {
		t.Fatalf("expected expression statement, got %T", stmts[0])
	}
	return es.Expr
}

func TestPrecedence(t *testing.T) {
	expr := parseExprStatement(t, `a = 1 + 2 * 3`)

	assign, ok := expr.(*ast.AssignmentExpression)
	if !ok {
		t.Fatalf("expected assignment, got %T", expr)
	}
	sum, ok := assign.Right.(*ast.BinaryExpression)
	if !ok || sum.Op.String() != "'+'" {
		t.Fatalf("expected '+' at the top, got %+v", assign.Right)
	}
	if _, ok := sum.Left.(*ast.IntLiteral); !ok {
		t.Errorf("expected literal on the left of '+', got %T", sum.Left)
	}
	product, ok := sum.Right.(*ast.BinaryExpression)
	if !ok || product.Op.String() != "'*'" {
		t.Errorf("expected '*' nested under '+', got %+v", sum.Right)
	}
}

func TestLogicalAndBitwisePrecedence(t *testing.T) {
	expr := parseExprStatement(t, `a | b & c == d`)

	// equality binds looser than the bitwise operators
	eq, ok := expr.(*ast.BinaryExpression)
	if !ok || eq.Op.String() != "'=='" {
		t.Fatalf("expected '==' at the top, got %+v", expr)
	}
	or, ok := eq.Left.(*ast.BinaryExpression)
	if !ok || or.Op.String() != "'|'" {
		t.Fatalf("expected '|' under '==', got %+v", eq.Left)
	}
	if and, ok := or.Right.(*ast.BinaryExpression); !ok || and.Op.String() != "'&'" {
		t.Errorf("expected '&' under '|', got %+v", or.Right)
	}
}

func TestAssignmentIsRightAssociative(t *testing.T) {
	expr := parseExprStatement(t, `a = b = c`)

	outer, ok := expr.(*ast.AssignmentExpression)
	if !ok {
		t.Fatalf("expected assignment, got %T", expr)
	}
	if _, ok := outer.Right.(*ast.AssignmentExpression); !ok {
		t.Errorf("expected nested assignment on the right, got %T", outer.Right)
	}
}

func TestChainedAccess(t *testing.T) {
	expr := parseExprStatement(t, `a.b.c(d)[0]`)

	index, ok := expr.(*ast.IndexExpression)
	if !ok {
		t.Fatalf("expected index at the top of the chain, got %T", expr)
	}
	call, ok := index.Previous.(*ast.FunctionCall)
	if !ok || call.Name != "c" || len(call.Args) != 1 {
		t.Fatalf("expected call to c, got %+v", index.Previous)
	}
	field, ok := call.Previous.(*ast.IdentifierCall)
	if !ok || field.Name != "b" {
		t.Fatalf("expected access to b, got %+v", call.Previous)
	}
	root, ok := field.Previous.(*ast.IdentifierCall)
	if !ok || root.Name != "a" || root.Previous != nil {
		t.Errorf("expected chain root a, got %+v", field.Previous)
	}
}

func TestCompanionPath(t *testing.T) {
	expr := parseExprStatement(t, `a::b::f(1)`)

	call, ok := expr.(*ast.FunctionCall)
	if !ok {
		t.Fatalf("expected function call, got %T", expr)
	}
	if call.Name != "f" || !call.InCompanion {
		t.Errorf("expected companion call to f, got %+v", call)
	}
	if call.OwnerRef == nil || call.OwnerRef.Path != "a/b" {
		t.Errorf("expected owner a/b, got %+v", call.OwnerRef)
	}
}

func TestCompanionFieldPath(t *testing.T) {
	expr := parseExprStatement(t, `Math::PI`)

	ident, ok := expr.(*ast.IdentifierCall)
	if !ok {
		t.Fatalf("expected identifier call, got %T", expr)
	}
	if ident.Name != "PI" || ident.OwnerRef == nil || ident.OwnerRef.Path != "Math" {
		t.Errorf("unexpected companion field access: %+v", ident)
	}
}

func TestConstructorCall(t *testing.T) {
	expr := parseExprStatement(t, `new a::B(1, 2)`)

	ctor, ok := expr.(*ast.ConstructorCall)
	if !ok {
		t.Fatalf("expected constructor call, got %T", expr)
	}
	if ctor.OwnerRef.Path != "a/B" || len(ctor.Args) != 2 {
		t.Errorf("unexpected constructor call: %+v", ctor)
	}
}

func TestPostfixOnlyOnIdentifiers(t *testing.T) {
	expr := parseExprStatement(t, `x++`)
	unary, ok := expr.(*ast.UnaryExpression)
	if !ok || !unary.IsPostfix {
		t.Fatalf("expected postfix unary, got %+v", expr)
	}
	if _, ok := unary.Operand.(*ast.IdentifierCall); !ok {
		t.Errorf("expected identifier operand, got %T", unary.Operand)
	}
}

func TestPrefixUnary(t *testing.T) {
	expr := parseExprStatement(t, `-~x`)
	neg, ok := expr.(*ast.UnaryExpression)
	if !ok || neg.IsPostfix {
		t.Fatalf("expected prefix unary, got %+v", expr)
	}
	if inv, ok := neg.Operand.(*ast.UnaryExpression); !ok || inv.Op.String() != "'~'" {
		t.Errorf("expected '~' nested under '-', got %+v", neg.Operand)
	}
}

func TestInferredArrayInitialization(t *testing.T) {
	for _, src := range []string{`a := :{1, 2, 3}`, `a := :[1, 2, 3]`} {
		file := parse(t, `class X impl X { fn f() { `+src+` } }`)
		decl := file.Clazz.Functions[0].Stmts[0].(*ast.VariableDeclaration)
		init, ok := decl.Expr.(*ast.ArrayInitialization)
		if !ok {
			t.Fatalf("%s: expected array initialization, got %T", src, decl.Expr)
		}
		if init.InferTypeRef != nil {
			t.Errorf("%s: expected inferred element type", src)
		}
		if len(init.Elements) != 3 {
			t.Errorf("%s: expected 3 elements, got %d", src, len(init.Elements))
		}
	}
}

func TestTypedArrayInitialization(t *testing.T) {
	file := parse(t, `class X impl X { fn f() { a := i32:[]{1, 2} } }`)
	decl := file.Clazz.Functions[0].Stmts[0].(*ast.VariableDeclaration)
	init, ok := decl.Expr.(*ast.ArrayInitialization)
	if !ok {
		t.Fatalf("expected array initialization, got %T", decl.Expr)
	}
	if init.InferTypeRef == nil || init.InferTypeRef.Name != "i32" {
		t.Errorf("expected declared element type i32, got %+v", init.InferTypeRef)
	}
	if len(init.Elements) != 2 {
		t.Errorf("expected 2 elements, got %d", len(init.Elements))
	}
}

func TestSizedArrayDeclaration(t *testing.T) {
	file := parse(t, `class X impl X { fn f() { a := i64:[2][3]{} } }`)
	decl := file.Clazz.Functions[0].Stmts[0].(*ast.VariableDeclaration)
	arr, ok := decl.Expr.(*ast.ArrayDeclaration)
	if !ok {
		t.Fatalf("expected array declaration, got %T", decl.Expr)
	}
	if arr.BaseTypeRef.Name != "i64" || len(arr.Dimensions) != 2 {
		t.Errorf("unexpected array declaration: %+v", arr)
	}
}

func TestSizedArrayWithElementsIsError(t *testing.T) {
	_, p := parseWithErrors(t, `class X impl X { fn f() { a := i32:[2]{1} } }`)
	if !hasDiagnostic(p, "cannot carry initializer elements") {
		t.Errorf("expected sized-initializer error, got: %s", p.Diagnostics().Format("test"))
	}
}

func TestArrayTypeRefSuffix(t *testing.T) {
	file := parse(t, `class X { pub: a: i32[][] }`)
	field := file.Clazz.Fields[0]
	if field.TypeRef.Name != "i32[][]" {
		t.Errorf("expected bracketed type ref, got %q", field.TypeRef.Name)
	}
}

func TestEmptySource(t *testing.T) {
	file, p := parseWithErrors(t, ``)
	if file == nil {
		t.Fatal("parser must return a file for empty input")
	}
	if p.Diagnostics().HasErrors() {
		t.Errorf("empty source must not be an error: %s", p.Diagnostics().Format("test"))
	}
	if !hasDiagnostic(p, "empty source") {
		t.Error("expected empty source warning")
	}
}

func TestParseTotalityOnGarbage(t *testing.T) {
	inputs := []string{
		`) ] } :: ;;; 123 'x' "s" ~ >>>`,
		`{{{{`,
		`class`,
		`mod`,
		`use`,
		`impl impl impl`,
		`class X { pub a i32 }`,
		`class X impl X { fn f( { } }`,
		`class X impl X { fn f() { x := } }`,
		`:::: down to until else`,
	}

	for _, input := range inputs {
		p := New("test.yk", input)
		file := p.Parse()
		if file == nil {
			t.Errorf("%q: parser must always return a file", input)
		}
		if p.Diagnostics().Count() == 0 {
			t.Errorf("%q: expected at least one diagnostic", input)
		}
	}
}

func TestExternalTokenStream(t *testing.T) {
	tokens := lexer.New(`class X`).Tokenize()
	p := NewFromTokens("test.yk", tokens)
	file := p.Parse()
	if p.Diagnostics().HasErrors() {
		t.Fatalf("unexpected errors: %s", p.Diagnostics().Format("test"))
	}
	if file.Clazz == nil || file.Clazz.Name != "X" {
		t.Errorf("unexpected parse result: %+v", file.Clazz)
	}
}

func TestTruncatedTokenStream(t *testing.T) {
	// stream cut off inside the class body, with no EOF marker
	tokens := lexer.New(`class X { pub:`).Tokenize()
	p := NewFromTokens("test.yk", tokens[:len(tokens)-1])
	file := p.Parse()
	if file == nil {
		t.Fatal("parser must return a file for truncated input")
	}
	if p.Diagnostics().Count() == 0 {
		t.Error("expected diagnostics for truncated input")
	}
}

func TestUnexpectedTokenAtTopLevel(t *testing.T) {
	_, p := parseWithErrors(t, `class X 42`)
	if !hasDiagnostic(p, "at top level") {
		t.Errorf("expected top-level error, got: %s", p.Diagnostics().Format("test"))
	}
}

func TestImplForUnknownClass(t *testing.T) {
	_, p := parseWithErrors(t, `class X impl Y { }`)
	if !hasDiagnostic(p, "impl block for unknown class") {
		t.Errorf("expected unknown impl target error, got: %s", p.Diagnostics().Format("test"))
	}
}
