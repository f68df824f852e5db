package checker

import (
	"github.com/ChAoSUnItY/Yakou/internal/ast"
	"github.com/ChAoSUnItY/Yakou/internal/diagnostic"
	"github.com/ChAoSUnItY/Yakou/internal/lexer"
	"github.com/ChAoSUnItY/Yakou/internal/types"
)

// Checker performs semantic analysis on a parsed file. It walks the
// class twice: pass A registers field, function, and constructor
// signatures; pass B checks bodies against them. Every failure is a
// diagnostic; the checker never aborts.
type Checker struct {
	file   *ast.File
	diags  *diagnostic.Diagnostics
	global *Scope

	clazz   *ast.Class
	class   *types.Class
	scope   *Scope // class frame
	retType types.Type
}

// New creates a checker for one compilation unit.
func New(file *ast.File) *Checker {
	return &Checker{
		file:   file,
		diags:  diagnostic.New(),
		global: NewGlobalScope(),
	}
}

// AddClass seeds the global type registry with a known external class.
// The registry is read-only during checking.
func (c *Checker) AddClass(class *types.Class) {
	c.global.AddClass(class)
}

// Check performs semantic analysis on a parsed file
func Check(file *ast.File) *diagnostic.Diagnostics {
	return New(file).Check()
}

// Check runs both passes and returns the accumulated diagnostics.
func (c *Checker) Check() *diagnostic.Diagnostics {
	c.clazz = c.file.Clazz
	if c.clazz == nil {
		return c.diags
	}

	c.registerSignatures()
	c.checkBodies()

	return c.diags
}

// registerSignatures is pass A: it resolves declared types and builds
// the class's field and signature tables. Pass A completes before any
// body is checked, so intra-class forward references resolve.
func (c *Checker) registerSignatures() {
	ref := c.clazz.Reference()
	c.class = &types.Class{Path: ref.Path, Name: c.clazz.Name}
	c.global.AddClass(c.class)

	usages := make(map[string]string)
	for _, u := range c.clazz.Usages {
		usages[u.SimpleName()] = u.Ref.Path
	}
	c.scope = c.global.OpenClass(ref.Path, usages)

	for _, field := range c.clazz.Fields {
		field.Type = c.resolveTypeRef(field.TypeRef, field.Pos)
		ok := c.class.AddField(&types.Field{
			Owner:  c.class,
			Access: field.Access,
			Mut:    field.Mut,
			Comp:   field.Comp,
			Name:   field.Name,
			Type:   field.Type,
		})
		if !ok {
			c.diags.Errorf(field.Pos, "duplicate field '%s'", field.Name)
		}
	}

	for _, fn := range c.clazz.Functions {
		params := c.resolveParams(fn.Params)

		fn.RetType = types.Unit
		if fn.RetTypeRef != nil {
			fn.RetType = c.resolveTypeRef(fn.RetTypeRef, fn.Pos)
			if fn.RetType == nil {
				fn.RetType = types.Unit
			}
		}

		sig := &types.Signature{
			Owner:  c.class,
			Access: fn.Access,
			Mut:    fn.Mut,
			Comp:   fn.Comp,
			Name:   fn.Name,
			Params: params,
			Ret:    fn.RetType,
		}
		if !c.class.AddSignature(sig) {
			c.diags.Errorf(fn.Pos, "duplicate function '%s'", sig)
		}
		fn.Signature = sig
	}

	for _, ctor := range c.clazz.Constructors {
		params := c.resolveParams(ctor.Params)

		sig := &types.Signature{
			Owner:  c.class,
			Access: ctor.Access,
			Name:   types.ConstructorName,
			Params: params,
			Ret:    c.class,
		}
		if !c.class.AddSignature(sig) {
			c.diags.Errorf(ctor.Pos, "duplicate constructor")
		}
		ctor.Signature = sig
	}
}

// resolveParams resolves parameter types and reports duplicate names.
func (c *Checker) resolveParams(params []*ast.Parameter) []types.Type {
	seen := make(map[string]bool)
	resolved := make([]types.Type, 0, len(params))
	for _, param := range params {
		if seen[param.Name] {
			c.diags.Errorf(param.Pos, "duplicate parameter name '%s'", param.Name)
		}
		seen[param.Name] = true
		param.Type = c.resolveTypeRef(param.TypeRef, param.Pos)
		resolved = append(resolved, param.Type)
	}
	return resolved
}

// resolveTypeRef resolves a declared type reference, reporting unknown
// symbols.
func (c *Checker) resolveTypeRef(ref *ast.Reference, pos lexer.Position) types.Type {
	if ref == nil {
		return nil
	}
	t := c.scope.FindType(ref)
	if t == nil {
		if ref.Pos.Known() {
			pos = ref.Pos
		}
		c.diags.Errorf(pos, "unknown type symbol '%s'", ref.Name)
	}
	return t
}

// checkBodies is pass B: every function and constructor body is
// checked in a fresh child scope seeded with its parameters.
func (c *Checker) checkBodies() {
	for _, ctor := range c.clazz.Constructors {
		scope := c.scope.OpenFunction(false)
		c.registerSelf(scope)
		c.registerParams(scope, ctor.Params)
		c.retType = types.Unit
		c.checkBlock(ctor.Stmts, scope)
	}

	for _, fn := range c.clazz.Functions {
		scope := c.scope.OpenFunction(fn.Comp)
		if !fn.Comp {
			c.registerSelf(scope)
		}
		c.registerParams(scope, fn.Params)
		c.retType = fn.RetType
		c.checkBlock(fn.Stmts, scope)
	}
}

// registerSelf reserves the first slot for the instance reference.
func (c *Checker) registerSelf(scope *Scope) {
	scope.RegisterVariable(false, "self", c.class)
}

func (c *Checker) registerParams(scope *Scope, params []*ast.Parameter) {
	for _, param := range params {
		if _, ok := scope.RegisterVariable(param.Mut, param.Name, param.Type); !ok {
			c.diags.Errorf(param.Pos, "duplicate parameter name '%s'", param.Name)
		}
	}
}

// checkBlock checks statements in source order against the given scope.
func (c *Checker) checkBlock(stmts []ast.Statement, scope *Scope) {
	for _, stmt := range stmts {
		c.checkStatement(stmt, scope)
	}
}

// checkStatement checks a statement
func (c *Checker) checkStatement(stmt ast.Statement, scope *Scope) {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		c.checkVariableDeclaration(s, scope)
	case *ast.ExpressionStatement:
		c.checkExpressionStatement(s, scope)
	case *ast.ReturnStatement:
		c.checkReturnStatement(s, scope)
	case *ast.IfStatement:
		c.checkIfStatement(s, scope)
	case *ast.JForStatement:
		c.checkJForStatement(s, scope)
	case *ast.BlockStatement:
		c.checkBlock(s.Stmts, scope.Open())
	}
}

// checkVariableDeclaration checks the initializer, registers the
// variable, and records its slot index.
func (c *Checker) checkVariableDeclaration(stmt *ast.VariableDeclaration, scope *Scope) {
	t := c.checkExpression(stmt.Expr, scope)
	if t == types.Unit {
		c.diags.Errorf(stmt.Pos, "cannot declare variable '%s' of unit type", stmt.Name)
		return
	}

	v, ok := scope.RegisterVariable(stmt.Mut, stmt.Name, t)
	if !ok {
		c.diags.Errorf(stmt.Pos, "variable '%s' is already declared in this scope", stmt.Name)
		return
	}
	stmt.Index = v.Index
}

// checkExpressionStatement warns on expressions whose value is unused.
func (c *Checker) checkExpressionStatement(stmt *ast.ExpressionStatement, scope *Scope) {
	c.checkExpression(stmt.Expr, scope)

	switch e := stmt.Expr.(type) {
	case *ast.AssignmentExpression:
		e.RetainValue = false
	case *ast.FunctionCall, *ast.ConstructorCall:
	case *ast.UnaryExpression:
		if e.Op == lexer.INC || e.Op == lexer.DEC {
			e.RetainValue = false
			return
		}
		c.diags.Warningf(stmt.Pos, "unused expression")
	default:
		c.diags.Warningf(stmt.Pos, "unused expression")
	}
}

// checkReturnStatement checks the returned value against the enclosing
// return type.
func (c *Checker) checkReturnStatement(stmt *ast.ReturnStatement, scope *Scope) {
	stmt.RetType = c.retType

	if stmt.Expr == nil {
		if c.retType != types.Unit {
			c.diags.Errorf(stmt.Pos, "missing return value: function returns %s", c.retType)
		}
		return
	}

	t := c.checkExpression(stmt.Expr, scope)
	if t == nil {
		return
	}
	if !types.CanCast(t, c.retType) {
		c.diags.Errorf(stmt.Pos, "type mismatch: cannot return %s from function returning %s", t, c.retType)
		return
	}
	if !types.Equal(t, c.retType) {
		stmt.Expr.Info().CastTo = c.retType
	}
}

// checkIfStatement checks the condition and both branches in fresh
// sub-scopes.
func (c *Checker) checkIfStatement(stmt *ast.IfStatement, scope *Scope) {
	c.checkCondition(stmt.Cond, scope)

	if stmt.Then != nil {
		c.checkStatement(stmt.Then, scope.Open())
	}
	if stmt.Else != nil {
		c.checkStatement(stmt.Else, scope.Open())
	}
}

// checkJForStatement wraps init/cond/post/body in one fresh sub-scope;
// a block body reuses the header scope.
func (c *Checker) checkJForStatement(stmt *ast.JForStatement, scope *Scope) {
	forScope := scope.Open()

	if stmt.Init != nil {
		c.checkStatement(stmt.Init, forScope)
	}
	if stmt.Cond != nil {
		c.checkCondition(stmt.Cond, forScope)
	}
	if stmt.Post != nil {
		c.checkExpression(stmt.Post, forScope)
	}

	switch body := stmt.Body.(type) {
	case *ast.BlockStatement:
		c.checkBlock(body.Stmts, forScope)
	case nil:
	default:
		c.checkStatement(body, forScope)
	}
}

// checkCondition requires the expression to be castable to bool and
// records the cast target.
func (c *Checker) checkCondition(cond ast.Expression, scope *Scope) {
	if cond == nil {
		return
	}
	t := c.checkExpression(cond, scope)
	if t == nil {
		return
	}
	if !types.CanCast(t, types.Bool) {
		c.diags.Errorf(cond.Span(), "condition must be bool, got %s", t)
		return
	}
	cond.Info().CastTo = types.Bool
}
