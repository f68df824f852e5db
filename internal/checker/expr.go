package checker

import (
	"strings"

	"github.com/ChAoSUnItY/Yakou/internal/ast"
	"github.com/ChAoSUnItY/Yakou/internal/lexer"
	"github.com/ChAoSUnItY/Yakou/internal/types"
)

// checkExpression computes and records the semantic type of an
// expression. It returns nil when the expression could not be typed; a
// diagnostic has been emitted in that case.
func (c *Checker) checkExpression(expr ast.Expression, scope *Scope) types.Type {
	if expr == nil {
		return nil
	}

	var t types.Type
	switch e := expr.(type) {
	case *ast.IntLiteral:
		t = intLiteralType(e.Value)
	case *ast.FloatLiteral:
		t = types.F32
		if strings.HasSuffix(e.Raw, "D") {
			t = types.F64
		}
	case *ast.CharLiteral:
		t = types.Char
	case *ast.StringLiteral:
		t = types.Str
	case *ast.BoolLiteral:
		t = types.Bool
	case *ast.NullLiteral:
		t = types.Null
	case *ast.IdentifierCall:
		t = c.checkIdentifierCall(e, scope)
	case *ast.FunctionCall:
		t = c.checkFunctionCall(e, scope)
	case *ast.ConstructorCall:
		t = c.checkConstructorCall(e, scope)
	case *ast.IndexExpression:
		t = c.checkIndexExpression(e, scope)
	case *ast.UnaryExpression:
		t = c.checkUnaryExpression(e, scope)
	case *ast.BinaryExpression:
		t = c.checkBinaryExpression(e, scope)
	case *ast.AssignmentExpression:
		t = c.checkAssignmentExpression(e, scope)
	case *ast.ParenthesizedExpression:
		t = c.checkExpression(e.Inner, scope)
	case *ast.ArrayInitialization:
		t = c.checkArrayInitialization(e, scope)
	case *ast.ArrayDeclaration:
		t = c.checkArrayDeclaration(e, scope)
	}

	expr.Info().Type = t
	return t
}

// intLiteralType types an integer literal by fit: the smallest of
// i8/i16/i32/i64 that contains the value.
func intLiteralType(value int64) types.Type {
	switch {
	case value >= -128 && value <= 127:
		return types.I8
	case value >= -32768 && value <= 32767:
		return types.I16
	case value >= -2147483648 && value <= 2147483647:
		return types.I32
	default:
		return types.I64
	}
}

// classRef builds the resolved owner reference annotation for a class.
func classRef(class *types.Class, pos lexer.Position) *ast.Reference {
	return ast.NewReference(strings.Split(class.Path, "/"), pos, nil)
}

// chainOwner maps the checked previous expression of a chain node to
// the class the member lookup runs against. companionStyle is true
// when the previous expression names a class rather than a value.
func chainOwner(prev ast.Expression, prevType types.Type) (owner *types.Class, companionStyle bool) {
	if ic, ok := prev.(*ast.IdentifierCall); ok && ic.IsClassName {
		if class, ok := prevType.(*types.Class); ok {
			return class, true
		}
	}
	if class, ok := prevType.(*types.Class); ok {
		return class, false
	}
	return nil, false
}

// checkIdentifierCall resolves a bare or chained name. Resolution
// order for bare names: local variable, then type name (companion
// target), then current-class field.
func (c *Checker) checkIdentifierCall(e *ast.IdentifierCall, scope *Scope) types.Type {
	switch {
	case e.OwnerRef != nil:
		owner := scope.FindClass(e.OwnerRef)
		if owner == nil {
			c.diags.Errorf(e.Pos, "unknown type symbol '%s'", e.OwnerRef.Name)
			return nil
		}
		field := owner.FindField(e.Name)
		if field == nil {
			c.diags.Errorf(e.Pos, "unknown identifier '%s' on class %s", e.Name, owner.Name)
			return nil
		}
		if !field.Comp {
			c.diags.Errorf(e.Pos, "cannot access non-companion field '%s' without an instance", e.Name)
			return nil
		}
		e.IsCompanionField = true
		e.Mutable = field.Mut
		return field.Type

	case e.Previous != nil:
		prevType := c.checkExpression(e.Previous, scope)
		if prevType == nil {
			return nil
		}
		owner, companionStyle := chainOwner(e.Previous, prevType)
		if owner == nil {
			c.diags.Errorf(e.Pos, "cannot access member '%s' on %s", e.Name, prevType)
			return nil
		}
		field := owner.FindField(e.Name)
		if field == nil {
			c.diags.Errorf(e.Pos, "unknown identifier '%s' on class %s", e.Name, owner.Name)
			return nil
		}
		if companionStyle && !field.Comp {
			c.diags.Errorf(e.Pos, "cannot access non-companion field '%s' without an instance", e.Name)
			return nil
		}
		if scope.IsCompanion() && !field.Comp && owner.Path == scope.ClassPath() {
			c.diags.ErrorWithHint(e.Pos,
				"cannot access non-companion field '"+e.Name+"' from companion context",
				"move the declaration into the companion block")
		}
		e.OwnerRef = classRef(owner, e.Pos)
		e.IsCompanionField = field.Comp
		e.Mutable = field.Mut
		return field.Type

	default:
		if v := scope.FindVariable(e.Name); v != nil {
			e.Index = v.Index
			e.Mutable = v.Mut
			return v.Type
		}
		if e.Name == "self" {
			c.diags.Errorf(e.Pos, "cannot use 'self' in companion context")
			return nil
		}
		if class := scope.FindClass(&ast.Reference{Path: e.Name, Name: e.Name}); class != nil {
			e.IsClassName = true
			return class
		}
		if field := scope.FindField(nil, e.Name); field != nil {
			if scope.IsCompanion() && !field.Comp {
				c.diags.ErrorWithHint(e.Pos,
					"cannot access non-companion field '"+e.Name+"' from companion context",
					"move the declaration into the companion block")
			}
			e.OwnerRef = classRef(field.Owner, e.Pos)
			e.IsCompanionField = field.Comp
			e.Mutable = field.Mut
			return field.Type
		}
		c.diags.Errorf(e.Pos, "unknown identifier '%s'", e.Name)
		return nil
	}
}

// checkFunctionCall checks arguments left-to-right, resolves the
// signature under the owner, and enforces companion rules.
func (c *Checker) checkFunctionCall(e *ast.FunctionCall, scope *Scope) types.Type {
	argTypes := make([]types.Type, len(e.Args))
	failed := false
	for i, arg := range e.Args {
		argTypes[i] = c.checkExpression(arg, scope)
		if argTypes[i] == nil {
			failed = true
		}
	}
	if failed {
		return nil
	}

	var owner *types.Class
	companionStyle := false
	sameClass := false

	switch {
	case e.OwnerRef != nil:
		owner = scope.FindClass(e.OwnerRef)
		if owner == nil {
			c.diags.Errorf(e.Pos, "unknown type symbol '%s'", e.OwnerRef.Name)
			return nil
		}
		companionStyle = true

	case e.Previous != nil:
		prevType := c.checkExpression(e.Previous, scope)
		if prevType == nil {
			return nil
		}
		owner, companionStyle = chainOwner(e.Previous, prevType)
		if owner == nil {
			c.diags.Errorf(e.Pos, "cannot call '%s' on %s", e.Name, prevType)
			return nil
		}

	default:
		owner = scope.CurrentClass()
		sameClass = true
	}

	sig := scope.FindFunction(owner, e.Name, argTypes)
	if sig == nil {
		c.diags.Errorf(e.Pos, "unknown function '%s(%s)'", e.Name, typeList(argTypes))
		return nil
	}

	if companionStyle {
		e.InCompanion = true
		if !sig.Comp {
			c.diags.Errorf(e.Pos, "cannot call non-companion function '%s' without an instance", e.Name)
		}
	}
	if (sameClass || (!companionStyle && owner.Path == scope.ClassPath())) && scope.IsCompanion() && !sig.Comp {
		c.diags.ErrorWithHint(e.Pos,
			"cannot call non-companion function '"+e.Name+"' from companion context",
			"move the declaration into the companion block")
	}

	c.castArgs(e.Args, argTypes, sig.Params)
	e.Signature = sig
	return sig.Ret
}

// checkConstructorCall resolves a `new` expression against the target
// class's constructor signatures.
func (c *Checker) checkConstructorCall(e *ast.ConstructorCall, scope *Scope) types.Type {
	argTypes := make([]types.Type, len(e.Args))
	failed := false
	for i, arg := range e.Args {
		argTypes[i] = c.checkExpression(arg, scope)
		if argTypes[i] == nil {
			failed = true
		}
	}
	if failed {
		return nil
	}

	owner := scope.FindClass(e.OwnerRef)
	if owner == nil {
		name := "<error>"
		if e.OwnerRef != nil {
			name = e.OwnerRef.Name
		}
		c.diags.Errorf(e.Pos, "unknown type symbol '%s'", name)
		return nil
	}

	sig := scope.FindFunction(owner, types.ConstructorName, argTypes)
	if sig == nil {
		c.diags.Errorf(e.Pos, "no matching constructor for class %s(%s)", owner.Name, typeList(argTypes))
		return nil
	}

	c.castArgs(e.Args, argTypes, sig.Params)
	e.Signature = sig
	return owner
}

// castArgs records cast targets on arguments needing promotion.
func (c *Checker) castArgs(args []ast.Expression, argTypes, params []types.Type) {
	for i, arg := range args {
		if !types.Equal(argTypes[i], params[i]) {
			arg.Info().CastTo = params[i]
		}
	}
}

func typeList(ts []types.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		if t == nil {
			parts[i] = "<error>"
			continue
		}
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// checkIndexExpression requires an array operand and an i32-castable
// index; the result is the element type.
func (c *Checker) checkIndexExpression(e *ast.IndexExpression, scope *Scope) types.Type {
	prevType := c.checkExpression(e.Previous, scope)
	indexType := c.checkExpression(e.Index, scope)

	if indexType != nil {
		if !types.CanCast(indexType, types.I32) {
			c.diags.Errorf(e.Index.Span(), "array index must be an integer, got %s", indexType)
		} else {
			e.Index.Info().CastTo = types.I32
		}
	}

	if prevType == nil {
		return nil
	}
	arr, ok := prevType.(*types.Array)
	if !ok {
		c.diags.Errorf(e.Pos, "cannot index non-array type %s", prevType)
		return nil
	}
	return arr.Base
}

// checkUnaryExpression enforces operand requirements per operator.
func (c *Checker) checkUnaryExpression(e *ast.UnaryExpression, scope *Scope) types.Type {
	t := c.checkExpression(e.Operand, scope)
	if t == nil {
		return nil
	}

	switch e.Op {
	case lexer.PLUS, lexer.MINUS:
		if !types.IsNumeric(t) {
			c.diags.Errorf(e.Pos, "operator '%s' requires a numeric operand, got %s", literalOp(e.Op), t)
			return nil
		}
		return t

	case lexer.INC, lexer.DEC:
		if !types.IsNumeric(t) {
			c.diags.Errorf(e.Pos, "operator '%s' requires a numeric operand, got %s", literalOp(e.Op), t)
			return nil
		}
		if ident, ok := e.Operand.(*ast.IdentifierCall); ok && !ident.Mutable {
			c.diags.Errorf(e.Pos, "%s %s is not mutable", identKind(ident), ident.Name)
		}
		return t

	case lexer.TILDE:
		if !types.IsInteger(t) {
			c.diags.Errorf(e.Pos, "operator '~' requires an integer operand, got %s", t)
			return nil
		}
		return t

	case lexer.BANG:
		if !types.Equal(t, types.Bool) {
			c.diags.Errorf(e.Pos, "operator '!' requires a bool operand, got %s", t)
			return nil
		}
		return types.Bool
	}
	return nil
}

// checkBinaryExpression applies the operator class's requirements and
// records promotion casts on both sides.
func (c *Checker) checkBinaryExpression(e *ast.BinaryExpression, scope *Scope) types.Type {
	left := c.checkExpression(e.Left, scope)
	right := c.checkExpression(e.Right, scope)
	if left == nil || right == nil {
		return nil
	}

	switch e.Op {
	case lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH, lexer.PERCENT:
		if !c.requireNumeric(e, left, right) {
			return nil
		}
		return c.promoteOperands(e, left, right)

	case lexer.LT, lexer.LEQ, lexer.GT, lexer.GEQ:
		if !c.requireNumeric(e, left, right) {
			return nil
		}
		c.promoteOperands(e, left, right)
		return types.Bool

	case lexer.EQ, lexer.NEQ:
		if left == types.Null || right == types.Null {
			other := left
			if left == types.Null {
				other = right
			}
			if other != types.Null && !types.IsReference(other) {
				c.diags.ErrorWithHint(e.Pos,
					"cannot compare "+other.String()+" with null",
					"values of primitive types can never be null")
				return nil
			}
			return types.Bool
		}
		if types.IsNumeric(left) && types.IsNumeric(right) {
			c.promoteOperands(e, left, right)
			return types.Bool
		}
		if !types.Equal(left, right) && !types.CanCast(left, right) && !types.CanCast(right, left) {
			c.diags.Errorf(e.Pos, "cannot compare %s with %s", left, right)
			return nil
		}
		return types.Bool

	case lexer.DOUBLE_AMP, lexer.DOUBLE_PIPE:
		if !types.Equal(left, types.Bool) || !types.Equal(right, types.Bool) {
			c.diags.Errorf(e.Pos, "operator '%s' requires bool operands, got %s and %s", literalOp(e.Op), left, right)
			return nil
		}
		return types.Bool

	case lexer.AMP, lexer.PIPE, lexer.CARET, lexer.SHL, lexer.SHR, lexer.USHR:
		if !types.IsInteger(left) || !types.IsInteger(right) {
			c.diags.Errorf(e.Pos, "operator '%s' requires integer operands, got %s and %s", literalOp(e.Op), left, right)
			return nil
		}
		return c.promoteOperands(e, left, right)
	}

	c.diags.Errorf(e.Pos, "unsupported binary operator %s", e.Op)
	return nil
}

// requireNumeric reports non-numeric operands of an arithmetic or
// relational operator.
func (c *Checker) requireNumeric(e *ast.BinaryExpression, left, right types.Type) bool {
	ok := true
	if !types.IsNumeric(left) {
		c.diags.Errorf(e.Left.Span(), "operator '%s' requires numeric operands, got %s", literalOp(e.Op), left)
		ok = false
	}
	if !types.IsNumeric(right) {
		c.diags.Errorf(e.Right.Span(), "operator '%s' requires numeric operands, got %s", literalOp(e.Op), right)
		ok = false
	}
	return ok
}

// promoteOperands records the shared promotion target on both sides
// and returns it.
func (c *Checker) promoteOperands(e *ast.BinaryExpression, left, right types.Type) types.Type {
	target := types.PromoteArithmetic(left, right)
	if !types.Equal(left, target) {
		e.Left.Info().CastTo = target
	}
	if !types.Equal(right, target) {
		e.Right.Info().CastTo = target
	}
	return target
}

// checkAssignmentExpression checks the left side as an assignable
// target: a variable, a mutable field, or an index expression.
func (c *Checker) checkAssignmentExpression(e *ast.AssignmentExpression, scope *Scope) types.Type {
	switch target := e.Left.(type) {
	case *ast.IdentifierCall:
		leftType := c.checkIdentifierCall(target, scope)
		target.Info().Type = leftType
		rightType := c.checkExpression(e.Right, scope)

		if target.IsClassName {
			c.diags.Errorf(e.Pos, "cannot assign to non-variable")
			return nil
		}

		isVariable := target.OwnerRef == nil && target.Previous == nil
		if isVariable {
			v := scope.FindVariable(target.Name)
			if v != nil {
				if !v.Mut {
					c.diags.Errorf(e.Pos, "Variable %s is not mutable", target.Name)
				}
				// Assigning null to a variable whose type never
				// resolved refines it to null.
				if rightType == types.Null && v.Type == nil {
					v.Type = types.Null
					leftType = types.Null
				}
			}
		} else if leftType != nil {
			if !target.Mutable {
				c.diags.Errorf(e.Pos, "Field %s is not mutable", target.Name)
			}
			if !target.IsCompanionField && target.OwnerRef != nil && target.OwnerRef.Path != scope.ClassPath() {
				c.diags.Errorf(e.Pos, "cannot assign to field '%s' outside class %s", target.Name, target.OwnerRef.Name)
			}
		}

		c.checkAssignedValue(e, leftType, rightType)
		return leftType

	case *ast.IndexExpression:
		leftType := c.checkIndexExpression(target, scope)
		target.Info().Type = leftType
		target.AssignedBy = true
		rightType := c.checkExpression(e.Right, scope)
		c.checkAssignedValue(e, leftType, rightType)
		return leftType

	default:
		c.checkExpression(e.Left, scope)
		c.checkExpression(e.Right, scope)
		c.diags.Errorf(e.Pos, "cannot assign to non-variable")
		return nil
	}
}

// checkAssignedValue verifies the right side is castable to the left's
// type and records the cast.
func (c *Checker) checkAssignedValue(e *ast.AssignmentExpression, leftType, rightType types.Type) {
	if leftType == nil || rightType == nil {
		return
	}
	if !types.CanCast(rightType, leftType) {
		c.diags.Errorf(e.Pos, "type mismatch: cannot assign %s to %s", rightType, leftType)
		return
	}
	if !types.Equal(rightType, leftType) {
		e.Right.Info().CastTo = leftType
	}
}

// checkArrayInitialization types an array literal. With a declared
// element type every element must be castable to it; without one the
// first element seeds the inference and is refined left-to-right.
func (c *Checker) checkArrayInitialization(e *ast.ArrayInitialization, scope *Scope) types.Type {
	if e.InferTypeRef != nil {
		elemType := c.resolveTypeRef(e.InferTypeRef, e.Pos)
		if elemType == nil {
			return nil
		}
		for _, el := range e.Elements {
			et := c.checkExpression(el, scope)
			if et == nil {
				continue
			}
			if !types.CanCast(et, elemType) {
				c.diags.Errorf(el.Span(), "type mismatch: expected %s, got %s", elemType, et)
				continue
			}
			if !types.Equal(et, elemType) {
				el.Info().CastTo = elemType
			}
		}
		return &types.Array{Base: elemType}
	}

	if len(e.Elements) == 0 {
		c.diags.Errorf(e.Pos, "cannot infer the element type of an empty array initialization")
		return nil
	}

	elemTypes := make([]types.Type, len(e.Elements))
	for i, el := range e.Elements {
		elemTypes[i] = c.checkExpression(el, scope)
	}
	seed := elemTypes[0]
	if seed == nil {
		return nil
	}

	if seedArr, ok := seed.(*types.Array); ok {
		return c.inferNestedArray(e, elemTypes, seedArr)
	}

	foundation := seed
	for i := 1; i < len(elemTypes); i++ {
		et := elemTypes[i]
		if et == nil {
			continue
		}
		foundation = c.unifyFoundation(e.Elements[i].Span(), foundation, et)
	}

	for i, el := range e.Elements {
		if elemTypes[i] != nil && !types.Equal(elemTypes[i], foundation) {
			el.Info().CastTo = foundation
		}
	}
	return &types.Array{Base: foundation}
}

// inferNestedArray unifies an array-of-arrays literal: equal dimension
// counts, one foundation type, boxed classes unboxed on the final
// element. The resolved foundation is propagated down to every leaf.
func (c *Checker) inferNestedArray(e *ast.ArrayInitialization, elemTypes []types.Type, seed *types.Array) types.Type {
	depth := seed.Dimensions()
	foundation := seed.Foundation()

	for i := 1; i < len(elemTypes); i++ {
		et := elemTypes[i]
		if et == nil {
			continue
		}
		arr, ok := et.(*types.Array)
		if !ok || arr.Dimensions() != depth {
			c.diags.Errorf(e.Elements[i].Span(), "array dimension mismatch: expected %d-dimensional element, got %s", depth, et)
			continue
		}
		foundation = c.unifyFoundation(e.Elements[i].Span(), foundation, arr.Foundation())
	}

	foundation = types.Unbox(foundation)

	for _, el := range e.Elements {
		c.propagateFoundation(el, foundation, depth)
	}
	return types.OfDepth(foundation, depth+1)
}

// unifyFoundation merges a new element type into the running
// foundation type, widening numerics and reporting mismatches.
func (c *Checker) unifyFoundation(pos lexer.Position, foundation, next types.Type) types.Type {
	next = types.Unbox(next)
	foundation = types.Unbox(foundation)
	switch {
	case types.Equal(next, foundation):
		return foundation
	case types.IsNumeric(foundation) && types.IsNumeric(next):
		return types.Promote(foundation, next)
	case types.CanCast(next, foundation):
		return foundation
	case types.CanCast(foundation, next):
		return next
	default:
		c.diags.Errorf(pos, "array element type mismatch between %s and %s", foundation, next)
		return foundation
	}
}

// propagateFoundation pushes the final foundation type down through
// nested array literals, rewriting intermediate array types and
// setting cast targets on scalar leaves.
func (c *Checker) propagateFoundation(expr ast.Expression, foundation types.Type, depth int) {
	if init, ok := expr.(*ast.ArrayInitialization); ok && depth > 0 {
		init.Info().Type = types.OfDepth(foundation, depth)
		for _, el := range init.Elements {
			c.propagateFoundation(el, foundation, depth-1)
		}
		return
	}

	want := types.OfDepth(foundation, depth)
	if t := expr.Info().Type; t != nil && !types.Equal(t, want) {
		expr.Info().CastTo = want
	}
}

// checkArrayDeclaration requires every dimension expression to be an
// i32-castable integer.
func (c *Checker) checkArrayDeclaration(e *ast.ArrayDeclaration, scope *Scope) types.Type {
	base := c.resolveTypeRef(e.BaseTypeRef, e.Pos)

	for _, dim := range e.Dimensions {
		if dim == nil {
			continue
		}
		dt := c.checkExpression(dim, scope)
		if dt == nil {
			continue
		}
		if !types.CanCast(dt, types.I32) {
			c.diags.Errorf(dim.Span(), "array dimension must be an integer, got %s", dt)
			continue
		}
		dim.Info().CastTo = types.I32
	}

	if base == nil {
		return nil
	}
	return types.OfDepth(base, len(e.Dimensions))
}

// identKind renders the resolution kind of an identifier for
// diagnostics.
func identKind(e *ast.IdentifierCall) string {
	if e.OwnerRef == nil && e.Previous == nil && !e.IsClassName {
		return "Variable"
	}
	return "Field"
}

// literalOp renders an operator token without the quoting of
// TokenKind.String.
func literalOp(kind lexer.TokenKind) string {
	s := kind.String()
	return strings.Trim(s, "'")
}
