package ast

import (
	"encoding/json"
	"io"
)

// FprintJSON writes a JSON representation of the AST to w.
func FprintJSON(w io.Writer, node Node) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toJSON(node))
}

func toJSON(node Node) interface{} {
	if node == nil {
		return nil
	}

	switch n := node.(type) {
	case *File:
		m := map[string]interface{}{
			"type": "File",
			"path": n.Path,
		}
		if n.Clazz != nil {
			m["class"] = toJSON(n.Clazz)
		}
		return m

	case *Class:
		m := map[string]interface{}{
			"type":   "Class",
			"pos":    n.Pos.String(),
			"access": n.Access.String(),
			"name":   n.Name,
		}
		if n.Pkg != nil {
			m["pkg"] = n.Pkg.Path
		}
		if len(n.Usages) > 0 {
			usages := make([]interface{}, len(n.Usages))
			for i, u := range n.Usages {
				usages[i] = map[string]interface{}{
					"ref":   u.Ref.Path,
					"alias": u.Alias,
				}
			}
			m["usages"] = usages
		}
		m["fields"] = mapNodes(n.Fields)
		m["constructors"] = mapNodes(n.Constructors)
		m["functions"] = mapNodes(n.Functions)
		return m

	case *Field:
		return map[string]interface{}{
			"type":     "Field",
			"pos":      n.Pos.String(),
			"access":   n.Access.String(),
			"mut":      n.Mut,
			"comp":     n.Comp,
			"name":     n.Name,
			"type_ref": refPath(n.TypeRef),
		}

	case *Function:
		return map[string]interface{}{
			"type":       "Function",
			"pos":        n.Pos.String(),
			"access":     n.Access.String(),
			"mut":        n.Mut,
			"comp":       n.Comp,
			"name":       n.Name,
			"params":     mapNodes(n.Params),
			"ret":        refPath(n.RetTypeRef),
			"statements": mapNodes(n.Stmts),
		}

	case *Constructor:
		return map[string]interface{}{
			"type":       "Constructor",
			"pos":        n.Pos.String(),
			"access":     n.Access.String(),
			"params":     mapNodes(n.Params),
			"statements": mapNodes(n.Stmts),
		}

	case *Parameter:
		return map[string]interface{}{
			"type":     "Parameter",
			"mut":      n.Mut,
			"name":     n.Name,
			"type_ref": refPath(n.TypeRef),
		}

	case *VariableDeclaration:
		return map[string]interface{}{
			"type": "VariableDeclaration",
			"pos":  n.Pos.String(),
			"mut":  n.Mut,
			"name": n.Name,
			"expr": toJSON(n.Expr),
		}

	case *ExpressionStatement:
		return map[string]interface{}{
			"type": "ExpressionStatement",
			"expr": toJSON(n.Expr),
		}

	case *ReturnStatement:
		return map[string]interface{}{
			"type": "ReturnStatement",
			"pos":  n.Pos.String(),
			"expr": toJSON(n.Expr),
		}

	case *IfStatement:
		return map[string]interface{}{
			"type": "IfStatement",
			"pos":  n.Pos.String(),
			"cond": toJSON(n.Cond),
			"then": toJSON(n.Then),
			"else": toJSON(n.Else),
		}

	case *JForStatement:
		return map[string]interface{}{
			"type": "JForStatement",
			"pos":  n.Pos.String(),
			"init": toJSON(n.Init),
			"cond": toJSON(n.Cond),
			"post": toJSON(n.Post),
			"body": toJSON(n.Body),
		}

	case *BlockStatement:
		return map[string]interface{}{
			"type":       "BlockStatement",
			"pos":        n.Pos.String(),
			"statements": mapNodes(n.Stmts),
		}

	case *IntLiteral:
		return map[string]interface{}{"type": "IntLiteral", "value": n.Value}
	case *FloatLiteral:
		return map[string]interface{}{"type": "FloatLiteral", "value": n.Value}
	case *CharLiteral:
		return map[string]interface{}{"type": "CharLiteral", "value": string(n.Value)}
	case *StringLiteral:
		return map[string]interface{}{"type": "StringLiteral", "value": n.Value}
	case *BoolLiteral:
		return map[string]interface{}{"type": "BoolLiteral", "value": n.Value}
	case *NullLiteral:
		return map[string]interface{}{"type": "NullLiteral"}

	case *IdentifierCall:
		return map[string]interface{}{
			"type":     "IdentifierCall",
			"pos":      n.Pos.String(),
			"owner":    refPath(n.OwnerRef),
			"previous": toJSON(n.Previous),
			"name":     n.Name,
		}

	case *FunctionCall:
		return map[string]interface{}{
			"type":     "FunctionCall",
			"pos":      n.Pos.String(),
			"owner":    refPath(n.OwnerRef),
			"previous": toJSON(n.Previous),
			"name":     n.Name,
			"args":     mapExprs(n.Args),
		}

	case *ConstructorCall:
		return map[string]interface{}{
			"type":  "ConstructorCall",
			"pos":   n.Pos.String(),
			"owner": refPath(n.OwnerRef),
			"args":  mapExprs(n.Args),
		}

	case *IndexExpression:
		return map[string]interface{}{
			"type":     "IndexExpression",
			"previous": toJSON(n.Previous),
			"index":    toJSON(n.Index),
		}

	case *UnaryExpression:
		return map[string]interface{}{
			"type":    "UnaryExpression",
			"op":      n.Op.String(),
			"operand": toJSON(n.Operand),
			"postfix": n.IsPostfix,
		}

	case *BinaryExpression:
		return map[string]interface{}{
			"type":  "BinaryExpression",
			"op":    n.Op.String(),
			"left":  toJSON(n.Left),
			"right": toJSON(n.Right),
		}

	case *AssignmentExpression:
		return map[string]interface{}{
			"type":  "AssignmentExpression",
			"left":  toJSON(n.Left),
			"right": toJSON(n.Right),
		}

	case *ParenthesizedExpression:
		return map[string]interface{}{
			"type":  "ParenthesizedExpression",
			"inner": toJSON(n.Inner),
		}

	case *ArrayInitialization:
		return map[string]interface{}{
			"type":     "ArrayInitialization",
			"infer":    refPath(n.InferTypeRef),
			"elements": mapExprs(n.Elements),
		}

	case *ArrayDeclaration:
		return map[string]interface{}{
			"type":       "ArrayDeclaration",
			"base":       refPath(n.BaseTypeRef),
			"dimensions": mapExprs(n.Dimensions),
		}
	}

	return nil
}

func refPath(r *Reference) interface{} {
	if r == nil {
		return nil
	}
	return r.Path
}

func mapNodes[T Node](nodes []T) []interface{} {
	out := make([]interface{}, len(nodes))
	for i, n := range nodes {
		out[i] = toJSON(n)
	}
	return out
}

func mapExprs(exprs []Expression) []interface{} {
	out := make([]interface{}, len(exprs))
	for i, e := range exprs {
		out[i] = toJSON(e)
	}
	return out
}
