package checker

import (
	"strings"

	"github.com/ChAoSUnItY/Yakou/internal/ast"
	"github.com/ChAoSUnItY/Yakou/internal/types"
)

// Variable is a local variable or parameter tracked by a scope frame.
type Variable struct {
	Mut   bool
	Name  string
	Type  types.Type
	Index int // stack slot; 64-bit primitives occupy two slots
	Depth int
}

// Scope is one frame of the lexical environment. Frames link to their
// parent and ultimately to a global frame holding the known-type
// registry. Each frame owns the variables declared in it; children may
// shadow parents but never their own frame.
type Scope struct {
	parent    *Scope
	vars      map[string]*Variable
	depth     int
	classPath string
	companion bool

	// slots is the variable index allocator, shared by all frames of
	// one function body.
	slots *int

	// registry and usages are set on the global and class frames
	// respectively; lookups walk the parent chain to reach them.
	registry map[string]*types.Class
	usages   map[string]string // simple name or alias -> class path
}

// NewGlobalScope creates the root scope holding the read-only registry
// of known external class types.
func NewGlobalScope() *Scope {
	return &Scope{
		vars:     make(map[string]*Variable),
		registry: make(map[string]*types.Class),
	}
}

// AddClass registers a class type in the global registry.
func (s *Scope) AddClass(class *types.Class) {
	root := s
	for root.parent != nil {
		root = root.parent
	}
	root.registry[class.Path] = class
}

// OpenClass opens the frame for a class body, carrying the class path
// and its usage table.
func (s *Scope) OpenClass(classPath string, usages map[string]string) *Scope {
	child := s.open()
	child.classPath = classPath
	child.usages = usages
	return child
}

// OpenFunction opens the frame for a function or constructor body with
// a fresh variable index allocator.
func (s *Scope) OpenFunction(companion bool) *Scope {
	child := s.open()
	child.companion = companion
	child.slots = new(int)
	return child
}

// Open opens a plain child frame (block scopes, for headers) sharing
// the enclosing allocator.
func (s *Scope) Open() *Scope {
	return s.open()
}

func (s *Scope) open() *Scope {
	return &Scope{
		parent:    s,
		vars:      make(map[string]*Variable),
		depth:     s.depth + 1,
		classPath: s.classPath,
		companion: s.companion,
		slots:     s.slots,
	}
}

// ClassPath returns the path of the class the scope belongs to.
func (s *Scope) ClassPath() string { return s.classPath }

// IsCompanion reports whether the scope is inside a companion member.
func (s *Scope) IsCompanion() bool { return s.companion }

// Len returns the number of variables owned by this frame.
func (s *Scope) Len() int { return len(s.vars) }

// RegisterVariable declares a variable in the current frame. It
// reports false when the name is already declared in this frame.
// The variable receives the next available index; 64-bit primitives
// consume two indices.
func (s *Scope) RegisterVariable(mut bool, name string, typ types.Type) (*Variable, bool) {
	if _, exists := s.vars[name]; exists {
		return nil, false
	}
	v := &Variable{
		Mut:   mut,
		Name:  name,
		Type:  typ,
		Depth: s.depth,
	}
	if s.slots != nil {
		v.Index = *s.slots
		*s.slots++
		if types.Wide(typ) {
			*s.slots++
		}
	}
	s.vars[name] = v
	return v, true
}

// FindVariable resolves a variable by walking the parent chain.
func (s *Scope) FindVariable(name string) *Variable {
	if v, ok := s.vars[name]; ok {
		return v
	}
	if s.parent != nil {
		return s.parent.FindVariable(name)
	}
	return nil
}

// lookupRegistry walks to the root frame's registry.
func (s *Scope) lookupRegistry(path string) *types.Class {
	root := s
	for root.parent != nil {
		root = root.parent
	}
	return root.registry[path]
}

// lookupUsage resolves a simple name through the nearest usage table.
func (s *Scope) lookupUsage(name string) (string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.usages != nil {
			path, ok := cur.usages[name]
			return path, ok
		}
	}
	return "", false
}

// FindClass resolves a reference to a class type: usages first
// (alias-aware), then the global registry, then the enclosing class's
// own name.
func (s *Scope) FindClass(ref *ast.Reference) *types.Class {
	if ref == nil {
		return nil
	}
	if !strings.Contains(ref.Path, "/") {
		if path, ok := s.lookupUsage(ref.Path); ok {
			return s.lookupRegistry(path)
		}
	}
	if class := s.lookupRegistry(ref.Path); class != nil {
		return class
	}
	if s.classPath != "" {
		if ref.Path == s.classPath || ref.Path == simpleName(s.classPath) {
			return s.lookupRegistry(s.classPath)
		}
	}
	return nil
}

// CurrentClass returns the class type the scope belongs to, or nil.
func (s *Scope) CurrentClass() *types.Class {
	if s.classPath == "" {
		return nil
	}
	return s.lookupRegistry(s.classPath)
}

// FindType resolves a type reference: usages, then global known types,
// then the built-in primitive table. Bracketed suffixes on the
// reference text form array types.
func (s *Scope) FindType(ref *ast.Reference) types.Type {
	if ref == nil {
		return nil
	}
	path := ref.Path
	dims := 0
	for strings.HasSuffix(path, "[]") {
		path = path[:len(path)-2]
		dims++
	}

	var base types.Type
	stripped := &ast.Reference{Path: path, Name: strings.TrimSuffix(ref.Name, strings.Repeat("[]", dims))}
	if class := s.FindClass(stripped); class != nil {
		base = class
	} else if p := types.PrimitiveByName(path); p != nil {
		base = p
	} else {
		return nil
	}

	return types.OfDepth(base, dims)
}

// FindField resolves a field: on the current class when owner is nil
// (inherited lookup is future work), otherwise on the owner class.
func (s *Scope) FindField(owner *types.Class, name string) *types.Field {
	if owner == nil {
		owner = s.CurrentClass()
	}
	if owner == nil {
		return nil
	}
	return owner.FindField(name)
}

// FindFunction resolves a call under numeric promotion: an argument of
// primitive numeric type A matches a parameter of type B when A == B
// or A widens to B. It returns the most-specific match and nil on
// ambiguity.
func (s *Scope) FindFunction(owner *types.Class, name string, argTypes []types.Type) *types.Signature {
	if owner == nil {
		owner = s.CurrentClass()
	}
	if owner == nil {
		return nil
	}

	var best *types.Signature
	bestCost := -1
	ambiguous := false

	for _, sig := range owner.Signatures {
		if sig.Name != name || len(sig.Params) != len(argTypes) {
			continue
		}
		cost, ok := matchCost(argTypes, sig.Params)
		if !ok {
			continue
		}
		switch {
		case bestCost < 0 || cost < bestCost:
			best, bestCost, ambiguous = sig, cost, false
		case cost == bestCost:
			ambiguous = true
		}
	}

	if ambiguous {
		return nil
	}
	return best
}

// matchCost totals the widening distance between arguments and
// parameters; ok is false when any argument does not fit.
func matchCost(args, params []types.Type) (int, bool) {
	cost := 0
	for i, arg := range args {
		param := params[i]
		if types.Equal(arg, param) {
			continue
		}
		if !types.CanCast(arg, param) {
			return 0, false
		}
		if types.IsNumeric(arg) && types.IsNumeric(param) {
			cost += types.Rank(param) - types.Rank(arg)
		} else {
			cost++
		}
	}
	return cost, true
}

func simpleName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
