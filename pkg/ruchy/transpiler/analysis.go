package transpiler

import "github.com/ruchy-lang/ruchy/pkg/ruchy/ast"

// mutatingMethods modify their receiver in place.
var mutatingMethods = map[string]bool{
	"push": true, "pop": true, "insert": true, "remove": true, "clear": true,
	"sort": true, "extend": true, "append": true, "truncate": true, "retain": true,
	"push_str": true, "dedup": true,
}

// rootName returns the variable at the base of a place expression such as
// a.b[0].c, or "".
func rootName(e *ast.Expr) string {
	for e != nil {
		switch k := e.Kind.(type) {
		case *ast.Identifier:
			return k.Name
		case *ast.FieldAccess:
			e = k.Object
		case *ast.IndexAccess:
			e = k.Object
		default:
			return ""
		}
	}
	return ""
}

// collectMutated returns the names that are assigned after their binding or
// used as the receiver of an in-place method. Those bindings need `mut`.
func collectMutated(root *ast.Expr) map[string]bool {
	names := map[string]bool{}
	ast.Walk(root, func(e *ast.Expr) bool {
		var target *ast.Expr
		switch k := e.Kind.(type) {
		case *ast.Assign:
			target = k.Target
		case *ast.CompoundAssign:
			target = k.Target
		case *ast.MethodCall:
			// sort and dedup are lowered to copies, so they leave the
			// receiver alone.
			if mutatingMethods[k.Method] && k.Method != "sort" && k.Method != "dedup" {
				target = k.Receiver
			}
		}
		if name := rootName(target); name != "" && name != "self" {
			names[name] = true
		}
		return true
	})
	return names
}

// collectMoveLambdas returns the closures that must own their captures:
// closures returned from a function or another closure, and closures that
// write to a captured variable.
func collectMoveLambdas(root *ast.Expr) map[*ast.Lambda]bool {
	moves := map[*ast.Lambda]bool{}
	markTail := func(body *ast.Expr) {
		if tail := tailExpr(body); tail != nil {
			if l, ok := tail.Kind.(*ast.Lambda); ok {
				moves[l] = true
			}
		}
	}
	ast.Walk(root, func(e *ast.Expr) bool {
		switch k := e.Kind.(type) {
		case *ast.Function:
			markTail(k.Body)
		case *ast.Lambda:
			markTail(k.Body)
			if writesCapture(k) {
				moves[k] = true
			}
		case *ast.Return:
			if k.Value != nil {
				if l, ok := k.Value.Kind.(*ast.Lambda); ok {
					moves[l] = true
				}
			}
		}
		return true
	})
	return moves
}

// writesCapture reports whether a closure assigns to a name it neither
// declares nor takes as a parameter.
func writesCapture(l *ast.Lambda) bool {
	local := map[string]bool{}
	for _, p := range l.Params {
		local[p.Name] = true
		if p.Pattern != nil {
			for _, n := range ast.PatternBindings(p.Pattern) {
				local[n] = true
			}
		}
	}
	found := false
	ast.Walk(l.Body, func(e *ast.Expr) bool {
		switch k := e.Kind.(type) {
		case *ast.Let:
			local[k.Name] = true
			if k.Pattern != nil {
				for _, n := range ast.PatternBindings(k.Pattern) {
					local[n] = true
				}
			}
		case *ast.Assign:
			if name := rootName(k.Target); name != "" && !local[name] {
				found = true
			}
		case *ast.CompoundAssign:
			if name := rootName(k.Target); name != "" && !local[name] {
				found = true
			}
		}
		return !found
	})
	return found
}
