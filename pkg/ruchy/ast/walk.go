package ast

// Children returns the direct sub-expressions of e in source order.
func Children(e *Expr) []*Expr {
	if e == nil {
		return nil
	}
	var out []*Expr
	add := func(es ...*Expr) {
		for _, c := range es {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	addFields := func(fields []ObjectField) {
		for _, f := range fields {
			add(f.Value)
		}
	}
	addArms := func(arms []MatchArm) {
		for _, a := range arms {
			add(a.Guard, a.Body)
		}
	}
	addParams := func(params []Param) {
		for _, p := range params {
			add(p.Default)
		}
	}

	switch k := e.Kind.(type) {
	case *Binary:
		add(k.Left, k.Right)
	case *Unary:
		add(k.Operand)
	case *Assign:
		add(k.Target, k.Value)
	case *CompoundAssign:
		add(k.Target, k.Value)
	case *Let:
		add(k.Value, k.ElseBlock, k.Body)
	case *If:
		add(k.Condition, k.ThenBranch, k.ElseBranch)
	case *Match:
		add(k.Scrutinee)
		addArms(k.Arms)
	case *While:
		add(k.Condition, k.Body)
	case *For:
		add(k.Iter, k.Body)
	case *Loop:
		add(k.Body)
	case *Block:
		add(k.Exprs...)
	case *Call:
		add(k.Func)
		add(k.Args...)
	case *MethodCall:
		add(k.Receiver)
		add(k.Args...)
	case *OptionalMethodCall:
		add(k.Receiver)
		add(k.Args...)
	case *FieldAccess:
		add(k.Object)
	case *OptionalFieldAccess:
		add(k.Object)
	case *IndexAccess:
		add(k.Object, k.Index)
	case *Slice:
		add(k.Object, k.Start, k.End)
	case *List:
		add(k.Elements...)
	case *Tuple:
		add(k.Elements...)
	case *Object:
		addFields(k.Fields)
	case *StructLiteral:
		addFields(k.Fields)
	case *Range:
		add(k.Start, k.End)
	case *Lambda:
		addParams(k.Params)
		add(k.Body)
	case *Function:
		addParams(k.Params)
		add(k.Body)
	case *Return:
		add(k.Value)
	case *Break:
		add(k.Value)
	case *Try:
		add(k.Expr)
	case *TryCatch:
		add(k.Try)
		for _, c := range k.Catches {
			add(c.Body)
		}
		add(k.Finally)
	case *Throw:
		add(k.Expr)
	case *TypeCast:
		add(k.Expr)
	case *MacroInvocation:
		add(k.Args...)
	case *DataFrame:
		for _, c := range k.Columns {
			add(c.Values...)
		}
	case *DataFrameOp:
		add(k.Source)
		add(k.Args...)
	case *Spread:
		add(k.Expr)
	case *StringInterpolation:
		for _, p := range k.Parts {
			add(p.Expr)
		}
	case *StructDef:
		for _, f := range k.Fields {
			add(f.Default)
		}
	case *TraitDef:
		add(k.Methods...)
	case *ImplBlock:
		add(k.Methods...)
	case *Export:
		add(k.Expr)
	case *Module:
		add(k.Body)
	case *ActorDef:
		for _, f := range k.State {
			add(f.Default)
		}
		addArms(k.Handlers)
	case *Receive:
		addArms(k.Arms)
	case *Spawn:
		add(k.Expr)
	case *Await:
		add(k.Expr)
	}
	return out
}

// Walk visits e and its descendants depth-first in source order. If fn
// returns false the children of that node are skipped.
func Walk(e *Expr, fn func(*Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// Count returns the number of nodes in the tree rooted at e.
func Count(e *Expr) int {
	n := 0
	Walk(e, func(*Expr) bool {
		n++
		return true
	})
	return n
}
