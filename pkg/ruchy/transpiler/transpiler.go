// Package transpiler lowers a Ruchy syntax tree to Rust tokens.
//
// The output is a TokenStream; pkg/ruchy/rustfmt turns it into formatted
// source. Lowering is purely syntactic: where Rust needs a type the
// transpiler guesses from names and usage, and it reports constructs it has
// no rendering for with a descriptive error instead of emitting bad code.
package transpiler

import (
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// Transpiler holds the per-program analysis used while emitting.
type Transpiler struct {
	mutables    map[string]bool
	moveLambdas map[*ast.Lambda]bool
	frames      map[string]bool
	tryDepth    int
	inTraitImpl bool
	prepared    bool
}

// New returns a Transpiler ready for one program.
func New() *Transpiler {
	return &Transpiler{}
}

// prepare runs the whole-program analyses once.
func (t *Transpiler) prepare(root *ast.Expr) {
	if t.prepared {
		return
	}
	t.prepared = true
	t.mutables = collectMutated(root)
	t.moveLambdas = collectMoveLambdas(root)
	t.frames = map[string]bool{}
}

// TranspileToProgram lowers a whole program into a complete Rust crate root
// with a main function.
//
// Type definitions come first, then the remaining items in source order,
// then main. Top-level statements become the body of the generated main;
// when the program also defines main, the user's main is renamed to
// __ruchy_main and called after the statements. A program that ends in a
// value prints it with {:?}.
func (t *Transpiler) TranspileToProgram(root *ast.Expr) (*TokenStream, error) {
	if root == nil {
		return nil, perrors.InvalidConstruct("program", "no syntax tree")
	}
	t.prepare(root)

	var exprs []*ast.Expr
	if b, ok := root.Kind.(*ast.Block); ok && b.TopLevel {
		exprs = b.Exprs
	} else {
		exprs = []*ast.Expr{root}
	}

	var (
		types, items, stmts []*ast.Expr
		userMain            *ast.Expr
	)
	for _, e := range exprs {
		switch k := e.Kind.(type) {
		case *ast.StructDef, *ast.EnumDef:
			types = append(types, e)
		case *ast.Function:
			if k.Name == "main" {
				userMain = e
			} else {
				items = append(items, e)
			}
		case *ast.Export:
			if k.Expr != nil {
				switch k.Expr.Kind.(type) {
				case *ast.StructDef, *ast.EnumDef:
					types = append(types, e)
					continue
				}
			}
			items = append(items, e)
		default:
			if isItem(e) {
				items = append(items, e)
			} else {
				stmts = append(stmts, e)
			}
		}
	}

	out := &TokenStream{}
	if containsDataFrame(root) {
		out.Push("use", "polars::prelude::*", ";")
	}
	if containsHashMap(root) && !importsHashMap(exprs) {
		out.Push("use", "std::collections::HashMap", ";")
	}
	for _, group := range [][]*ast.Expr{types, items} {
		for _, e := range group {
			ts, err := t.Transpile(e)
			if err != nil {
				return nil, err
			}
			out.Append(ts)
			if !ts.endsStatement() {
				out.Push(";")
			}
		}
	}

	mainBody := &TokenStream{}
	switch {
	case userMain != nil && len(stmts) == 0:
		ts, err := t.transpileFunction(userMain.Kind.(*ast.Function), userMain.Attributes, "main")
		if err != nil {
			return nil, err
		}
		return out.Append(ts), nil
	case userMain != nil:
		ts, err := t.transpileFunction(userMain.Kind.(*ast.Function), userMain.Attributes, "__ruchy_main")
		if err != nil {
			return nil, err
		}
		out.Append(ts)
		body, err := t.transpileStatements(stmts, false)
		if err != nil {
			return nil, err
		}
		mainBody.Append(body).Push("__ruchy_main", "(", ")", ";")
	default:
		body, err := t.transpileProgramBody(stmts)
		if err != nil {
			return nil, err
		}
		mainBody.Append(body)
	}
	out.Push("fn", "main", "(", ")")
	return out.Group("{", mainBody, "}"), nil
}

// transpileProgramBody emits the statements of main, printing the value
// of a trailing expression.
func (t *Transpiler) transpileProgramBody(stmts []*ast.Expr) (*TokenStream, error) {
	if len(stmts) == 0 {
		return &TokenStream{}, nil
	}
	last := stmts[len(stmts)-1]
	if isStatementExpr(last) {
		return t.transpileStatements(stmts, false)
	}
	out, err := t.transpileStatements(stmts[:len(stmts)-1], false)
	if err != nil {
		return nil, err
	}
	value, err := t.Transpile(last)
	if err != nil {
		return nil, err
	}
	out.Push("let", "result", "=").Append(value).Push(";")
	out.Push("println!", "(", `"{:?}"`, ",", "result", ")", ";")
	return out, nil
}

// Transpile lowers one expression. It is the dispatch point every other
// method recurses through.
func (t *Transpiler) Transpile(e *ast.Expr) (*TokenStream, error) {
	if e == nil || e.Kind == nil {
		return Tokens("(", ")"), nil
	}
	t.prepare(e)

	switch k := e.Kind.(type) {
	case *ast.Literal:
		return transpileLiteral(k), nil
	case *ast.Identifier:
		return Tokens(RustIdent(k.Name)), nil
	case *ast.Binary:
		return t.transpileBinary(k)
	case *ast.Unary:
		return t.transpileUnary(k)
	case *ast.Assign:
		return t.transpileAssign(k)
	case *ast.CompoundAssign:
		return t.transpileCompoundAssign(k)
	case *ast.Let:
		return t.TranspileLet(k)
	case *ast.If:
		return t.TranspileIf(k)
	case *ast.Match:
		return t.transpileMatch(k)
	case *ast.While:
		return t.TranspileWhile(k)
	case *ast.For:
		return t.TranspileFor(k)
	case *ast.Loop:
		return t.TranspileLoop(k)
	case *ast.Block:
		return t.TranspileBlock(k)
	case *ast.Call:
		return t.TranspileCall(k)
	case *ast.MethodCall:
		return t.TranspileMethodCall(k)
	case *ast.OptionalMethodCall:
		return t.transpileOptionalMethodCall(k)
	case *ast.FieldAccess:
		return t.transpileFieldAccess(k)
	case *ast.OptionalFieldAccess:
		return t.transpileOptionalFieldAccess(k)
	case *ast.IndexAccess:
		return t.transpileIndex(k)
	case *ast.Slice:
		return t.transpileSlice(k)
	case *ast.List:
		return t.transpileList(k)
	case *ast.Tuple:
		return t.transpileTuple(k)
	case *ast.Object:
		return t.transpileObject(k)
	case *ast.StructLiteral:
		return t.transpileStructLiteral(k)
	case *ast.Range:
		return t.transpileRange(k)
	case *ast.Lambda:
		return t.transpileLambda(k)
	case *ast.Function:
		return t.transpileFunction(k, e.Attributes, k.Name)
	case *ast.Return:
		return t.transpileReturn(k)
	case *ast.Break:
		return t.transpileBreak(k)
	case *ast.Continue:
		out := Tokens("continue")
		if k.Label != "" {
			out.Push("'" + k.Label)
		}
		return out, nil
	case *ast.Try:
		inner, err := t.transpilePostfixOperand(k.Expr)
		if err != nil {
			return nil, err
		}
		return inner.Push("?"), nil
	case *ast.TryCatch:
		return t.TranspileTryCatch(k)
	case *ast.Throw:
		return t.transpileThrow(k)
	case *ast.TypeCast:
		return t.transpileCast(k)
	case *ast.MacroInvocation:
		return t.transpileMacro(k)
	case *ast.DataFrame:
		return t.transpileDataFrame(k)
	case *ast.DataFrameOp:
		return t.transpileDataFrameOp(k)
	case *ast.StringInterpolation:
		return t.transpileInterpolation(k)
	case *ast.Spread:
		return nil, perrors.InvalidConstruct("spread", "'...' is only allowed inside list literals and struct literals")
	case *ast.StructDef:
		return t.transpileStruct(k, e.Attributes)
	case *ast.EnumDef:
		return t.transpileEnum(k, e.Attributes)
	case *ast.TraitDef:
		return t.transpileTrait(k)
	case *ast.ImplBlock:
		return t.transpileImpl(k)
	case *ast.Import:
		return t.transpileImportNode(k), nil
	case *ast.Export:
		return t.transpileExport(k)
	case *ast.Module:
		return t.TranspileModule(k)
	case *ast.Await:
		inner, err := t.transpilePostfixOperand(k.Expr)
		if err != nil {
			return nil, err
		}
		return inner.Push(".", "await"), nil
	case *ast.ActorDef:
		return nil, perrors.Unsupported("actor " + k.Name)
	case *ast.Receive:
		return nil, perrors.Unsupported("receive")
	case *ast.Spawn:
		return nil, perrors.Unsupported("spawn")
	}
	return nil, perrors.Unsupported(ast.KindName(e))
}

// isItem reports whether e lowers to a Rust item rather than a statement.
func isItem(e *ast.Expr) bool {
	switch k := e.Kind.(type) {
	case *ast.Function:
		return k.Name != ""
	case *ast.StructDef, *ast.EnumDef, *ast.TraitDef, *ast.ImplBlock,
		*ast.Module, *ast.Import, *ast.Export, *ast.ActorDef:
		return true
	}
	return false
}

// isStatementExpr reports whether e is only useful for its effect, so a
// program ending in it prints nothing.
func isStatementExpr(e *ast.Expr) bool {
	switch k := e.Kind.(type) {
	case *ast.Let:
		return k.Body == nil || ast.IsVoidExpression(e)
	case *ast.Loop, *ast.Return, *ast.Break, *ast.Continue:
		return true
	}
	return isItem(e) || ast.IsVoidExpression(e)
}

// transpileStatements emits a statement sequence. When tail is set the last
// expression is left without a semicolon so it becomes the block value.
func (t *Transpiler) transpileStatements(exprs []*ast.Expr, tail bool) (*TokenStream, error) {
	out := &TokenStream{}
	for i, e := range exprs {
		ts, err := t.Transpile(e)
		if err != nil {
			return nil, err
		}
		out.Append(ts)
		if tail && i == len(exprs)-1 && !isStatementExpr(e) {
			continue
		}
		if needsSemicolon(e, ts) {
			out.Push(";")
		}
	}
	return out, nil
}

func needsSemicolon(e *ast.Expr, ts *TokenStream) bool {
	switch ts.Last() {
	case ";":
		return false
	case "}":
		if isItem(e) || ast.IsVoidExpression(e) {
			return false
		}
		switch e.Kind.(type) {
		case *ast.Loop, *ast.TryCatch:
			return false
		}
	}
	return true
}

func containsDataFrame(root *ast.Expr) bool {
	found := false
	ast.Walk(root, func(e *ast.Expr) bool {
		switch k := e.Kind.(type) {
		case *ast.DataFrame:
			found = true
		case *ast.Identifier:
			if k.Name == "DataFrame" || strings.HasPrefix(k.Name, "DataFrame::") {
				found = true
			}
		}
		return !found
	})
	return found
}

func containsHashMap(root *ast.Expr) bool {
	found := false
	ast.Walk(root, func(e *ast.Expr) bool {
		switch k := e.Kind.(type) {
		case *ast.Object:
			found = true
		case *ast.Identifier:
			if k.Name == "HashMap" || strings.HasPrefix(k.Name, "HashMap::") {
				found = true
			}
		}
		return !found
	})
	return found
}

func importsHashMap(exprs []*ast.Expr) bool {
	for _, e := range exprs {
		imp, ok := e.Kind.(*ast.Import)
		if !ok {
			continue
		}
		if strings.HasSuffix(imp.Module, "HashMap") {
			return true
		}
		for _, it := range imp.Items {
			if it.Name == "HashMap" && it.Alias == "" {
				return true
			}
		}
	}
	return false
}
