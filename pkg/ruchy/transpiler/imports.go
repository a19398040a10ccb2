package transpiler

import (
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
)

// rustModulePath turns a dotted module name into a Rust path.
func rustModulePath(module string) string {
	module = strings.TrimPrefix(module, "./")
	if strings.Contains(module, "::") {
		return module
	}
	return strings.ReplaceAll(module, ".", "::")
}

// moduleIdent flattens a file-like module reference into one identifier.
func moduleIdent(module string) string {
	module = strings.TrimPrefix(module, "./")
	return strings.NewReplacer("/", "_", ".", "_", "-", "_").Replace(module)
}

// TranspileImport lowers `import m` and `import m::{a, b as c}`.
func TranspileImport(module string, items []ast.ImportItem) *TokenStream {
	out := Tokens("use")
	path := rustModulePath(module)
	if len(items) == 0 {
		return out.Push(path, ";")
	}
	list := make([]*TokenStream, len(items))
	for i, it := range items {
		if it.Name == "*" {
			list[i] = Tokens("*")
			continue
		}
		list[i] = Tokens(RustIdent(it.Name))
		if it.Alias != "" {
			list[i].Push("as", RustIdent(it.Alias))
		}
	}
	if len(list) == 1 && list[0].First() == "*" {
		return out.Push(path + "::*").Push(";")
	}
	return out.Push(path, "::").Group("{", Tokens().Join(",", list), "}").Push(";")
}

// TranspileImportAll lowers `import * as alias from "m"`. An alias of * is
// a glob import.
func TranspileImportAll(module, alias string) *TokenStream {
	if alias == "" || alias == "*" {
		return Tokens("use", rustModulePath(module)+"::*", ";")
	}
	if strings.Contains(module, "::") {
		return Tokens("use", module, "as", RustIdent(alias), ";")
	}
	return Tokens("use", moduleIdent(module), "as", RustIdent(alias), ";")
}

// TranspileImportDefault lowers `import name from "m"`; the module is
// expected to be declared alongside the generated crate.
func TranspileImportDefault(_, name string) *TokenStream {
	return Tokens("use", RustIdent(name), ";")
}

// TranspileExportList lowers `export { a, b }`.
func TranspileExportList(names []string) *TokenStream {
	list := make([]*TokenStream, len(names))
	for i, n := range names {
		list[i] = Tokens(RustIdent(n))
	}
	return Tokens("pub", "use").Group("{", Tokens().Join(",", list), "}").Push(";")
}

// TranspileReexport lowers `export { a, b } from "m"`.
func TranspileReexport(items []string, module string) *TokenStream {
	list := make([]*TokenStream, len(items))
	for i, n := range items {
		list[i] = Tokens(RustIdent(n))
	}
	return Tokens("pub", "use", moduleIdent(module), "::").Group("{", Tokens().Join(",", list), "}").Push(";")
}

func (t *Transpiler) transpileImportNode(imp *ast.Import) *TokenStream {
	switch imp.Kind {
	case ast.ImportAll:
		return TranspileImportAll(imp.Module, imp.Alias)
	case ast.ImportDefault:
		return TranspileImportDefault(imp.Module, imp.Alias)
	}
	return TranspileImport(imp.Module, imp.Items)
}

// transpileExport marks the exported item public, or re-exports names.
func (t *Transpiler) transpileExport(ex *ast.Export) (*TokenStream, error) {
	if ex.Expr == nil {
		if ex.Module != "" {
			return TranspileReexport(ex.Names, ex.Module), nil
		}
		return TranspileExportList(ex.Names), nil
	}
	item := *ex.Expr
	switch k := item.Kind.(type) {
	case *ast.Function:
		fn := *k
		fn.IsPub = true
		item.Kind = &fn
	case *ast.StructDef:
		s := *k
		s.IsPub = true
		s.Fields = append([]ast.StructField(nil), s.Fields...)
		for i := range s.Fields {
			s.Fields[i].IsPub = true
		}
		item.Kind = &s
	case *ast.EnumDef:
		en := *k
		en.IsPub = true
		item.Kind = &en
	case *ast.TraitDef:
		tr := *k
		tr.IsPub = true
		item.Kind = &tr
	default:
		ts, err := t.Transpile(ex.Expr)
		if err != nil {
			return nil, err
		}
		return Tokens("pub").Append(ts), nil
	}
	return t.Transpile(&item)
}
