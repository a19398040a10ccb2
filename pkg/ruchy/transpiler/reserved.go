package transpiler

import "strings"

// rustKeywords are the strict and reserved words of Rust 2021 that Ruchy
// allows as plain identifiers.
var rustKeywords = map[string]bool{
	"abstract": true, "as": true, "async": true, "await": true, "become": true,
	"box": true, "break": true, "const": true, "continue": true, "crate": true,
	"do": true, "dyn": true, "else": true, "enum": true, "extern": true,
	"false": true, "final": true, "fn": true, "for": true, "if": true,
	"impl": true, "in": true, "let": true, "loop": true, "macro": true,
	"match": true, "mod": true, "move": true, "mut": true, "override": true,
	"priv": true, "pub": true, "ref": true, "return": true, "static": true,
	"struct": true, "super": true, "trait": true, "true": true, "try": true,
	"type": true, "typeof": true, "unsafe": true, "unsized": true, "use": true,
	"virtual": true, "where": true, "while": true, "yield": true,
}

// pathRoots may start a path and are never renamed.
var pathRoots = map[string]bool{"self": true, "Self": true, "super": true, "crate": true}

// RustIdent renames names that collide with Rust keywords by appending an
// underscore. Path segments are renamed independently.
func RustIdent(name string) string {
	if strings.Contains(name, "::") {
		parts := strings.Split(name, "::")
		for i, p := range parts {
			if i == 0 && pathRoots[p] {
				continue
			}
			parts[i] = renameSegment(p)
		}
		return strings.Join(parts, "::")
	}
	if pathRoots[name] {
		return name
	}
	return renameSegment(name)
}

func renameSegment(name string) string {
	if rustKeywords[name] {
		return name + "_"
	}
	return name
}

// IsReserved reports whether name needs renaming before it can be emitted.
func IsReserved(name string) bool {
	return rustKeywords[name]
}
