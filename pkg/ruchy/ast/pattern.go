package ast

import (
	"fmt"
	"strings"
)

// Pattern is implemented by every pattern variant used in let, match, for,
// catch and parameter positions.
type Pattern interface {
	patternNode()
	String() string
}

// WildcardPattern is `_`.
type WildcardPattern struct{}

func (WildcardPattern) String() string { return "_" }

// IdentifierPattern binds the whole value to Name.
type IdentifierPattern struct {
	Name      string
	IsMutable bool
}

func (p *IdentifierPattern) String() string {
	if p.IsMutable {
		return "mut " + p.Name
	}
	return p.Name
}

// LiteralPattern matches a constant by equality.
type LiteralPattern struct {
	Value *Literal
}

func (p *LiteralPattern) String() string { return p.Value.String() }

// TuplePattern matches a tuple of the same arity.
type TuplePattern struct {
	Elements []Pattern
}

func (p *TuplePattern) String() string { return "(" + joinPatterns(p.Elements) + ")" }

// RestPattern is `..` or `..name` inside a list pattern.
type RestPattern struct {
	Name string
}

func (p *RestPattern) String() string { return ".." + p.Name }

// ListPattern matches a list. At most one element may be a RestPattern.
type ListPattern struct {
	Elements []Pattern
}

func (p *ListPattern) String() string { return "[" + joinPatterns(p.Elements) + "]" }

// RestIndex returns the position of the rest element, or -1.
func (p *ListPattern) RestIndex() int {
	for i, e := range p.Elements {
		if _, ok := e.(*RestPattern); ok {
			return i
		}
	}
	return -1
}

// FieldPattern is `key: pattern` in object and struct patterns. A shorthand
// `{ x }` has Pattern set to an IdentifierPattern named x.
type FieldPattern struct {
	Key     string
	Pattern Pattern
}

// ObjectPattern matches objects that have at least the listed keys.
type ObjectPattern struct {
	Fields []FieldPattern
	Rest   bool
}

func (p *ObjectPattern) String() string {
	return "{" + joinFieldPatterns(p.Fields, p.Rest) + "}"
}

// StructPattern matches struct instances of type Name.
type StructPattern struct {
	Name   string
	Fields []FieldPattern
	Rest   bool
}

func (p *StructPattern) String() string {
	return p.Name + " { " + joinFieldPatterns(p.Fields, p.Rest) + " }"
}

// RangePattern matches numbers and chars inside a range.
type RangePattern struct {
	Start     *Literal
	End       *Literal
	Inclusive bool
}

func (p *RangePattern) String() string {
	op := ".."
	if p.Inclusive {
		op = "..="
	}
	return p.Start.String() + op + p.End.String()
}

// EnumPattern matches an enum variant (Some(x), Color::Red, Ok(v)). Args is
// nil for unit variants.
type EnumPattern struct {
	Name string
	Args []Pattern
}

func (p *EnumPattern) String() string {
	if p.Args == nil {
		return p.Name
	}
	return p.Name + "(" + joinPatterns(p.Args) + ")"
}

// VariantName returns the last path segment of Name.
func (p *EnumPattern) VariantName() string {
	if i := strings.LastIndex(p.Name, "::"); i >= 0 {
		return p.Name[i+2:]
	}
	return p.Name
}

// OrPattern matches when any alternative matches.
type OrPattern struct {
	Alternatives []Pattern
}

func (p *OrPattern) String() string {
	parts := make([]string, len(p.Alternatives))
	for i, a := range p.Alternatives {
		parts[i] = a.String()
	}
	return strings.Join(parts, " | ")
}

func (WildcardPattern) patternNode()    {}
func (*IdentifierPattern) patternNode() {}
func (*LiteralPattern) patternNode()    {}
func (*TuplePattern) patternNode()      {}
func (*RestPattern) patternNode()       {}
func (*ListPattern) patternNode()       {}
func (*ObjectPattern) patternNode()     {}
func (*StructPattern) patternNode()     {}
func (*RangePattern) patternNode()      {}
func (*EnumPattern) patternNode()       {}
func (*OrPattern) patternNode()         {}

func joinPatterns(ps []Pattern) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

func joinFieldPatterns(fields []FieldPattern, rest bool) string {
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		if ip, ok := f.Pattern.(*IdentifierPattern); ok && ip.Name == f.Key && !ip.IsMutable {
			parts = append(parts, f.Key)
			continue
		}
		parts = append(parts, f.Key+": "+f.Pattern.String())
	}
	if rest {
		parts = append(parts, "..")
	}
	return strings.Join(parts, ", ")
}

// PatternBindings returns the names a pattern binds, in source order.
// For an OrPattern the bindings of the first alternative are returned.
func PatternBindings(p Pattern) []string {
	var names []string
	collectBindings(p, &names)
	return names
}

func collectBindings(p Pattern, names *[]string) {
	switch p := p.(type) {
	case *IdentifierPattern:
		*names = append(*names, p.Name)
	case *RestPattern:
		if p.Name != "" {
			*names = append(*names, p.Name)
		}
	case *TuplePattern:
		for _, e := range p.Elements {
			collectBindings(e, names)
		}
	case *ListPattern:
		for _, e := range p.Elements {
			collectBindings(e, names)
		}
	case *ObjectPattern:
		for _, f := range p.Fields {
			collectBindings(f.Pattern, names)
		}
	case *StructPattern:
		for _, f := range p.Fields {
			collectBindings(f.Pattern, names)
		}
	case *EnumPattern:
		for _, a := range p.Args {
			collectBindings(a, names)
		}
	case *OrPattern:
		if len(p.Alternatives) > 0 {
			collectBindings(p.Alternatives[0], names)
		}
	}
}

// ValidatePattern checks that bindings are linear (no name bound twice),
// that a list pattern has at most one rest element, and that every
// alternative of an or-pattern binds the same set of names.
func ValidatePattern(p Pattern) error {
	seen := map[string]bool{}
	for _, name := range PatternBindings(p) {
		if seen[name] {
			return fmt.Errorf("duplicate binding '%s' in pattern", name)
		}
		seen[name] = true
	}
	return validateShape(p)
}

func validateShape(p Pattern) error {
	switch p := p.(type) {
	case *ListPattern:
		rests := 0
		for _, e := range p.Elements {
			if _, ok := e.(*RestPattern); ok {
				rests++
			}
			if err := validateShape(e); err != nil {
				return err
			}
		}
		if rests > 1 {
			return fmt.Errorf("list pattern %s has more than one rest element", p)
		}
	case *TuplePattern:
		for _, e := range p.Elements {
			if err := validateShape(e); err != nil {
				return err
			}
		}
	case *ObjectPattern:
		for _, f := range p.Fields {
			if err := validateShape(f.Pattern); err != nil {
				return err
			}
		}
	case *StructPattern:
		for _, f := range p.Fields {
			if err := validateShape(f.Pattern); err != nil {
				return err
			}
		}
	case *EnumPattern:
		for _, a := range p.Args {
			if err := validateShape(a); err != nil {
				return err
			}
		}
	case *OrPattern:
		var first map[string]bool
		for i, alt := range p.Alternatives {
			if err := validateShape(alt); err != nil {
				return err
			}
			set := map[string]bool{}
			for _, n := range PatternBindings(alt) {
				set[n] = true
			}
			if i == 0 {
				first = set
				continue
			}
			if !sameNames(first, set) {
				return fmt.Errorf("alternatives of %s bind different names", p)
			}
		}
	}
	return nil
}

func sameNames(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// IsIrrefutable reports whether p matches every value of a compatible shape
// without testing constants or variants.
func IsIrrefutable(p Pattern) bool {
	switch p := p.(type) {
	case WildcardPattern, *IdentifierPattern, *RestPattern:
		return true
	case *TuplePattern:
		for _, e := range p.Elements {
			if !IsIrrefutable(e) {
				return false
			}
		}
		return true
	case *ObjectPattern:
		for _, f := range p.Fields {
			if !IsIrrefutable(f.Pattern) {
				return false
			}
		}
		return true
	}
	return false
}
