// Package evaluator implements the Ruchy tree-walking interpreter: the
// runtime value model, lexical environments, the expression evaluator, the
// method tables and the DataFrame engine.
package evaluator

import (
	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
)

// ValueType names the kind of a runtime value
type ValueType string

const (
	INTEGER_VAL   = "integer"
	FLOAT_VAL     = "float"
	STRING_VAL    = "string"
	CHAR_VAL      = "char"
	BOOL_VAL      = "bool"
	UNIT_VAL      = "unit"
	NIL_VAL       = "nil"
	LIST_VAL      = "list"
	TUPLE_VAL     = "tuple"
	OBJECT_VAL    = "object"
	HASHMAP_VAL   = "hashmap"
	HASHSET_VAL   = "hashset"
	RANGE_VAL     = "range"
	ENUM_VAL      = "enum"
	FUNCTION_VAL  = "function"
	LAMBDA_VAL    = "lambda"
	BUILTIN_VAL   = "builtin"
	DATAFRAME_VAL = "dataframe"
	STRUCT_VAL    = "struct"
	ENUMTYPE_VAL  = "enum_type"
)

// Value is implemented by every runtime value
type Value interface {
	Type() ValueType
	Inspect() string
}

// Integer is a 64-bit signed integer with wrapping arithmetic
type Integer struct {
	Value int64
}

func (i *Integer) Type() ValueType { return INTEGER_VAL }
func (i *Integer) Inspect() string { return inspect(i) }

// Float is an IEEE 754 double
type Float struct {
	Value float64
}

func (f *Float) Type() ValueType { return FLOAT_VAL }
func (f *Float) Inspect() string { return inspect(f) }

// String is an immutable UTF-8 string
type String struct {
	Value string
}

func (s *String) Type() ValueType { return STRING_VAL }
func (s *String) Inspect() string { return inspect(s) }

// Char is a single Unicode scalar value
type Char struct {
	Value rune
}

func (c *Char) Type() ValueType { return CHAR_VAL }
func (c *Char) Inspect() string { return inspect(c) }

type Bool struct {
	Value bool
}

func (b *Bool) Type() ValueType { return BOOL_VAL }
func (b *Bool) Inspect() string { return inspect(b) }

// Unit is the value of statements and empty blocks
type Unit struct{}

func (u *Unit) Type() ValueType { return UNIT_VAL }
func (u *Unit) Inspect() string { return "()" }

type Nil struct{}

func (n *Nil) Type() ValueType { return NIL_VAL }
func (n *Nil) Inspect() string { return "nil" }

// List is an immutable sequence; operations that change it return a copy
type List struct {
	Elements []Value
}

func (l *List) Type() ValueType { return LIST_VAL }
func (l *List) Inspect() string { return inspect(l) }

// Tuple is a fixed-size immutable sequence
type Tuple struct {
	Elements []Value
}

func (t *Tuple) Type() ValueType { return TUPLE_VAL }
func (t *Tuple) Inspect() string { return inspect(t) }

// Object is an insertion-ordered string-keyed record. Struct instances are
// Objects whose TypeName names the struct.
type Object struct {
	TypeName string
	Keys     []string
	Fields   map[string]Value
}

func (o *Object) Type() ValueType { return OBJECT_VAL }
func (o *Object) Inspect() string { return inspect(o) }

// Get returns the field value and whether it exists.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.Fields[key]
	return v, ok
}

// With returns a copy of o with key set to v, keeping key order.
func (o *Object) With(key string, v Value) *Object {
	out := o.copy()
	if _, exists := out.Fields[key]; !exists {
		out.Keys = append(out.Keys, key)
	}
	out.Fields[key] = v
	return out
}

// Without returns a copy of o with key removed.
func (o *Object) Without(key string) *Object {
	out := &Object{TypeName: o.TypeName, Fields: make(map[string]Value, len(o.Fields))}
	for _, k := range o.Keys {
		if k == key {
			continue
		}
		out.Keys = append(out.Keys, k)
		out.Fields[k] = o.Fields[k]
	}
	return out
}

func (o *Object) copy() *Object {
	out := &Object{
		TypeName: o.TypeName,
		Keys:     append([]string(nil), o.Keys...),
		Fields:   make(map[string]Value, len(o.Fields)+1),
	}
	for k, v := range o.Fields {
		out.Fields[k] = v
	}
	return out
}

// NewObject builds an Object from parallel keys and values.
func NewObject(keys []string, values []Value) *Object {
	obj := &Object{Keys: make([]string, 0, len(keys)), Fields: make(map[string]Value, len(keys))}
	for i, k := range keys {
		if _, exists := obj.Fields[k]; !exists {
			obj.Keys = append(obj.Keys, k)
		}
		obj.Fields[k] = values[i]
	}
	return obj
}

// HashMap maps arbitrary values to values, iterating in insertion order
type HashMap struct {
	Keys   []Value
	Values []Value
	index  map[string]int
}

func (h *HashMap) Type() ValueType { return HASHMAP_VAL }
func (h *HashMap) Inspect() string { return inspect(h) }

// NewHashMap returns an empty HashMap.
func NewHashMap() *HashMap {
	return &HashMap{index: map[string]int{}}
}

// Get looks up key.
func (h *HashMap) Get(key Value) (Value, bool) {
	i, ok := h.index[hashKey(key)]
	if !ok {
		return nil, false
	}
	return h.Values[i], true
}

// Len returns the number of entries.
func (h *HashMap) Len() int { return len(h.Keys) }

// With returns a copy of h with key set to value.
func (h *HashMap) With(key, value Value) *HashMap {
	out := h.copy()
	k := hashKey(key)
	if i, ok := out.index[k]; ok {
		out.Values[i] = value
		return out
	}
	out.index[k] = len(out.Keys)
	out.Keys = append(out.Keys, key)
	out.Values = append(out.Values, value)
	return out
}

// Without returns a copy of h with key removed.
func (h *HashMap) Without(key Value) *HashMap {
	out := NewHashMap()
	drop := hashKey(key)
	for i, k := range h.Keys {
		if hashKey(k) == drop {
			continue
		}
		out.index[hashKey(k)] = len(out.Keys)
		out.Keys = append(out.Keys, k)
		out.Values = append(out.Values, h.Values[i])
	}
	return out
}

func (h *HashMap) copy() *HashMap {
	out := &HashMap{
		Keys:   append([]Value(nil), h.Keys...),
		Values: append([]Value(nil), h.Values...),
		index:  make(map[string]int, len(h.index)+1),
	}
	for k, v := range h.index {
		out.index[k] = v
	}
	return out
}

// HashSet is a set of values, iterating in insertion order
type HashSet struct {
	Elements []Value
	index    map[string]int
}

func (s *HashSet) Type() ValueType { return HASHSET_VAL }
func (s *HashSet) Inspect() string { return inspect(s) }

// NewHashSet returns a set holding the distinct values of elems.
func NewHashSet(elems ...Value) *HashSet {
	s := &HashSet{index: map[string]int{}}
	for _, e := range elems {
		s.add(e)
	}
	return s
}

func (s *HashSet) add(v Value) bool {
	k := hashKey(v)
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.Elements)
	s.Elements = append(s.Elements, v)
	return true
}

// Contains reports whether v is in the set.
func (s *HashSet) Contains(v Value) bool {
	_, ok := s.index[hashKey(v)]
	return ok
}

// With returns a copy of s including v.
func (s *HashSet) With(v Value) *HashSet {
	out := NewHashSet(s.Elements...)
	out.add(v)
	return out
}

// Without returns a copy of s excluding v.
func (s *HashSet) Without(v Value) *HashSet {
	drop := hashKey(v)
	out := NewHashSet()
	for _, e := range s.Elements {
		if hashKey(e) != drop {
			out.add(e)
		}
	}
	return out
}

// Range is an integer range. Exclusive ranges stop before End.
type Range struct {
	Start     int64
	End       int64
	Inclusive bool
}

func (r *Range) Type() ValueType { return RANGE_VAL }
func (r *Range) Inspect() string { return inspect(r) }

// Len returns the number of integers in the range.
func (r *Range) Len() int64 {
	end := r.End
	if r.Inclusive {
		end++
	}
	if end <= r.Start {
		return 0
	}
	return end - r.Start
}

// EnumVariant is a value of an enum. Data is nil for unit variants.
type EnumVariant struct {
	EnumName    string
	VariantName string
	Data        []Value
}

func (e *EnumVariant) Type() ValueType { return ENUM_VAL }
func (e *EnumVariant) Inspect() string { return inspect(e) }

// Function is a named function with the environment it was defined in
type Function struct {
	Name   string
	Params []ast.Param
	Body   *ast.Expr
	Env    *Environment
}

func (f *Function) Type() ValueType { return FUNCTION_VAL }
func (f *Function) Inspect() string { return "fn " + f.Name + "(" + paramNames(f.Params) + ")" }

// Lambda is an anonymous closure over the environment that created it
type Lambda struct {
	Params []ast.Param
	Body   *ast.Expr
	Env    *Environment
}

func (l *Lambda) Type() ValueType { return LAMBDA_VAL }
func (l *Lambda) Inspect() string { return "|" + paramNames(l.Params) + "| <closure>" }

func paramNames(params []ast.Param) string {
	out := ""
	for i, p := range params {
		if i > 0 {
			out += ", "
		}
		if p.Pattern != nil {
			out += p.Pattern.String()
		} else {
			out += p.Name
		}
	}
	return out
}

// BuiltinFunction is the Go implementation of a builtin
type BuiltinFunction func(env *Environment, args ...Value) (Value, error)

// Builtin is a function implemented in Go
type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Type() ValueType { return BUILTIN_VAL }
func (b *Builtin) Inspect() string { return "builtin fn " + b.Name }

// Column is one named column of a DataFrame
type Column struct {
	Name   string
	Values []Value
}

// DataFrame is a sequence of equal-length named columns
type DataFrame struct {
	Columns []Column
}

func (d *DataFrame) Type() ValueType { return DATAFRAME_VAL }
func (d *DataFrame) Inspect() string { return inspect(d) }

// Rows returns the number of rows.
func (d *DataFrame) Rows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// Column returns the named column.
func (d *DataFrame) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// StructType is the runtime value of a struct declaration
type StructType struct {
	Name   string
	Fields []ast.StructField
	Env    *Environment
}

func (s *StructType) Type() ValueType { return STRUCT_VAL }
func (s *StructType) Inspect() string { return "struct " + s.Name }

// EnumType is the runtime value of an enum declaration
type EnumType struct {
	Name     string
	Variants []ast.EnumVariantDef
}

func (e *EnumType) Type() ValueType { return ENUMTYPE_VAL }
func (e *EnumType) Inspect() string { return "enum " + e.Name }

// Shared immutable singletons
var (
	UNIT  = &Unit{}
	NIL   = &Nil{}
	TRUE  = &Bool{Value: true}
	FALSE = &Bool{Value: false}
)

func nativeBoolToBool(b bool) *Bool {
	if b {
		return TRUE
	}
	return FALSE
}

// Some wraps v in Option::Some.
func Some(v Value) *EnumVariant {
	return &EnumVariant{EnumName: "Option", VariantName: "Some", Data: []Value{v}}
}

// None is Option::None.
var None = &EnumVariant{EnumName: "Option", VariantName: "None"}

// Ok wraps v in Result::Ok.
func Ok(v Value) *EnumVariant {
	return &EnumVariant{EnumName: "Result", VariantName: "Ok", Data: []Value{v}}
}

// Err wraps v in Result::Err.
func Err(v Value) *EnumVariant {
	return &EnumVariant{EnumName: "Result", VariantName: "Err", Data: []Value{v}}
}

func isVariant(v Value, name string) bool {
	ev, ok := v.(*EnumVariant)
	return ok && ev.VariantName == name
}

// TypeName returns the user-facing kind of v, as reported by type_of and
// :types. Struct instances report their struct name.
func TypeName(v Value) string {
	switch v := v.(type) {
	case nil:
		return "unit"
	case *Object:
		if v.TypeName != "" {
			return v.TypeName
		}
	case *EnumVariant:
		if v.EnumName != "" {
			return v.EnumName
		}
	}
	return string(v.Type())
}

func isCallable(v Value) bool {
	switch v.(type) {
	case *Function, *Lambda, *Builtin:
		return true
	}
	return false
}

func isNumber(v Value) bool {
	switch v.(type) {
	case *Integer, *Float:
		return true
	}
	return false
}

func toFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case *Integer:
		return float64(v.Value), true
	case *Float:
		return v.Value, true
	}
	return 0, false
}
