package evaluator

import (
	"math"
	"strconv"
	"strings"
)

// maxInspectDepth bounds nesting so printing always terminates.
const maxInspectDepth = 64

// maxInspectItems bounds the total number of values one Inspect call renders.
const maxInspectItems = 100000

// inspector renders values, tracking the containers on the current path so a
// container reachable from itself prints as a marker instead of recursing.
type inspector struct {
	out    strings.Builder
	onPath map[Value]bool
	depth  int
	budget int
}

func inspect(v Value) string {
	in := &inspector{onPath: map[Value]bool{}, budget: maxInspectItems}
	in.write(v)
	return in.out.String()
}

// Display renders v the way println shows it: strings and chars are printed
// raw at the top level, everything else matches Inspect.
func Display(v Value) string {
	switch v := v.(type) {
	case *String:
		return v.Value
	case *Char:
		return string(v.Value)
	case nil:
		return "()"
	}
	return v.Inspect()
}

func (in *inspector) write(v Value) {
	in.budget--
	if in.budget < 0 {
		in.out.WriteString("...")
		return
	}
	if in.depth > maxInspectDepth {
		in.out.WriteString("...")
		return
	}

	switch v := v.(type) {
	case nil:
		in.out.WriteString("()")
	case *Integer:
		in.out.WriteString(strconv.FormatInt(v.Value, 10))
	case *Float:
		in.out.WriteString(FormatFloat(v.Value))
	case *String:
		in.out.WriteString(strconv.Quote(v.Value))
	case *Char:
		in.out.WriteString(strconv.QuoteRune(v.Value))
	case *Bool:
		in.out.WriteString(strconv.FormatBool(v.Value))
	case *Unit:
		in.out.WriteString("()")
	case *Nil:
		in.out.WriteString("nil")
	case *Range:
		in.out.WriteString(strconv.FormatInt(v.Start, 10))
		if v.Inclusive {
			in.out.WriteString("..=")
		} else {
			in.out.WriteString("..")
		}
		in.out.WriteString(strconv.FormatInt(v.End, 10))
	case *List:
		in.container(v, func() {
			in.out.WriteByte('[')
			in.values(v.Elements)
			in.out.WriteByte(']')
		})
	case *Tuple:
		in.container(v, func() {
			in.out.WriteByte('(')
			in.values(v.Elements)
			if len(v.Elements) == 1 {
				in.out.WriteByte(',')
			}
			in.out.WriteByte(')')
		})
	case *Object:
		in.container(v, func() { in.object(v) })
	case *HashMap:
		in.container(v, func() {
			in.out.WriteByte('{')
			for i, k := range v.Keys {
				if i > 0 {
					in.out.WriteString(", ")
				}
				in.write(k)
				in.out.WriteString(": ")
				in.write(v.Values[i])
			}
			in.out.WriteByte('}')
		})
	case *HashSet:
		in.container(v, func() {
			in.out.WriteByte('{')
			in.values(v.Elements)
			in.out.WriteByte('}')
		})
	case *EnumVariant:
		in.container(v, func() {
			if v.EnumName == "Option" || v.EnumName == "Result" || v.EnumName == "" {
				in.out.WriteString(v.VariantName)
			} else {
				in.out.WriteString(v.EnumName + "::" + v.VariantName)
			}
			if v.Data != nil {
				in.out.WriteByte('(')
				in.values(v.Data)
				in.out.WriteByte(')')
			}
		})
	case *DataFrame:
		in.container(v, func() { in.dataFrame(v) })
	default:
		in.out.WriteString(v.Inspect())
	}
}

func (in *inspector) container(v Value, body func()) {
	if in.onPath[v] {
		in.out.WriteString("<cycle>")
		return
	}
	in.onPath[v] = true
	in.depth++
	body()
	in.depth--
	delete(in.onPath, v)
}

func (in *inspector) values(vs []Value) {
	for i, e := range vs {
		if i > 0 {
			in.out.WriteString(", ")
		}
		in.write(e)
	}
}

func (in *inspector) object(o *Object) {
	if o.TypeName != "" {
		in.out.WriteString(o.TypeName)
		if len(o.Keys) == 0 {
			return
		}
		in.out.WriteString(" { ")
	} else {
		in.out.WriteByte('{')
	}
	for i, k := range o.Keys {
		if i > 0 {
			in.out.WriteString(", ")
		}
		in.out.WriteString(k)
		in.out.WriteString(": ")
		in.write(o.Fields[k])
	}
	if o.TypeName != "" {
		in.out.WriteString(" }")
	} else {
		in.out.WriteByte('}')
	}
}

// dataFrame renders a padded text table with a header separator.
func (in *inspector) dataFrame(df *DataFrame) {
	if len(df.Columns) == 0 {
		in.out.WriteString("DataFrame(empty)")
		return
	}
	rows := df.Rows()
	cells := make([][]string, len(df.Columns))
	widths := make([]int, len(df.Columns))
	for c, col := range df.Columns {
		widths[c] = len(col.Name)
		cells[c] = make([]string, rows)
		for r, v := range col.Values {
			cells[c][r] = Display(v)
			if n := len(cells[c][r]); n > widths[c] {
				widths[c] = n
			}
		}
	}

	line := func(get func(c int) string) {
		for c := range df.Columns {
			if c > 0 {
				in.out.WriteString(" | ")
			}
			s := get(c)
			in.out.WriteString(s)
			if c < len(df.Columns)-1 {
				in.out.WriteString(strings.Repeat(" ", widths[c]-len(s)))
			}
		}
	}
	line(func(c int) string { return df.Columns[c].Name })
	in.out.WriteByte('\n')
	for c := range df.Columns {
		if c > 0 {
			in.out.WriteString("-+-")
		}
		in.out.WriteString(strings.Repeat("-", widths[c]))
	}
	for r := 0; r < rows; r++ {
		in.out.WriteByte('\n')
		line(func(c int) string { return cells[c][r] })
	}
}

// FormatFloat renders f with NaN, inf, -inf and -0.0 spelled out and a
// trailing .0 on whole numbers.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == 0 && math.Signbit(f):
		return "-0.0"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
