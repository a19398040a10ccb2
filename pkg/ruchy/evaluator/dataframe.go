package evaluator

import (
	"math"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// DataFrame engine: the relational operations return new frames and never
// modify their inputs.

func evalDataFrameLiteral(node *ast.DataFrame, env *Environment) (Value, error) {
	df := &DataFrame{Columns: make([]Column, 0, len(node.Columns))}
	for _, col := range node.Columns {
		values, err := evalElements(col.Values, env)
		if err != nil {
			return nil, err
		}
		df, err = WithColumn(df, col.Name, values)
		if err != nil {
			return nil, err
		}
	}
	return df, nil
}

// evalDataFrameOp runs a relational method. Receivers that are not
// DataFrames fall back to ordinary method dispatch, so `list.filter(f)`
// still reaches the list method table.
func evalDataFrameOp(node *ast.DataFrameOp, env *Environment) (Value, error) {
	src, err := Eval(node.Source, env)
	if err != nil {
		return nil, err
	}
	df, ok := src.(*DataFrame)
	if !ok {
		args, err := evalArgs(node.Args, env)
		if err != nil {
			return nil, err
		}
		return callMethod(src, node.Method, args, env, node.Source)
	}

	if node.Op == ast.DFFilter {
		if len(node.Args) != 1 {
			return nil, perrors.Arity("1", len(node.Args))
		}
		return filterByExpr(df, node.Args[0], env)
	}
	args, err := evalArgs(node.Args, env)
	if err != nil {
		return nil, err
	}
	return dispatchFromRegistry(df, node.Method, args, env)
}

// filterByExpr keeps the rows for which pred is true. A closure is called
// with the row object; any other expression is evaluated per row with the
// row's cells bound to their column names.
func filterByExpr(df *DataFrame, pred *ast.Expr, env *Environment) (Value, error) {
	if _, isLambda := pred.Kind.(*ast.Lambda); isLambda {
		fn, err := Eval(pred, env)
		if err != nil {
			return nil, err
		}
		return Filter(df, func(row *Object) (Value, error) { return callValue(fn, env, row) })
	}
	if id, isIdent := pred.Kind.(*ast.Identifier); isIdent {
		if _, isColumn := df.Column(id.Name); !isColumn {
			if fn, ok := env.Get(id.Name); ok && isCallable(fn) {
				return Filter(df, func(row *Object) (Value, error) { return callValue(fn, env, row) })
			}
		}
	}
	return Filter(df, func(row *Object) (Value, error) {
		scope := NewEnclosedEnvironment(env)
		for _, k := range row.Keys {
			scope.Define(k, row.Fields[k], false)
		}
		return Eval(pred, scope)
	})
}

// dataFrameRow returns row r as an object keyed by column name.
func dataFrameRow(df *DataFrame, r int) *Object {
	row := &Object{Keys: make([]string, 0, len(df.Columns)), Fields: make(map[string]Value, len(df.Columns))}
	for _, c := range df.Columns {
		row.Keys = append(row.Keys, c.Name)
		row.Fields[c.Name] = c.Values[r]
	}
	return row
}

// dataFrameSlice takes up to length rows from start, clamped to the frame.
func dataFrameSlice(df *DataFrame, start, length int) *DataFrame {
	out := &DataFrame{Columns: make([]Column, len(df.Columns))}
	for i, c := range df.Columns {
		lo := max(0, min(start, len(c.Values)))
		hi := lo + max(0, min(length, len(c.Values)-lo))
		out.Columns[i] = Column{Name: c.Name, Values: append([]Value{}, c.Values[lo:hi]...)}
	}
	return out
}

// WithColumn returns a copy of df with the named column added, or replaced
// if it already exists. Its length must match the existing rows.
func WithColumn(df *DataFrame, name string, values []Value) (*DataFrame, error) {
	if len(df.Columns) > 0 && len(values) != df.Rows() {
		return nil, perrors.Runtime("column '%s' has %d values but the DataFrame has %d rows", name, len(values), df.Rows())
	}
	out := &DataFrame{Columns: make([]Column, 0, len(df.Columns)+1)}
	replaced := false
	for _, c := range df.Columns {
		if c.Name == name {
			c = Column{Name: name, Values: values}
			replaced = true
		}
		out.Columns = append(out.Columns, c)
	}
	if !replaced {
		out.Columns = append(out.Columns, Column{Name: name, Values: values})
	}
	return out, nil
}

// Select returns the named columns in the order given.
func Select(df *DataFrame, names []string) (*DataFrame, error) {
	out := &DataFrame{Columns: make([]Column, 0, len(names))}
	for _, name := range names {
		col, ok := df.Column(name)
		if !ok {
			return nil, perrors.Runtime("column '%s' not found in DataFrame", name)
		}
		out.Columns = append(out.Columns, col)
	}
	return out, nil
}

// Sum adds every numeric cell. A whole-number total is an Integer.
func Sum(df *DataFrame) Value {
	total := 0.0
	for _, c := range df.Columns {
		for _, v := range c.Values {
			if f, ok := toFloat(v); ok {
				total += f
			}
		}
	}
	return wholeOrFloat(total)
}

func wholeOrFloat(f float64) Value {
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return &Integer{Value: int64(f)}
	}
	return &Float{Value: f}
}

// Slice takes length rows from start, clamping both to the frame.
func Slice(df *DataFrame, start, length int64) *DataFrame {
	rows := int64(df.Rows())
	start = max(0, min(start, rows))
	length = max(0, min(length, rows-start))
	return dataFrameSlice(df, int(start), int(length))
}

// Join is an inner equi-join on a column present in both frames. The
// result holds the left columns, then the right columns other than on,
// each renamed with a _right suffix. Rows pair up in left-then-right order.
func Join(left, right *DataFrame, on string) (*DataFrame, error) {
	lkey, ok := left.Column(on)
	if !ok {
		return nil, perrors.Runtime("join column '%s' not found in left DataFrame", on)
	}
	rkey, ok := right.Column(on)
	if !ok {
		return nil, perrors.Runtime("join column '%s' not found in right DataFrame", on)
	}

	out := &DataFrame{}
	for _, c := range left.Columns {
		out.Columns = append(out.Columns, Column{Name: c.Name, Values: []Value{}})
	}
	var rightCols []Column
	for _, c := range right.Columns {
		if c.Name == on {
			continue
		}
		rightCols = append(rightCols, c)
		out.Columns = append(out.Columns, Column{Name: c.Name + "_right", Values: []Value{}})
	}

	for li, lv := range lkey.Values {
		for ri, rv := range rkey.Values {
			if !valuesEqual(lv, rv) {
				continue
			}
			for i, c := range left.Columns {
				out.Columns[i].Values = append(out.Columns[i].Values, c.Values[li])
			}
			for j, c := range rightCols {
				k := len(left.Columns) + j
				out.Columns[k].Values = append(out.Columns[k].Values, c.Values[ri])
			}
		}
	}
	return out, nil
}

// GroupBy returns one row per distinct key, in order of first appearance.
// Every other numeric column is summed per group into <name>_sum; columns
// holding anything but numbers are dropped.
func GroupBy(df *DataFrame, column string) (*DataFrame, error) {
	keyCol, ok := df.Column(column)
	if !ok {
		return nil, perrors.Runtime("group column '%s' not found in DataFrame", column)
	}

	var keys []Value
	var groups [][]int
	index := map[string]int{}
	for r, v := range keyCol.Values {
		h := hashKey(v)
		g, seen := index[h]
		if !seen {
			g = len(keys)
			index[h] = g
			keys = append(keys, v)
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], r)
	}

	out := &DataFrame{Columns: []Column{{Name: column, Values: keys}}}
	for _, c := range df.Columns {
		if c.Name == column || !numericColumn(c) {
			continue
		}
		sums := make([]Value, len(groups))
		for g, rows := range groups {
			cells := make([]Value, len(rows))
			for i, r := range rows {
				cells[i] = c.Values[r]
			}
			sums[g] = sumValues(cells)
		}
		out.Columns = append(out.Columns, Column{Name: c.Name + "_sum", Values: sums})
	}
	return out, nil
}

func numericColumn(c Column) bool {
	for _, v := range c.Values {
		if !isNumber(v) {
			return false
		}
	}
	return len(c.Values) > 0
}

// Filter keeps the rows for which pred returns true. Any result other than
// a Bool is an error.
func Filter(df *DataFrame, pred func(row *Object) (Value, error)) (*DataFrame, error) {
	var keep []int
	for r := 0; r < df.Rows(); r++ {
		v, err := pred(dataFrameRow(df, r))
		if err != nil {
			return nil, err
		}
		b, ok := v.(*Bool)
		if !ok {
			return nil, perrors.Runtime("DataFrame filter predicate must return a bool, got %s", TypeName(v))
		}
		if b.Value {
			keep = append(keep, r)
		}
	}
	out := &DataFrame{Columns: make([]Column, len(df.Columns))}
	for i, c := range df.Columns {
		values := make([]Value, len(keep))
		for j, r := range keep {
			values[j] = c.Values[r]
		}
		out.Columns[i] = Column{Name: c.Name, Values: values}
	}
	return out, nil
}

// DataFrameMethodRegistry defines all methods available on DataFrame values.
var DataFrameMethodRegistry MethodRegistry

func init() {
	DataFrameMethodRegistry = MethodRegistry{
		"select":      {Fn: dfSelect, Arity: "1+", Description: "Columns by name, in the order given"},
		"filter":      {Fn: dfFilter, Arity: "1", Description: "Rows for which a function of the row is true"},
		"groupby":     {Fn: dfGroupBy, Arity: "1", Description: "One row per key with numeric columns summed"},
		"group_by":    {Fn: dfGroupBy, Arity: "1", Description: "One row per key with numeric columns summed"},
		"join":        {Fn: dfJoin, Arity: "2", Description: "Inner join with another DataFrame on a column"},
		"slice":       {Fn: dfSlice, Arity: "2", Description: "length rows from start"},
		"sum":         {Fn: dfSum, Arity: "0", Description: "Sum of all numeric cells"},
		"head":        {Fn: dfHead, Arity: "0-1", Description: "First n rows (default 5)"},
		"tail":        {Fn: dfTail, Arity: "0-1", Description: "Last n rows (default 5)"},
		"columns":     {Fn: dfColumns, Arity: "0", Description: "Column names"},
		"rows":        {Fn: dfRows, Arity: "0", Description: "Number of rows"},
		"len":         {Fn: dfRows, Arity: "0", Description: "Number of rows"},
		"shape":       {Fn: dfShape, Arity: "0", Description: "(rows, columns)"},
		"column":      {Fn: dfColumn, Arity: "1-2", Description: "A column's values, or with values a frame with that column added"},
		"with_column": {Fn: dfWithColumn, Arity: "2", Description: "Frame with a column added or replaced"},
		"get":         {Fn: dfGet, Arity: "1", Description: "Row at an index as an Option"},
		"to_list":     {Fn: dfToList, Arity: "0", Description: "Rows as a list of objects"},
		"build":       {Fn: dfBuild, Arity: "0", Description: "The frame itself; ends a builder chain"},
	}
	RegisterMethodRegistry(DATAFRAME_VAL, DataFrameMethodRegistry)
}

func columnNames(args []Value) ([]string, error) {
	var names []string
	for _, a := range args {
		switch v := a.(type) {
		case *String:
			names = append(names, v.Value)
		case *List:
			for i := range v.Elements {
				s, err := stringArg(v.Elements, i, "select")
				if err != nil {
					return nil, err
				}
				names = append(names, s)
			}
		default:
			return nil, perrors.TypeMismatch("select", STRING_VAL, TypeName(a))
		}
	}
	return names, nil
}

func dfSelect(receiver Value, args []Value, _ *Environment) (Value, error) {
	names, err := columnNames(args)
	if err != nil {
		return nil, err
	}
	return Select(receiver.(*DataFrame), names)
}

func dfFilter(receiver Value, args []Value, env *Environment) (Value, error) {
	if !isCallable(args[0]) {
		return nil, perrors.NotCallable(args[0].Inspect())
	}
	return Filter(receiver.(*DataFrame), func(row *Object) (Value, error) {
		return callValue(args[0], env, row)
	})
}

func dfGroupBy(receiver Value, args []Value, _ *Environment) (Value, error) {
	name, err := stringArg(args, 0, "groupby")
	if err != nil {
		return nil, err
	}
	return GroupBy(receiver.(*DataFrame), name)
}

func dfJoin(receiver Value, args []Value, _ *Environment) (Value, error) {
	other, ok := args[0].(*DataFrame)
	if !ok {
		return nil, perrors.TypeMismatch("join", DATAFRAME_VAL, TypeName(args[0]))
	}
	on, err := stringArg(args, 1, "join")
	if err != nil {
		return nil, err
	}
	return Join(receiver.(*DataFrame), other, on)
}

func dfSlice(receiver Value, args []Value, _ *Environment) (Value, error) {
	start, err := intArg(args, 0, "slice")
	if err != nil {
		return nil, err
	}
	length, err := intArg(args, 1, "slice")
	if err != nil {
		return nil, err
	}
	return Slice(receiver.(*DataFrame), start, length), nil
}

func dfSum(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return Sum(receiver.(*DataFrame)), nil
}

func rowCount(args []Value, method string) (int64, error) {
	if len(args) == 0 {
		return 5, nil
	}
	return intArg(args, 0, method)
}

func dfHead(receiver Value, args []Value, _ *Environment) (Value, error) {
	n, err := rowCount(args, "head")
	if err != nil {
		return nil, err
	}
	return Slice(receiver.(*DataFrame), 0, n), nil
}

func dfTail(receiver Value, args []Value, _ *Environment) (Value, error) {
	n, err := rowCount(args, "tail")
	if err != nil {
		return nil, err
	}
	df := receiver.(*DataFrame)
	rows := int64(df.Rows())
	return Slice(df, max(0, rows-n), n), nil
}

func dfColumns(receiver Value, _ []Value, _ *Environment) (Value, error) {
	df := receiver.(*DataFrame)
	names := make([]string, len(df.Columns))
	for i, c := range df.Columns {
		names[i] = c.Name
	}
	return stringsToList(names), nil
}

func dfRows(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &Integer{Value: int64(receiver.(*DataFrame).Rows())}, nil
}

func dfShape(receiver Value, _ []Value, _ *Environment) (Value, error) {
	df := receiver.(*DataFrame)
	return &Tuple{Elements: []Value{&Integer{Value: int64(df.Rows())}, &Integer{Value: int64(len(df.Columns))}}}, nil
}

func dfColumn(receiver Value, args []Value, env *Environment) (Value, error) {
	if len(args) == 2 {
		return dfWithColumn(receiver, args, env)
	}
	name, err := stringArg(args, 0, "column")
	if err != nil {
		return nil, err
	}
	col, ok := receiver.(*DataFrame).Column(name)
	if !ok {
		return nil, perrors.Runtime("column '%s' not found in DataFrame", name)
	}
	return &List{Elements: append([]Value(nil), col.Values...)}, nil
}

func dfWithColumn(receiver Value, args []Value, _ *Environment) (Value, error) {
	name, err := stringArg(args, 0, "with_column")
	if err != nil {
		return nil, err
	}
	values, err := iterableValues(args[1])
	if err != nil {
		return nil, err
	}
	return WithColumn(receiver.(*DataFrame), name, append([]Value(nil), values...))
}

func dfGet(receiver Value, args []Value, _ *Environment) (Value, error) {
	i, err := intArg(args, 0, "get")
	if err != nil {
		return nil, err
	}
	df := receiver.(*DataFrame)
	if i < 0 || i >= int64(df.Rows()) {
		return None, nil
	}
	return Some(dataFrameRow(df, int(i))), nil
}

func dfToList(receiver Value, _ []Value, _ *Environment) (Value, error) {
	rows, err := iterableValues(receiver)
	if err != nil {
		return nil, err
	}
	return &List{Elements: rows}, nil
}

func dfBuild(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return receiver, nil
}
