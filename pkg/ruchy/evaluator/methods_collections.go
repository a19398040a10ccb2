package evaluator

import (
	"sort"
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// ListMethodRegistry defines all methods available on list values.
var ListMethodRegistry MethodRegistry

func init() {
	ListMethodRegistry = MethodRegistry{
		"len":           {Fn: listLen, Arity: "0", Description: "Number of elements"},
		"length":        {Fn: listLen, Arity: "0", Description: "Number of elements"},
		"is_empty":      {Fn: listIsEmpty, Arity: "0", Description: "Check for no elements"},
		"first":         {Fn: listFirst, Arity: "0", Description: "First element as an Option"},
		"last":          {Fn: listLast, Arity: "0", Description: "Last element as an Option"},
		"get":           {Fn: listGet, Arity: "1", Description: "Element at an index as an Option"},
		"contains":      {Fn: listContains, Arity: "1", Description: "Check for an element"},
		"includes":      {Fn: listContains, Arity: "1", Description: "Check for an element"},
		"index_of":      {Fn: listIndexOf, Arity: "1", Description: "Index of an element as an Option"},
		"map":           {Fn: listMap, Arity: "1", Description: "Apply a function to each element"},
		"filter":        {Fn: listFilter, Arity: "1", Description: "Keep elements matching a predicate"},
		"reduce":        {Fn: listReduce, Arity: "1-2", Description: "Fold elements with a function"},
		"fold":          {Fn: listFold, Arity: "2", Description: "Fold elements from an initial value"},
		"for_each":      {Fn: listForEach, Arity: "1", Description: "Call a function for each element"},
		"any":           {Fn: listAny, Arity: "1", Description: "Check if any element matches"},
		"all":           {Fn: listAll, Arity: "1", Description: "Check if every element matches"},
		"find":          {Fn: listFind, Arity: "1", Description: "First matching element as an Option"},
		"position":      {Fn: listPosition, Arity: "1", Description: "Index of the first match as an Option"},
		"count":         {Fn: listCount, Arity: "0-1", Description: "Count elements, optionally matching a predicate"},
		"flat_map":      {Fn: listFlatMap, Arity: "1", Description: "Map then flatten one level"},
		"flatten":       {Fn: listFlatten, Arity: "0", Description: "Flatten one level"},
		"zip":           {Fn: listZip, Arity: "1", Description: "Pair elements with another sequence"},
		"enumerate":     {Fn: listEnumerate, Arity: "0", Description: "Pair each element with its index"},
		"take":          {Fn: listTake, Arity: "1", Description: "First n elements"},
		"skip":          {Fn: listSkip, Arity: "1", Description: "All but the first n elements"},
		"slice":         {Fn: listSlice, Arity: "1-2", Description: "Elements from start up to end"},
		"chunks":        {Fn: listChunks, Arity: "1", Description: "Split into lists of n elements"},
		"windows":       {Fn: listWindows, Arity: "1", Description: "Overlapping sublists of n elements"},
		"sum":           {Fn: listSum, Arity: "0", Description: "Sum of numeric elements"},
		"product":       {Fn: listProduct, Arity: "0", Description: "Product of numeric elements"},
		"min":           {Fn: listMin, Arity: "0", Description: "Smallest element as an Option"},
		"max":           {Fn: listMax, Arity: "0", Description: "Largest element as an Option"},
		"join":          {Fn: listJoin, Arity: "0-1", Description: "Join elements into a string"},
		"reverse":       {Fn: listReverse, Arity: "0", Description: "Elements in reverse order"},
		"sort":          {Fn: listSort, Arity: "0", Description: "Elements in ascending order"},
		"sort_by":       {Fn: listSortBy, Arity: "1", Description: "Elements ordered by a key function"},
		"unique":        {Fn: listUnique, Arity: "0", Description: "Distinct elements in first-seen order"},
		"concat":        {Fn: listConcat, Arity: "1", Description: "Append another list"},
		"to_set":        {Fn: listToSet, Arity: "0", Description: "Convert to a HashSet"},
		"to_list":       {Fn: listToList, Arity: "0", Description: "The list itself"},
		"collect":       {Fn: listToList, Arity: "0", Description: "The list itself"},
		"iter":          {Fn: listToList, Arity: "0", Description: "The list itself"},
		"push":          {Mutator: listPush, Arity: "1", Description: "Append an element"},
		"append":        {Mutator: listPush, Arity: "1", Description: "Append an element"},
		"pop":           {Mutator: listPop, Arity: "0", Description: "Remove the last element, returned as an Option"},
		"insert":        {Mutator: listInsert, Arity: "2", Description: "Insert an element at an index"},
		"remove":        {Mutator: listRemove, Arity: "1", Description: "Remove and return the element at an index"},
		"clear":         {Mutator: listClear, Arity: "0", Description: "Remove every element"},
		"extend":        {Mutator: listExtend, Arity: "1", Description: "Append every element of a sequence"},
		"sort_in_place": {Mutator: listSortInPlace, Arity: "0", Description: "Sort the list in place"},
	}
	RegisterMethodRegistry(LIST_VAL, ListMethodRegistry)
}

func listLen(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &Integer{Value: int64(len(receiver.(*List).Elements))}, nil
}

func listIsEmpty(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return nativeBoolToBool(len(receiver.(*List).Elements) == 0), nil
}

func listFirst(receiver Value, _ []Value, _ *Environment) (Value, error) {
	elems := receiver.(*List).Elements
	if len(elems) == 0 {
		return None, nil
	}
	return Some(elems[0]), nil
}

func listLast(receiver Value, _ []Value, _ *Environment) (Value, error) {
	elems := receiver.(*List).Elements
	if len(elems) == 0 {
		return None, nil
	}
	return Some(elems[len(elems)-1]), nil
}

func listGet(receiver Value, args []Value, _ *Environment) (Value, error) {
	i, err := intArg(args, 0, "get")
	if err != nil {
		return nil, err
	}
	elems := receiver.(*List).Elements
	if i < 0 || i >= int64(len(elems)) {
		return None, nil
	}
	return Some(elems[i]), nil
}

func listContains(receiver Value, args []Value, _ *Environment) (Value, error) {
	for _, e := range receiver.(*List).Elements {
		if valuesEqual(e, args[0]) {
			return TRUE, nil
		}
	}
	return FALSE, nil
}

func listIndexOf(receiver Value, args []Value, _ *Environment) (Value, error) {
	for i, e := range receiver.(*List).Elements {
		if valuesEqual(e, args[0]) {
			return Some(&Integer{Value: int64(i)}), nil
		}
	}
	return None, nil
}

func listMap(receiver Value, args []Value, env *Environment) (Value, error) {
	elems := receiver.(*List).Elements
	out := make([]Value, len(elems))
	for i, e := range elems {
		v, err := callValue(args[0], env, e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return &List{Elements: out}, nil
}

func listFilter(receiver Value, args []Value, env *Environment) (Value, error) {
	out := []Value{}
	for _, e := range receiver.(*List).Elements {
		keep, err := callValue(args[0], env, e)
		if err != nil {
			return nil, err
		}
		if isTruthy(keep) {
			out = append(out, e)
		}
	}
	return &List{Elements: out}, nil
}

// listReduce folds with the first element as the seed unless an initial
// value is given as the second argument. Reducing an empty list without a
// seed yields nil.
func listReduce(receiver Value, args []Value, env *Environment) (Value, error) {
	elems := receiver.(*List).Elements
	var acc Value
	if len(args) == 2 {
		acc = args[1]
	} else {
		if len(elems) == 0 {
			return NIL, nil
		}
		acc, elems = elems[0], elems[1:]
	}
	for _, e := range elems {
		var err error
		if acc, err = callValue(args[0], env, acc, e); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func listFold(receiver Value, args []Value, env *Environment) (Value, error) {
	return listReduce(receiver, []Value{args[1], args[0]}, env)
}

func listForEach(receiver Value, args []Value, env *Environment) (Value, error) {
	for _, e := range receiver.(*List).Elements {
		if _, err := callValue(args[0], env, e); err != nil {
			return nil, err
		}
	}
	return UNIT, nil
}

// firstMatch returns the index of the first element fn accepts, or -1.
func firstMatch(elems []Value, fn Value, env *Environment) (int, error) {
	for i, e := range elems {
		ok, err := callValue(fn, env, e)
		if err != nil {
			return -1, err
		}
		if isTruthy(ok) {
			return i, nil
		}
	}
	return -1, nil
}

func listAny(receiver Value, args []Value, env *Environment) (Value, error) {
	i, err := firstMatch(receiver.(*List).Elements, args[0], env)
	if err != nil {
		return nil, err
	}
	return nativeBoolToBool(i >= 0), nil
}

func listAll(receiver Value, args []Value, env *Environment) (Value, error) {
	for _, e := range receiver.(*List).Elements {
		ok, err := callValue(args[0], env, e)
		if err != nil {
			return nil, err
		}
		if !isTruthy(ok) {
			return FALSE, nil
		}
	}
	return TRUE, nil
}

func listFind(receiver Value, args []Value, env *Environment) (Value, error) {
	elems := receiver.(*List).Elements
	i, err := firstMatch(elems, args[0], env)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		return None, nil
	}
	return Some(elems[i]), nil
}

func listPosition(receiver Value, args []Value, env *Environment) (Value, error) {
	i, err := firstMatch(receiver.(*List).Elements, args[0], env)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		return None, nil
	}
	return Some(&Integer{Value: int64(i)}), nil
}

func listCount(receiver Value, args []Value, env *Environment) (Value, error) {
	elems := receiver.(*List).Elements
	if len(args) == 0 {
		return &Integer{Value: int64(len(elems))}, nil
	}
	if !isCallable(args[0]) {
		n := 0
		for _, e := range elems {
			if valuesEqual(e, args[0]) {
				n++
			}
		}
		return &Integer{Value: int64(n)}, nil
	}
	filtered, err := listFilter(receiver, args, env)
	if err != nil {
		return nil, err
	}
	return &Integer{Value: int64(len(filtered.(*List).Elements))}, nil
}

func listFlatMap(receiver Value, args []Value, env *Environment) (Value, error) {
	mapped, err := listMap(receiver, args, env)
	if err != nil {
		return nil, err
	}
	return listFlatten(mapped, nil, env)
}

func listFlatten(receiver Value, _ []Value, _ *Environment) (Value, error) {
	out := []Value{}
	for _, e := range receiver.(*List).Elements {
		switch inner := e.(type) {
		case *List, *Tuple, *Range, *HashSet:
			items, err := iterableValues(inner)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
		case *EnumVariant:
			if inner.EnumName == "Option" {
				out = append(out, inner.Data...)
				continue
			}
			out = append(out, e)
		default:
			out = append(out, e)
		}
	}
	return &List{Elements: out}, nil
}

func listZip(receiver Value, args []Value, _ *Environment) (Value, error) {
	other, err := iterableValues(args[0])
	if err != nil {
		return nil, err
	}
	elems := receiver.(*List).Elements
	n := min(len(elems), len(other))
	out := make([]Value, n)
	for i := 0; i < n; i++ {
		out[i] = &Tuple{Elements: []Value{elems[i], other[i]}}
	}
	return &List{Elements: out}, nil
}

func listEnumerate(receiver Value, _ []Value, _ *Environment) (Value, error) {
	elems := receiver.(*List).Elements
	out := make([]Value, len(elems))
	for i, e := range elems {
		out[i] = &Tuple{Elements: []Value{&Integer{Value: int64(i)}, e}}
	}
	return &List{Elements: out}, nil
}

func listTake(receiver Value, args []Value, _ *Environment) (Value, error) {
	if _, err := intArg(args, 0, "take"); err != nil {
		return nil, err
	}
	return sliceValue(receiver, nil, args[0], false)
}

func listSkip(receiver Value, args []Value, _ *Environment) (Value, error) {
	if _, err := intArg(args, 0, "skip"); err != nil {
		return nil, err
	}
	return sliceValue(receiver, args[0], nil, false)
}

func listSlice(receiver Value, args []Value, _ *Environment) (Value, error) {
	var end Value
	if len(args) > 1 {
		end = args[1]
	}
	return sliceValue(receiver, args[0], end, false)
}

func listChunks(receiver Value, args []Value, _ *Environment) (Value, error) {
	n, err := intArg(args, 0, "chunks")
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, perrors.Runtime("chunk size must be positive, got %d", n)
	}
	elems := receiver.(*List).Elements
	out := []Value{}
	for i := 0; i < len(elems); i += int(n) {
		end := min(i+int(n), len(elems))
		out = append(out, &List{Elements: append([]Value(nil), elems[i:end]...)})
	}
	return &List{Elements: out}, nil
}

func listWindows(receiver Value, args []Value, _ *Environment) (Value, error) {
	n, err := intArg(args, 0, "windows")
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, perrors.Runtime("window size must be positive, got %d", n)
	}
	elems := receiver.(*List).Elements
	out := []Value{}
	for i := 0; i+int(n) <= len(elems); i++ {
		out = append(out, &List{Elements: append([]Value(nil), elems[i:i+int(n)]...)})
	}
	return &List{Elements: out}, nil
}

// sumValues adds the numeric values, staying Integer while every operand
// is an Integer. Non-numeric values are skipped.
func sumValues(values []Value) Value {
	var isum int64
	var fsum float64
	exact := true
	for _, v := range values {
		switch n := v.(type) {
		case *Integer:
			isum += n.Value
			fsum += float64(n.Value)
		case *Float:
			exact = false
			fsum += n.Value
		}
	}
	if exact {
		return &Integer{Value: isum}
	}
	return &Float{Value: fsum}
}

func listSum(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return sumValues(receiver.(*List).Elements), nil
}

func listProduct(receiver Value, _ []Value, _ *Environment) (Value, error) {
	var acc Value = &Integer{Value: 1}
	for _, e := range receiver.(*List).Elements {
		if !isNumber(e) {
			return nil, perrors.TypeMismatch("*", TypeName(acc), TypeName(e))
		}
		var err error
		if acc, err = evalBinaryOp(ast.OpMul, acc, e); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// extreme returns the element that wins every comparison against want.
func extreme(elems []Value, want int) (Value, error) {
	if len(elems) == 0 {
		return None, nil
	}
	best := elems[0]
	for _, e := range elems[1:] {
		c, _, err := compareValues("cmp", e, best)
		if err != nil {
			return nil, err
		}
		if c == want {
			best = e
		}
	}
	return Some(best), nil
}

func listMin(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return extreme(receiver.(*List).Elements, -1)
}

func listMax(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return extreme(receiver.(*List).Elements, 1)
}

func listJoin(receiver Value, args []Value, _ *Environment) (Value, error) {
	sep := ""
	if len(args) == 1 {
		var err error
		if sep, err = stringArg(args, 0, "join"); err != nil {
			return nil, err
		}
	}
	elems := receiver.(*List).Elements
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = Display(e)
	}
	return &String{Value: strings.Join(parts, sep)}, nil
}

func listReverse(receiver Value, _ []Value, _ *Environment) (Value, error) {
	elems := receiver.(*List).Elements
	out := make([]Value, len(elems))
	for i, e := range elems {
		out[len(elems)-1-i] = e
	}
	return &List{Elements: out}, nil
}

// sortedBy returns a stably sorted copy of elems ordered by key(elem).
func sortedBy(elems []Value, key func(Value) (Value, error)) ([]Value, error) {
	keys := make([]Value, len(elems))
	for i, e := range elems {
		k, err := key(e)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	idx := make([]int, len(elems))
	for i := range idx {
		idx[i] = i
	}
	var cmpErr error
	sort.SliceStable(idx, func(a, b int) bool {
		c, _, err := compareValues("sort", keys[idx[a]], keys[idx[b]])
		if err != nil && cmpErr == nil {
			cmpErr = err
		}
		return c < 0
	})
	if cmpErr != nil {
		return nil, cmpErr
	}
	out := make([]Value, len(elems))
	for i, j := range idx {
		out[i] = elems[j]
	}
	return out, nil
}

func identityKey(v Value) (Value, error) { return v, nil }

func listSort(receiver Value, _ []Value, _ *Environment) (Value, error) {
	out, err := sortedBy(receiver.(*List).Elements, identityKey)
	if err != nil {
		return nil, err
	}
	return &List{Elements: out}, nil
}

func listSortBy(receiver Value, args []Value, env *Environment) (Value, error) {
	out, err := sortedBy(receiver.(*List).Elements, func(v Value) (Value, error) {
		return callValue(args[0], env, v)
	})
	if err != nil {
		return nil, err
	}
	return &List{Elements: out}, nil
}

func listUnique(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &List{Elements: NewHashSet(receiver.(*List).Elements...).Elements}, nil
}

func listConcat(receiver Value, args []Value, _ *Environment) (Value, error) {
	return evalBinaryOp(ast.OpAdd, receiver, args[0])
}

func listToSet(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return NewHashSet(receiver.(*List).Elements...), nil
}

func listToList(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return receiver, nil
}

func listPush(receiver Value, args []Value, _ *Environment) (Value, Value, error) {
	elems := receiver.(*List).Elements
	out := make([]Value, len(elems), len(elems)+1)
	copy(out, elems)
	return UNIT, &List{Elements: append(out, args[0])}, nil
}

func listPop(receiver Value, _ []Value, _ *Environment) (Value, Value, error) {
	elems := receiver.(*List).Elements
	if len(elems) == 0 {
		return None, receiver, nil
	}
	last := elems[len(elems)-1]
	return Some(last), &List{Elements: append([]Value(nil), elems[:len(elems)-1]...)}, nil
}

func listInsert(receiver Value, args []Value, _ *Environment) (Value, Value, error) {
	i, err := intArg(args, 0, "insert")
	if err != nil {
		return nil, nil, err
	}
	elems := receiver.(*List).Elements
	if i < 0 || i > int64(len(elems)) {
		return nil, nil, perrors.IndexOutOfBounds(i, len(elems))
	}
	out := make([]Value, 0, len(elems)+1)
	out = append(out, elems[:i]...)
	out = append(out, args[1])
	out = append(out, elems[i:]...)
	return UNIT, &List{Elements: out}, nil
}

func listRemove(receiver Value, args []Value, _ *Environment) (Value, Value, error) {
	i, err := intArg(args, 0, "remove")
	if err != nil {
		return nil, nil, err
	}
	elems := receiver.(*List).Elements
	n, err := normalizeIndex(i, len(elems))
	if err != nil {
		return nil, nil, err
	}
	out := make([]Value, 0, len(elems)-1)
	out = append(out, elems[:n]...)
	out = append(out, elems[n+1:]...)
	return elems[n], &List{Elements: out}, nil
}

func listClear(_ Value, _ []Value, _ *Environment) (Value, Value, error) {
	return UNIT, &List{Elements: []Value{}}, nil
}

func listExtend(receiver Value, args []Value, _ *Environment) (Value, Value, error) {
	items, err := iterableValues(args[0])
	if err != nil {
		return nil, nil, err
	}
	elems := receiver.(*List).Elements
	out := make([]Value, 0, len(elems)+len(items))
	out = append(out, elems...)
	return UNIT, &List{Elements: append(out, items...)}, nil
}

func listSortInPlace(receiver Value, _ []Value, _ *Environment) (Value, Value, error) {
	out, err := sortedBy(receiver.(*List).Elements, identityKey)
	if err != nil {
		return nil, nil, err
	}
	return UNIT, &List{Elements: out}, nil
}

// TupleMethodRegistry defines all methods available on tuple values.
var TupleMethodRegistry MethodRegistry

func init() {
	TupleMethodRegistry = MethodRegistry{
		"len":      {Fn: viaList(listLen), Arity: "0", Description: "Number of elements"},
		"first":    {Fn: viaList(listFirst), Arity: "0", Description: "First element as an Option"},
		"last":     {Fn: viaList(listLast), Arity: "0", Description: "Last element as an Option"},
		"contains": {Fn: viaList(listContains), Arity: "1", Description: "Check for an element"},
		"to_list":  {Fn: viaList(listToList), Arity: "0", Description: "Convert to a list"},
	}
	RegisterMethodRegistry(TUPLE_VAL, TupleMethodRegistry)
}

// viaList adapts a list method to any iterable receiver by collecting it
// into a list first.
func viaList(fn MethodFunc) MethodFunc {
	return func(receiver Value, args []Value, env *Environment) (Value, error) {
		items, err := iterableValues(receiver)
		if err != nil {
			return nil, err
		}
		return fn(&List{Elements: items}, args, env)
	}
}

// RangeMethodRegistry defines all methods available on range values. The
// sequence methods are the list methods applied to the collected range.
var RangeMethodRegistry MethodRegistry

func init() {
	RangeMethodRegistry = MethodRegistry{}
	for name, entry := range ListMethodRegistry {
		if entry.Fn == nil {
			continue
		}
		RangeMethodRegistry[name] = MethodEntry{Fn: viaList(entry.Fn), Arity: entry.Arity, Description: entry.Description}
	}
	RangeMethodRegistry["len"] = MethodEntry{Fn: rangeLen, Arity: "0", Description: "Number of integers in the range"}
	RangeMethodRegistry["contains"] = MethodEntry{Fn: rangeContains, Arity: "1", Description: "Check if a number lies in the range"}
	RangeMethodRegistry["rev"] = MethodEntry{Fn: viaList(listReverse), Arity: "0", Description: "Integers in reverse order"}
	RangeMethodRegistry["step_by"] = MethodEntry{Fn: rangeStepBy, Arity: "1", Description: "Every nth integer"}
	RegisterMethodRegistry(RANGE_VAL, RangeMethodRegistry)
}

func rangeLen(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &Integer{Value: receiver.(*Range).Len()}, nil
}

func rangeContains(receiver Value, args []Value, _ *Environment) (Value, error) {
	r := receiver.(*Range)
	f, ok := toFloat(args[0])
	if !ok {
		return nil, perrors.TypeMismatch("contains", RANGE_VAL, TypeName(args[0]))
	}
	in := f >= float64(r.Start) && (f < float64(r.End) || (r.Inclusive && f == float64(r.End)))
	return nativeBoolToBool(in), nil
}

func rangeStepBy(receiver Value, args []Value, _ *Environment) (Value, error) {
	step, err := intArg(args, 0, "step_by")
	if err != nil {
		return nil, err
	}
	if step <= 0 {
		return nil, perrors.Runtime("step must be positive, got %d", step)
	}
	r := receiver.(*Range)
	n := r.Len()
	if n > maxMaterializedRange {
		return nil, perrors.Runtime("range %s is too large to collect", r.Inspect())
	}
	out := []Value{}
	for i := int64(0); i < n; i += step {
		out = append(out, &Integer{Value: r.Start + i})
	}
	return &List{Elements: out}, nil
}

// ObjectMethodRegistry defines all methods available on object values.
var ObjectMethodRegistry MethodRegistry

func init() {
	ObjectMethodRegistry = MethodRegistry{
		"len":          {Fn: objectLen, Arity: "0", Description: "Number of fields"},
		"is_empty":     {Fn: objectIsEmpty, Arity: "0", Description: "Check for no fields"},
		"keys":         {Fn: objectKeys, Arity: "0", Description: "Field names in order"},
		"values":       {Fn: objectValues, Arity: "0", Description: "Field values in order"},
		"items":        {Fn: objectItems, Arity: "0", Description: "(name, value) pairs in order"},
		"entries":      {Fn: objectItems, Arity: "0", Description: "(name, value) pairs in order"},
		"has":          {Fn: objectHas, Arity: "1", Description: "Check for a field"},
		"contains_key": {Fn: objectHas, Arity: "1", Description: "Check for a field"},
		"get":          {Fn: objectGet, Arity: "1", Description: "Field value as an Option"},
		"insert":       {Mutator: objectInsert, Arity: "2", Description: "Set a field"},
		"remove":       {Mutator: objectRemove, Arity: "1", Description: "Remove a field, returned as an Option"},
	}
	RegisterMethodRegistry(OBJECT_VAL, ObjectMethodRegistry)
}

func objectLen(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &Integer{Value: int64(len(receiver.(*Object).Keys))}, nil
}

func objectIsEmpty(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return nativeBoolToBool(len(receiver.(*Object).Keys) == 0), nil
}

func objectKeys(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return stringsToList(receiver.(*Object).Keys), nil
}

func objectValues(receiver Value, _ []Value, _ *Environment) (Value, error) {
	o := receiver.(*Object)
	out := make([]Value, len(o.Keys))
	for i, k := range o.Keys {
		out[i] = o.Fields[k]
	}
	return &List{Elements: out}, nil
}

func objectItems(receiver Value, _ []Value, _ *Environment) (Value, error) {
	items, err := iterableValues(receiver)
	if err != nil {
		return nil, err
	}
	return &List{Elements: items}, nil
}

func objectHas(receiver Value, args []Value, _ *Environment) (Value, error) {
	k, err := stringArg(args, 0, "has")
	if err != nil {
		return nil, err
	}
	_, ok := receiver.(*Object).Fields[k]
	return nativeBoolToBool(ok), nil
}

func objectGet(receiver Value, args []Value, _ *Environment) (Value, error) {
	k, err := stringArg(args, 0, "get")
	if err != nil {
		return nil, err
	}
	if v, ok := receiver.(*Object).Fields[k]; ok {
		return Some(v), nil
	}
	return None, nil
}

func objectInsert(receiver Value, args []Value, _ *Environment) (Value, Value, error) {
	k, err := stringArg(args, 0, "insert")
	if err != nil {
		return nil, nil, err
	}
	updated, err := setField(receiver, k, args[1])
	if err != nil {
		return nil, nil, err
	}
	return UNIT, updated, nil
}

func objectRemove(receiver Value, args []Value, _ *Environment) (Value, Value, error) {
	k, err := stringArg(args, 0, "remove")
	if err != nil {
		return nil, nil, err
	}
	o := receiver.(*Object)
	v, ok := o.Fields[k]
	if !ok {
		return None, receiver, nil
	}
	return Some(v), o.Without(k), nil
}

// HashMapMethodRegistry defines all methods available on HashMap values.
var HashMapMethodRegistry MethodRegistry

func init() {
	HashMapMethodRegistry = MethodRegistry{
		"len":          {Fn: hashMapLen, Arity: "0", Description: "Number of entries"},
		"is_empty":     {Fn: hashMapIsEmpty, Arity: "0", Description: "Check for no entries"},
		"get":          {Fn: hashMapGet, Arity: "1", Description: "Value for a key as an Option"},
		"contains_key": {Fn: hashMapContainsKey, Arity: "1", Description: "Check for a key"},
		"keys":         {Fn: hashMapKeys, Arity: "0", Description: "Keys in insertion order"},
		"values":       {Fn: hashMapValues, Arity: "0", Description: "Values in insertion order"},
		"items":        {Fn: objectItems, Arity: "0", Description: "(key, value) pairs in insertion order"},
		"entries":      {Fn: objectItems, Arity: "0", Description: "(key, value) pairs in insertion order"},
		"insert":       {Mutator: hashMapInsert, Arity: "2", Description: "Set a key, returning the previous value as an Option"},
		"remove":       {Mutator: hashMapRemove, Arity: "1", Description: "Remove a key, returning its value as an Option"},
		"clear":        {Mutator: hashMapClear, Arity: "0", Description: "Remove every entry"},
	}
	RegisterMethodRegistry(HASHMAP_VAL, HashMapMethodRegistry)
}

func hashMapLen(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &Integer{Value: int64(receiver.(*HashMap).Len())}, nil
}

func hashMapIsEmpty(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return nativeBoolToBool(receiver.(*HashMap).Len() == 0), nil
}

func hashMapGet(receiver Value, args []Value, _ *Environment) (Value, error) {
	if v, ok := receiver.(*HashMap).Get(args[0]); ok {
		return Some(v), nil
	}
	return None, nil
}

func hashMapContainsKey(receiver Value, args []Value, _ *Environment) (Value, error) {
	_, ok := receiver.(*HashMap).Get(args[0])
	return nativeBoolToBool(ok), nil
}

func hashMapKeys(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &List{Elements: append([]Value(nil), receiver.(*HashMap).Keys...)}, nil
}

func hashMapValues(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &List{Elements: append([]Value(nil), receiver.(*HashMap).Values...)}, nil
}

func hashMapInsert(receiver Value, args []Value, _ *Environment) (Value, Value, error) {
	m := receiver.(*HashMap)
	var previous Value = None
	if old, ok := m.Get(args[0]); ok {
		previous = Some(old)
	}
	return previous, m.With(args[0], args[1]), nil
}

func hashMapRemove(receiver Value, args []Value, _ *Environment) (Value, Value, error) {
	m := receiver.(*HashMap)
	old, ok := m.Get(args[0])
	if !ok {
		return None, receiver, nil
	}
	return Some(old), m.Without(args[0]), nil
}

func hashMapClear(_ Value, _ []Value, _ *Environment) (Value, Value, error) {
	return UNIT, NewHashMap(), nil
}

// HashSetMethodRegistry defines all methods available on HashSet values.
var HashSetMethodRegistry MethodRegistry

func init() {
	HashSetMethodRegistry = MethodRegistry{
		"len":          {Fn: hashSetLen, Arity: "0", Description: "Number of elements"},
		"is_empty":     {Fn: hashSetIsEmpty, Arity: "0", Description: "Check for no elements"},
		"contains":     {Fn: hashSetContains, Arity: "1", Description: "Check for an element"},
		"union":        {Fn: hashSetBinary(ast.OpBitOr), Arity: "1", Description: "Elements in either set"},
		"intersection": {Fn: hashSetBinary(ast.OpBitAnd), Arity: "1", Description: "Elements in both sets"},
		"difference":   {Fn: hashSetBinary(ast.OpSub), Arity: "1", Description: "Elements only in this set"},
		"to_list":      {Fn: viaList(listToList), Arity: "0", Description: "Elements in insertion order"},
		"insert":       {Mutator: hashSetInsert, Arity: "1", Description: "Add an element, reporting whether it was new"},
		"remove":       {Mutator: hashSetRemove, Arity: "1", Description: "Remove an element, reporting whether it was present"},
		"clear":        {Mutator: hashSetClear, Arity: "0", Description: "Remove every element"},
	}
	RegisterMethodRegistry(HASHSET_VAL, HashSetMethodRegistry)
}

func hashSetLen(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &Integer{Value: int64(len(receiver.(*HashSet).Elements))}, nil
}

func hashSetIsEmpty(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return nativeBoolToBool(len(receiver.(*HashSet).Elements) == 0), nil
}

func hashSetContains(receiver Value, args []Value, _ *Environment) (Value, error) {
	return nativeBoolToBool(receiver.(*HashSet).Contains(args[0])), nil
}

func hashSetBinary(op ast.BinaryOp) MethodFunc {
	return func(receiver Value, args []Value, _ *Environment) (Value, error) {
		other, ok := args[0].(*HashSet)
		if !ok {
			items, err := iterableValues(args[0])
			if err != nil {
				return nil, err
			}
			other = NewHashSet(items...)
		}
		return evalSetOp(op, receiver.(*HashSet), other)
	}
}

func hashSetInsert(receiver Value, args []Value, _ *Environment) (Value, Value, error) {
	s := receiver.(*HashSet)
	if s.Contains(args[0]) {
		return FALSE, receiver, nil
	}
	return TRUE, s.With(args[0]), nil
}

func hashSetRemove(receiver Value, args []Value, _ *Environment) (Value, Value, error) {
	s := receiver.(*HashSet)
	if !s.Contains(args[0]) {
		return FALSE, receiver, nil
	}
	return TRUE, s.Without(args[0]), nil
}

func hashSetClear(_ Value, _ []Value, _ *Environment) (Value, Value, error) {
	return UNIT, NewHashSet(), nil
}
