package evaluator

import (
	"sort"
	"strconv"
	"strings"

	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// MethodFunc is the signature for methods that only read their receiver.
type MethodFunc func(receiver Value, args []Value, env *Environment) (Value, error)

// MutatorFunc is the signature for methods that change their receiver. They
// return the call's result and the updated receiver; the evaluator writes the
// updated receiver back when the call site names a mutable place.
type MutatorFunc func(receiver Value, args []Value, env *Environment) (result Value, updated Value, err error)

// MethodEntry defines a single method with its implementation and metadata.
// Exactly one of Fn and Mutator is set.
type MethodEntry struct {
	Fn          MethodFunc
	Mutator     MutatorFunc
	Arity       string // "0", "1", "0-1", "1+", "2", etc.
	Description string
}

// MethodRegistry maps method names to their entries for a type.
type MethodRegistry map[string]MethodEntry

// Names returns a sorted list of method names in this registry.
// Used for fuzzy matching in error messages.
func (r MethodRegistry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the method entry for the given name, if it exists.
func (r MethodRegistry) Get(name string) (MethodEntry, bool) {
	entry, ok := r[name]
	return entry, ok
}

// MethodInfo describes a method for completion and help output.
type MethodInfo struct {
	Name        string
	Arity       string
	Description string
}

// ToMethodInfos converts the registry to a slice of MethodInfo.
// Results are sorted alphabetically by method name.
func (r MethodRegistry) ToMethodInfos() []MethodInfo {
	methods := make([]MethodInfo, 0, len(r))
	for name, entry := range r {
		methods = append(methods, MethodInfo{
			Name:        name,
			Arity:       entry.Arity,
			Description: entry.Description,
		})
	}
	sort.Slice(methods, func(i, j int) bool {
		return methods[i].Name < methods[j].Name
	})
	return methods
}

// typeRegistries maps value kinds to their method registries. The table is
// closed: it is filled during init and never changes afterwards.
var typeRegistries = map[ValueType]MethodRegistry{}

// RegisterMethodRegistry registers a method registry for a value kind.
// Called during init to populate the master registry.
func RegisterMethodRegistry(kind ValueType, registry MethodRegistry) {
	typeRegistries[kind] = registry
}

// GetMethodsForType returns method info for a value kind.
func GetMethodsForType(kind ValueType) []MethodInfo {
	registry := typeRegistries[kind]
	if registry == nil {
		return nil
	}
	return registry.ToMethodInfos()
}

// checkArity validates that the argument count matches the arity specification.
// Arity specs: "0", "1", "2", "0-1", "1-2", "0-2", "1+", "0+", "2+", etc.
func checkArity(spec string, got int) bool {
	spec = strings.TrimSpace(spec)

	if exact, err := strconv.Atoi(spec); err == nil {
		return got == exact
	}

	if strings.Contains(spec, "-") {
		parts := strings.Split(spec, "-")
		if len(parts) == 2 {
			minVal, errMin := strconv.Atoi(parts[0])
			maxVal, errMax := strconv.Atoi(parts[1])
			if errMin == nil && errMax == nil {
				return got >= minVal && got <= maxVal
			}
		}
	}

	if suffix, found := strings.CutSuffix(spec, "+"); found {
		minVal, err := strconv.Atoi(suffix)
		if err == nil {
			return got >= minVal
		}
	}

	// Unknown spec - be permissive
	return true
}

// arityDescription turns an arity spec into the "expected" part of an
// ArityError message.
func arityDescription(spec string) string {
	spec = strings.TrimSpace(spec)
	if lo, hi, found := strings.Cut(spec, "-"); found {
		return lo + " to " + hi
	}
	if n, found := strings.CutSuffix(spec, "+"); found {
		return "at least " + n
	}
	return spec
}

// lookupMethod finds the registry entry for method on receiver's kind.
func lookupMethod(receiver Value, method string) (MethodEntry, error) {
	registry := typeRegistries[receiver.Type()]
	if entry, ok := registry.Get(method); ok {
		return entry, nil
	}
	return MethodEntry{}, perrors.UnknownMethod(method, TypeName(receiver), registry.Names())
}

// dispatchFromRegistry runs a read-only method or a mutator whose updated
// receiver is not needed.
func dispatchFromRegistry(receiver Value, method string, args []Value, env *Environment) (Value, error) {
	entry, err := lookupMethod(receiver, method)
	if err != nil {
		return nil, err
	}
	if !checkArity(entry.Arity, len(args)) {
		return nil, perrors.Arity(arityDescription(entry.Arity), len(args))
	}
	if entry.Mutator != nil {
		result, _, err := entry.Mutator(receiver, args, env)
		return result, err
	}
	return entry.Fn(receiver, args, env)
}
