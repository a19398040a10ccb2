package replay

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ConversionConfig controls test generation.
type ConversionConfig struct {
	TestModulePrefix     string // module the generated tests are wrapped in
	IncludePropertyTests bool
	IncludeBenchmarks    bool
	TimeoutMs            uint64
}

// DefaultConversionConfig returns the standard settings.
func DefaultConversionConfig() ConversionConfig {
	return ConversionConfig{
		TestModulePrefix:     "replay_generated",
		IncludePropertyTests: true,
		TimeoutMs:            5000,
	}
}

// Category groups generated tests.
type Category int

const (
	CategoryUnit Category = iota
	CategoryIntegration
	CategoryProperty
	CategoryBenchmark
	CategoryErrorHandling
)

func (c Category) String() string {
	switch c {
	case CategoryUnit:
		return "Unit"
	case CategoryIntegration:
		return "Integration"
	case CategoryProperty:
		return "Property"
	case CategoryBenchmark:
		return "Benchmark"
	case CategoryErrorHandling:
		return "ErrorHandling"
	}
	return "Unknown"
}

// writeOrder is the order categories appear in a generated file.
var writeOrder = []Category{CategoryUnit, CategoryIntegration, CategoryProperty, CategoryErrorHandling, CategoryBenchmark}

// GeneratedTest is one Rust test function.
type GeneratedTest struct {
	Name          string
	Code          string
	Category      Category
	CoverageAreas []string
}

// Converter turns sessions into Rust tests that drive the REPL.
type Converter struct {
	config ConversionConfig
}

// NewConverter returns a converter using cfg. Zero fields fall back to the
// defaults.
func NewConverter(cfg ConversionConfig) *Converter {
	if cfg.TestModulePrefix == "" {
		cfg.TestModulePrefix = DefaultConversionConfig().TestModulePrefix
	}
	if cfg.TimeoutMs == 0 {
		cfg.TimeoutMs = DefaultConversionConfig().TimeoutMs
	}
	return &Converter{config: cfg}
}

// ConvertFile loads a session file and converts it, naming the tests after
// the file.
func (c *Converter) ConvertFile(path string) ([]GeneratedTest, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	return c.ConvertSession(s, SessionName(path)), nil
}

// ConvertDirectory converts every session file in dir in name order.
func (c *Converter) ConvertDirectory(dir string) ([]GeneratedTest, error) {
	paths, err := ListSessions(dir)
	if err != nil {
		return nil, err
	}
	var tests []GeneratedTest
	for _, p := range paths {
		t, err := c.ConvertFile(p)
		if err != nil {
			return nil, err
		}
		tests = append(tests, t...)
	}
	return tests, nil
}

// ConvertSession generates one unit test per input/output pair, an
// integration test for the whole session, optional property and benchmark
// tests, and one error test per failed evaluation.
func (c *Converter) ConvertSession(s *Session, name string) []GeneratedTest {
	prefix := sanitizeIdent(name)
	tests := c.unitTests(s, prefix)
	tests = append(tests, c.integrationTest(s, prefix))
	if c.config.IncludePropertyTests {
		tests = append(tests, c.propertyTests(s, prefix)...)
	}
	tests = append(tests, c.errorTests(s, prefix)...)
	if c.config.IncludeBenchmarks {
		tests = append(tests, c.benchmarkTest(s, prefix))
	}
	return tests
}

func (c *Converter) unitTests(s *Session, prefix string) []GeneratedTest {
	var tests []GeneratedTest
	for n, p := range s.Pairs() {
		name := fmt.Sprintf("test_%s_%03d", prefix, n+1)
		var b strings.Builder
		fmt.Fprintf(&b, "#[test]\nfn %s() -> Result<()> {\n", name)
		fmt.Fprintf(&b, "    %s\n", modeComment(p.Input.Mode))
		b.WriteString("    let mut repl = Repl::new()?;\n")
		fmt.Fprintf(&b, "    let _deadline = std::time::Instant::now() + std::time::Duration::from_millis(%d);\n", c.config.TimeoutMs)
		fmt.Fprintf(&b, "    let result = repl.eval(%s);\n", rustString(p.Input.Text))
		fmt.Fprintf(&b, "    // Expected: %s\n", expectation(p.Output.Result))
		fmt.Fprintf(&b, "    %s\n", assertion("result", p.Output.Result))
		b.WriteString("    Ok(())\n}\n")
		tests = append(tests, GeneratedTest{
			Name:          name,
			Code:          b.String(),
			Category:      CategoryUnit,
			CoverageAreas: CoverageAreas(p.Input.Text),
		})
	}
	return tests
}

func (c *Converter) integrationTest(s *Session, prefix string) GeneratedTest {
	name := fmt.Sprintf("test_%s_session_integration", prefix)
	var b strings.Builder
	fmt.Fprintf(&b, "#[test]\nfn %s() -> Result<()> {\n", name)
	b.WriteString("    // Replays the whole session in one REPL so state carries over\n")
	b.WriteString("    let mut repl = Repl::new()?;\n")
	fmt.Fprintf(&b, "    let _deadline = std::time::Instant::now() + std::time::Duration::from_millis(%d);\n", c.config.TimeoutMs)

	areas := map[string]bool{"session_state": true, "multi_step_interaction": true, "state_persistence": true}
	for _, p := range s.Pairs() {
		result := fmt.Sprintf("result_%d", p.Index)
		fmt.Fprintf(&b, "    let %s = repl.eval(%s);\n", result, rustString(p.Input.Text))
		fmt.Fprintf(&b, "    %s\n", assertion(result, p.Output.Result))
		for _, a := range CoverageAreas(p.Input.Text) {
			areas[a] = true
		}
	}
	b.WriteString("    Ok(())\n}\n")
	return GeneratedTest{Name: name, Code: b.String(), Category: CategoryIntegration, CoverageAreas: sortedKeys(areas)}
}

func (c *Converter) propertyTests(s *Session, prefix string) []GeneratedTest {
	inputs := make([]string, 0)
	for _, p := range s.Pairs() {
		inputs = append(inputs, "        "+rustString(p.Input.Text)+",\n")
	}
	list := strings.Join(inputs, "")

	det := fmt.Sprintf("test_%s_determinism_property", prefix)
	var b strings.Builder
	fmt.Fprintf(&b, "#[test]\nfn %s() -> Result<()> {\n", det)
	b.WriteString("    // Two fresh REPLs fed the same inputs must agree\n")
	b.WriteString("    let mut repl1 = Repl::new()?;\n    let mut repl2 = Repl::new()?;\n")
	fmt.Fprintf(&b, "    let inputs: &[&str] = &[\n%s    ];\n", list)
	b.WriteString("    for input in inputs {\n")
	b.WriteString("        match (repl1.eval(input), repl2.eval(input)) {\n")
	b.WriteString("            (Ok(a), Ok(b)) => assert_eq!(a, b),\n")
	b.WriteString("            (Err(_), Err(_)) => {}\n")
	b.WriteString("            _ => panic!(\"inconsistent REPL behavior for {}\", input),\n")
	b.WriteString("        }\n    }\n    Ok(())\n}\n")

	mem := fmt.Sprintf("test_%s_memory_bounds", prefix)
	var m strings.Builder
	fmt.Fprintf(&m, "#[test]\nfn %s() -> Result<()> {\n", mem)
	m.WriteString("    let mut repl = Repl::new()?;\n")
	fmt.Fprintf(&m, "    let inputs: &[&str] = &[\n%s    ];\n", list)
	m.WriteString("    for input in inputs {\n        let _ = repl.eval(input);\n    }\n")
	m.WriteString("    let used = repl.get_memory_usage();\n")
	m.WriteString("    assert!(used < 100 * 1024 * 1024, \"memory usage exceeded bounds: {} bytes\", used);\n")
	m.WriteString("    Ok(())\n}\n")

	return []GeneratedTest{
		{Name: det, Code: b.String(), Category: CategoryProperty, CoverageAreas: []string{"determinism", "state_consistency"}},
		{Name: mem, Code: m.String(), Category: CategoryProperty, CoverageAreas: []string{"memory_management", "resource_bounds"}},
	}
}

func (c *Converter) errorTests(s *Session, prefix string) []GeneratedTest {
	var tests []GeneratedTest
	for i := 1; i < len(s.Timeline); i++ {
		out := s.Timeline[i].Event.Output
		in := s.Timeline[i-1].Event.Input
		if out == nil || in == nil || out.Result.Kind != ResultError {
			continue
		}
		name := fmt.Sprintf("test_%s_%03d_error_handling", prefix, i)
		var b strings.Builder
		fmt.Fprintf(&b, "#[test]\nfn %s() -> Result<()> {\n", name)
		b.WriteString("    let mut repl = Repl::new()?;\n")
		fmt.Fprintf(&b, "    let result = repl.eval(%s);\n", rustString(in.Text))
		b.WriteString("    assert!(result.is_err());\n")
		fmt.Fprintf(&b, "    assert!(result.unwrap_err().to_string().contains(%s));\n", rustString(out.Result.Message))
		b.WriteString("    // The REPL keeps working after an error\n")
		b.WriteString("    let recovery = repl.eval(\"2 + 2\");\n")
		b.WriteString("    assert_eq!(recovery.ok(), Some(\"4\".to_string()));\n")
		b.WriteString("    Ok(())\n}\n")
		tests = append(tests, GeneratedTest{
			Name:          name,
			Code:          b.String(),
			Category:      CategoryErrorHandling,
			CoverageAreas: []string{"error_handling", "error_recovery", "graceful_degradation"},
		})
	}
	return tests
}

func (c *Converter) benchmarkTest(s *Session, prefix string) GeneratedTest {
	name := fmt.Sprintf("bench_%s_session", prefix)
	var b strings.Builder
	fmt.Fprintf(&b, "#[test]\nfn %s() -> Result<()> {\n", name)
	b.WriteString("    let start = std::time::Instant::now();\n")
	b.WriteString("    let mut repl = Repl::new()?;\n")
	for _, p := range s.Pairs() {
		fmt.Fprintf(&b, "    let _ = repl.eval(%s);\n", rustString(p.Input.Text))
	}
	fmt.Fprintf(&b, "    assert!(start.elapsed() < std::time::Duration::from_millis(%d));\n", c.config.TimeoutMs)
	b.WriteString("    Ok(())\n}\n")
	return GeneratedTest{Name: name, Code: b.String(), Category: CategoryBenchmark, CoverageAreas: []string{"performance"}}
}

// WriteTests writes tests to path grouped by category, inside a module
// named by TestModulePrefix.
func (c *Converter) WriteTests(tests []GeneratedTest, path string) error {
	areas := map[string]bool{}
	for _, t := range tests {
		for _, a := range t.CoverageAreas {
			areas[a] = true
		}
	}

	var b strings.Builder
	b.WriteString("//! Generated regression tests from REPL replay sessions\n")
	b.WriteString("//!\n")
	b.WriteString("//! Regenerate with `ruchy replay-to-tests` instead of editing by hand.\n")
	b.WriteString("//!\n")
	fmt.Fprintf(&b, "//! Generated tests: %d\n", len(tests))
	fmt.Fprintf(&b, "//! Coverage areas: %d\n\n", len(areas))
	fmt.Fprintf(&b, "#[cfg(test)]\nmod %s {\n", sanitizeIdent(c.config.TestModulePrefix))
	b.WriteString("    use anyhow::Result;\n    use ruchy::runtime::Repl;\n")

	for _, cat := range writeOrder {
		var group []GeneratedTest
		for _, t := range tests {
			if t.Category == cat {
				group = append(group, t)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n    // %s Tests (%d)\n", cat, len(group))
		b.WriteString("    // " + strings.Repeat("=", 76) + "\n")
		for _, t := range group {
			b.WriteString("\n")
			b.WriteString(indent(t.Code, "    "))
		}
	}
	b.WriteString("}\n")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing test file: %w", err)
	}
	return nil
}

// coverageRules map input features to coverage areas, checked in order.
var coverageRules = []struct {
	area  string
	match func(string) bool
}{
	{"variable_binding", func(s string) bool { return strings.Contains(s, "let ") || strings.Contains(s, "var ") }},
	{"function_definition", func(s string) bool { return strings.Contains(s, "fn ") || strings.Contains(s, "fun ") }},
	{"lambda_expressions", func(s string) bool { return strings.Contains(s, "=>") || (strings.Contains(s, "|") && !strings.Contains(s, "||")) }},
	{"pattern_matching", func(s string) bool { return strings.Contains(s, "match ") }},
	{"conditional_expressions", func(s string) bool { return strings.Contains(s, "if ") }},
	{"iteration", func(s string) bool { return strings.Contains(s, "for ") || strings.Contains(s, "while ") }},
	{"array_operations", func(s string) bool { return strings.Contains(s, "[") && strings.Contains(s, "]") }},
	{"tuple_operations", func(s string) bool { return strings.Contains(s, "(") && strings.Contains(s, ",") }},
	{"object_operations", func(s string) bool { return strings.Contains(s, "{") && strings.Contains(s, ":") }},
	{"optional_chaining", func(s string) bool { return strings.Contains(s, "?.") }},
	{"null_coalescing", func(s string) bool { return strings.Contains(s, "??") }},
	{"pipeline_operator", func(s string) bool { return strings.Contains(s, "|>") }},
	{"spread_operator", func(s string) bool { return strings.Contains(s, "...") }},
	{"string_interpolation", func(s string) bool { return strings.Contains(s, `f"`) }},
	{"higher_order_functions", func(s string) bool {
		return strings.Contains(s, ".map(") || strings.Contains(s, ".filter(") || strings.Contains(s, ".reduce(")
	}},
	{"dataframe_operations", func(s string) bool { return strings.Contains(s, "df!") }},
	{"repl_commands", func(s string) bool { return strings.HasPrefix(strings.TrimSpace(s), ":") }},
	{"error_handling", func(s string) bool { return strings.Contains(s, "try ") || strings.Contains(s, "catch ") }},
}

// CoverageAreas guesses which language features an input exercises.
func CoverageAreas(input string) []string {
	areas := []string{}
	for _, r := range coverageRules {
		if r.match(input) {
			areas = append(areas, r.area)
		}
	}
	return areas
}

func modeComment(mode InputMode) string {
	switch mode {
	case ModePaste:
		return "// Pasted/multiline input"
	case ModeFile:
		return "// File-loaded input"
	case ModeScript:
		return "// Script execution"
	}
	return "// Interactive REPL input"
}

func expectation(r EvalResult) string {
	switch r.Kind {
	case ResultSuccess:
		return "Ok(" + rustString(r.Value) + ")"
	case ResultError:
		return "Err(" + rustString(r.Message) + ")"
	}
	return `Ok("")`
}

func assertion(v string, r EvalResult) string {
	switch r.Kind {
	case ResultSuccess:
		return fmt.Sprintf("assert_eq!(%s.ok(), Some(%s.to_string()));", v, rustString(r.Value))
	case ResultError:
		return fmt.Sprintf("assert!(%s.is_err() && %s.unwrap_err().to_string().contains(%s));", v, v, rustString(r.Message))
	}
	return fmt.Sprintf("assert!(%s.is_ok() && %s.unwrap().is_empty());", v, v)
}

// rustString renders s as a Rust string literal.
func rustString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u{%x}`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// sanitizeIdent makes name usable inside a Rust identifier.
func sanitizeIdent(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "unnamed"
	}
	return b.String()
}

func indent(code, prefix string) string {
	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
