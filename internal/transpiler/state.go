package transpiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/boxpiler/internal/ast"
	"github.com/funvibe/boxpiler/internal/java"
)

// Counter names a synthetic-name sequence.
type Counter int

const (
	CounterForIn Counter = iota
	CounterTryCatch
	CounterSwitch
	CounterLambda
	CounterClosure
	CounterComponent
	CounterAssignment
	CounterLabel
	counterCount
)

// State is everything one compilation unit accumulates while it is walked.
// It belongs to a single Transpile call and is never shared.
type State struct {
	className string

	contexts     []string
	counters     [counterCount]int
	functionBody int

	keys       *KeyTable
	callables  []*java.Decl
	callableAt map[string]int
	functions  map[string]bool
	imports    []importDef
	signatures map[string]*ast.FunctionDeclaration

	catchVars  []string
	labels     map[ast.Node]string
	components map[*ast.Component]*componentFrame
}

func NewState(className string) *State {
	return &State{
		className:  className,
		keys:       NewKeyTable(),
		callableAt: map[string]int{},
		functions:  map[string]bool{},
		signatures: map[string]*ast.FunctionDeclaration{},
		labels:     map[ast.Node]string{},
		components: map[*ast.Component]*componentFrame{},
	}
}

// PushContext makes name the current execution-context variable.
func (s *State) PushContext(name string) {
	s.contexts = append(s.contexts, name)
}

// PopContext restores the previous context variable.
func (s *State) PopContext() {
	if len(s.contexts) == 0 {
		panic("transpiler: context stack underflow")
	}
	s.contexts = s.contexts[:len(s.contexts)-1]
}

// Context is the current context variable name.
func (s *State) Context() string {
	if len(s.contexts) == 0 {
		return "context"
	}
	return s.contexts[len(s.contexts)-1]
}

// ContextDepth is the height of the context stack.
func (s *State) ContextDepth() int { return len(s.contexts) }

// Next increments a counter and returns its new value; the first value is 1.
func (s *State) Next(c Counter) int {
	s.counters[c]++
	return s.counters[c]
}

// Count returns a counter's current value without changing it.
func (s *State) Count(c Counter) int { return s.counters[c] }

func (s *State) InFunctionBody() bool { return s.functionBody > 0 }

// Key interns a string key and returns its reference into the keys array.
func (s *State) Key(name string) string {
	return s.keyRef(s.keys.Intern(name))
}

// IntKey interns an integer key.
func (s *State) IntKey(digits string) string {
	return s.keyRef(s.keys.InternInt(digits))
}

func (s *State) keyRef(i int) string {
	return fmt.Sprintf("%s.keys[%d]", s.className, i)
}

func (s *State) Keys() *KeyTable { return s.keys }

// addCallable records a nested callable class. It reports false when a
// class of that name already exists.
func (s *State) addCallable(d *java.Decl) bool {
	if _, dup := s.callableAt[d.Name()]; dup {
		return false
	}
	s.callableAt[d.Name()] = len(s.callables)
	s.callables = append(s.callables, d)
	return true
}

// Callables lists nested callable classes in the order they were produced.
func (s *State) Callables() []*java.Decl { return s.callables }

// CallableNames lists the nested class names in production order.
func (s *State) CallableNames() []string {
	out := make([]string, len(s.callables))
	for i, d := range s.callables {
		out[i] = d.Name()
	}
	return out
}

// declareFunction claims a function name, ignoring case. It reports false
// when the name was already declared in this unit.
func (s *State) declareFunction(name string) bool {
	lower := strings.ToLower(name)
	if s.functions[lower] {
		return false
	}
	s.functions[lower] = true
	return true
}

// signature finds a function declared anywhere in the unit.
func (s *State) signature(name string) *ast.FunctionDeclaration {
	return s.signatures[strings.ToLower(name)]
}

type importDef struct {
	Resolver string
	FQN      string
	Alias    string
}

// resolvedName is the resolver-prefixed class path, "java:java.lang.String".
func (d importDef) resolvedName() string {
	if d.Resolver == "" {
		return d.FQN
	}
	return d.Resolver + ":" + d.FQN
}

func (s *State) addImport(d importDef) {
	s.imports = append(s.imports, d)
}

// importAlias finds an import by alias, ignoring case.
func (s *State) importAlias(name string) (importDef, bool) {
	for _, d := range s.imports {
		if strings.EqualFold(d.Alias, name) {
			return d, true
		}
	}
	return importDef{}, false
}

// labelFor returns the Java label of a loop, allocating one when the loop
// has no source label. Allocated labels are remembered so the loop emits
// them once its body is done.
func (s *State) labelFor(loop ast.Node) string {
	if l := ast.LoopLabel(loop); l != "" {
		return l
	}
	if l, ok := s.labels[loop]; ok {
		return l
	}
	l := "loop" + strconv.Itoa(s.Next(CounterLabel))
	s.labels[loop] = l
	return l
}

// loopLabel is the label a loop must carry, or "".
func (s *State) loopLabel(loop ast.Node) string {
	if l := ast.LoopLabel(loop); l != "" {
		return l
	}
	return s.labels[loop]
}

// jump is a control transfer that left a component body.
type jump struct {
	kind  string // break, continue or return
	label string
}

// componentFrame collects the jumps that left one component body.
type componentFrame struct {
	jumps []jump
}

// frame returns the jump record of a component, creating it on first use.
func (s *State) frame(c *ast.Component) *componentFrame {
	f, ok := s.components[c]
	if !ok {
		f = &componentFrame{}
		s.components[c] = f
	}
	return f
}

func (f *componentFrame) record(j jump) {
	for _, seen := range f.jumps {
		if seen == j {
			return
		}
	}
	f.jumps = append(f.jumps, j)
}

// KeyTable interns key literals in first-seen order. Strings are
// case-sensitive; integers are kept apart from strings of the same digits.
type KeyTable struct {
	entries []keyEntry
	index   map[keyEntry]int
}

type keyEntry struct {
	Value string
	Int   bool
}

func NewKeyTable() *KeyTable {
	return &KeyTable{index: map[keyEntry]int{}}
}

func (t *KeyTable) Intern(name string) int {
	return t.intern(keyEntry{Value: name})
}

func (t *KeyTable) InternInt(digits string) int {
	return t.intern(keyEntry{Value: digits, Int: true})
}

func (t *KeyTable) intern(e keyEntry) int {
	if i, ok := t.index[e]; ok {
		return i
	}
	i := len(t.entries)
	t.entries = append(t.entries, e)
	t.index[e] = i
	return i
}

func (t *KeyTable) Len() int { return len(t.entries) }

// Values lists the interned keys as written in source.
func (t *KeyTable) Values() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Value
	}
	return out
}

// Java renders the initializer list of the static keys array.
func (t *KeyTable) Java() string {
	parts := make([]string, len(t.entries))
	for i, e := range t.entries {
		if e.Int {
			parts[i] = "Key.of(" + javaInt(e.Value) + ")"
		} else {
			parts[i] = "Key.of(" + java.Quote(e.Value) + ")"
		}
	}
	return strings.Join(parts, ", ")
}
