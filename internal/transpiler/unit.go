package transpiler

import (
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/funvibe/boxpiler/internal/ast"
	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/java"
	"github.com/funvibe/boxpiler/internal/template"
)

// TranspiledCode is the result of transpiling one unit.
type TranspiledCode struct {
	CompileID uuid.UUID
	ClassName string
	Package   string
	Unit      *java.CompilationUnit
	// Callables names the nested callable classes in generation order.
	Callables []string
	// Keys lists the interned keys in keys-array order.
	Keys []string
}

// Source is the generated Java file.
func (c *TranspiledCode) Source() string { return c.Unit.Source }

const unitTemplate = `package ${package};

import ortus.boxlang.runtime.components.Component;
import ortus.boxlang.runtime.context.*;
import ortus.boxlang.runtime.dynamic.*;
import ortus.boxlang.runtime.dynamic.casters.*;
import ortus.boxlang.runtime.interop.DynamicObject;
import ortus.boxlang.runtime.loader.ClassLocator;
import ortus.boxlang.runtime.loader.ImportDefinition;
import ortus.boxlang.runtime.operators.*;
import ortus.boxlang.runtime.runnables.BoxTemplate;
import ortus.boxlang.runtime.scopes.*;
import ortus.boxlang.runtime.types.*;
import ortus.boxlang.runtime.types.exceptions.*;
import ortus.boxlang.runtime.util.*;
import java.math.BigDecimal;
import java.math.BigInteger;
import java.nio.file.Path;
import java.nio.file.Paths;
import java.time.LocalDateTime;
import java.util.Iterator;
import java.util.List;
import java.util.Map;
import java.util.Optional;

public class ${className} extends ${baseClass} {
private static ${className} instance;
private static final List<ImportDefinition> imports = List.of(${imports});
private static final Path path = Paths.get(${path});
private static final BoxSourceType sourceType = BoxSourceType.${sourceType};
private static final long compileVersion = ${compileVersion}L;
private static final LocalDateTime compiledOn = LocalDateTime.parse(${compiledOn});
private static final Object ast = null;
public static final Key[] keys = new Key[] {${keys}};
private static final ClassLocator classLocator = ClassLocator.getInstance();
public ${className}() {
}
public static synchronized ${className} getInstance() {
if (instance == null) {
instance = new ${className}();
}
return instance;
}
public List<ImportDefinition> getImports() {
return imports;
}
public Path getRunnablePath() {
return path;
}
public BoxSourceType getSourceType() {
return sourceType;
}
public long getRunnableCompileVersion() {
return compileVersion;
}
public LocalDateTime getRunnableCompiledOn() {
return compiledOn;
}
public Object getRunnableAST() {
return ast;
}
public ${returnType} _invoke(IBoxContext context) {
${body}
}
${callables}
}
`

// Transpile turns a script into a Java compilation unit. The transpiler's
// state is reset first, so one Transpiler can produce several units in
// sequence.
func (tr *Transpiler) Transpile(s *ast.Script) (*TranspiledCode, error) {
	version, err := compileVersion(tr.opts.CompileVersion)
	if err != nil {
		return nil, err
	}
	compiledOn := tr.opts.CompiledOn
	if compiledOn.IsZero() {
		compiledOn = time.Now()
	}

	tr.state = NewState(tr.opts.ClassName)
	tr.state.PushContext("context")
	defer tr.state.PopContext()
	tr.collectSignatures(s)

	res, err := tr.body(s.Statements)
	if err != nil {
		return nil, err
	}
	if err := tr.finish(res); err != nil {
		return nil, err
	}

	sourcePath := tr.opts.SourcePath
	if sourcePath == "" {
		sourcePath = "unknown"
	}
	unit, err := template.RenderCompilationUnit(unitTemplate, template.NewValues(
		"package", tr.opts.Package,
		"className", tr.opts.ClassName,
		"baseClass", tr.opts.BaseClass,
		"imports", tr.importDefinitions(),
		"path", java.Quote(sourcePath),
		"sourceType", tr.opts.SourceType,
		"compileVersion", fmt.Sprint(version),
		"compiledOn", java.Quote(compiledOn.UTC().Format("2006-01-02T15:04:05")),
		"keys", tr.state.Keys().Java(),
		"returnType", tr.opts.ReturnType,
		"body", res.block.Source(),
		"callables", callableSource(tr.state.Callables()),
	))
	if err != nil {
		return nil, diagnostics.Attach(err, s.Position().Span(), "")
	}
	unit.SourceMap = sourceMap(unit, res.lines)

	code := &TranspiledCode{
		CompileID: uuid.New(),
		ClassName: tr.opts.ClassName,
		Package:   tr.opts.Package,
		Unit:      unit,
		Callables: tr.state.CallableNames(),
		Keys:      tr.state.Keys().Values(),
	}
	tr.logger.Debug("unit transpiled",
		"class", code.ClassName,
		"compile_id", code.CompileID.String(),
		"statements", res.block.Len(),
		"callables", len(code.Callables),
		"keys", len(code.Keys))
	return code, nil
}

// collectSignatures indexes every function declared in the unit so calls
// placed before a declaration can still bind named arguments.
func (tr *Transpiler) collectSignatures(s *ast.Script) {
	ast.Walk(s, func(n ast.Node) bool {
		if f, ok := n.(*ast.FunctionDeclaration); ok {
			lower := strings.ToLower(f.Name)
			if _, seen := tr.state.signatures[lower]; !seen {
				tr.state.signatures[lower] = f
			}
		}
		return true
	})
}

// finish makes the entry point return a value: a trailing expression
// statement becomes the result, otherwise null is returned.
func (tr *Transpiler) finish(res *bodyResult) error {
	if tr.opts.ReturnType == "void" {
		return nil
	}
	if res.last != nil {
		ret, err := renderStmt("return ${expr};", "expr", res.last.String())
		if err != nil {
			return err
		}
		res.block.ReplaceLast(ret)
		return nil
	}
	if res.block.Terminates() {
		return nil
	}
	ret, err := renderStmt("return null;")
	if err != nil {
		return err
	}
	res.append(ret, 0)
	return nil
}

func (tr *Transpiler) importDefinitions() string {
	defs := make([]string, len(tr.state.imports))
	for i, d := range tr.state.imports {
		resolver := "null"
		if d.Resolver != "" {
			resolver = java.Quote(d.Resolver)
		}
		defs[i] = fmt.Sprintf("new ImportDefinition(%s, %s, %s)", java.Quote(d.FQN), resolver, java.Quote(d.Alias))
	}
	return strings.Join(defs, ", ")
}

func callableSource(decls []*java.Decl) string {
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n\n")
}

// sourceMap pairs the statements of _invoke with the source lines they
// were generated from. Synthetic statements have no source line.
func sourceMap(unit *java.CompilationUnit, lines []int) []java.LineMapping {
	if unit.Class == nil {
		return nil
	}
	invoke := unit.Class.Method("_invoke")
	if invoke == nil {
		return nil
	}
	var out []java.LineMapping
	for i, s := range invoke.Body {
		if i >= len(lines) || lines[i] <= 0 {
			continue
		}
		out = append(out, java.LineMapping{JavaLine: s.Line, SourceLine: lines[i]})
	}
	return out
}

// compileVersion packs a semantic version into the long the runtime
// compares: major*1_000_000 + minor*1_000 + patch.
func compileVersion(v string) (int64, error) {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return 0, diagnostics.Wrap(diagnostics.InvalidConfig, diagnostics.Span{}, err,
			"invalid compile version %q", v)
	}
	if sv.Minor() >= 1000 || sv.Patch() >= 1000 {
		return 0, diagnostics.NewError(diagnostics.InvalidConfig, diagnostics.Span{},
			"compile version %s has a component above 999", v)
	}
	return int64(sv.Major())*1_000_000 + int64(sv.Minor())*1_000 + int64(sv.Patch()), nil
}
