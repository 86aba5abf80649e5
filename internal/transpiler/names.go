package transpiler

import (
	"path"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	defaultClassName = "TestClass"
	defaultPackage   = "ortus.test"
)

// unitNames resolves the class and package of a unit. Explicit names win;
// otherwise Test.bxs in dir/sub becomes class Test$bxs in package dir.sub.
func unitNames(sourcePath, className, pkg string) (string, string) {
	if className == "" {
		className = defaultClassName
		if base := filepath.Base(sourcePath); sourcePath != "" && base != "." && base != string(filepath.Separator) {
			className = classFromFile(base)
		}
	}
	if pkg == "" {
		pkg = packageFromDir(filepath.Dir(sourcePath))
	}
	return className, pkg
}

func classFromFile(base string) string {
	name := strings.ReplaceAll(base, ".", "$")
	name = javaIdentifier(name)
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func packageFromDir(dir string) string {
	var parts []string
	for _, seg := range strings.Split(path.Clean(filepath.ToSlash(dir)), "/") {
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		parts = append(parts, javaIdentifier(strings.ToLower(seg)))
	}
	if len(parts) == 0 {
		return defaultPackage
	}
	return strings.Join(parts, ".")
}

var javaKeywords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "class": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extends": true, "final": true, "finally": true, "float": true,
	"for": true, "goto": true, "if": true, "implements": true, "import": true,
	"instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true,
	"return": true, "short": true, "static": true, "strictfp": true, "super": true,
	"switch": true, "synchronized": true, "this": true, "throw": true, "throws": true,
	"transient": true, "try": true, "void": true, "volatile": true, "while": true,
	"true": true, "false": true, "null": true, "var": true, "record": true,
	"yield": true, "_": true,
}

// javaIdentifier maps an arbitrary name onto a legal Java identifier.
func javaIdentifier(name string) string {
	var sb strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
			sb.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	id := sb.String()
	if id == "" || javaKeywords[id] {
		id += "_"
	}
	return id
}
