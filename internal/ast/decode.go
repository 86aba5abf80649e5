package ast

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/boxpiler/internal/diagnostics"
)

//go:embed ast.schema.json
var schemaJSON []byte

const schemaURL = "https://boxpiler.funvibe.dev/schema/ast.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Format is the encoding of an AST document.
type Format int

const (
	FormatAuto Format = iota
	FormatJSON
	FormatYAML
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatAuto
}

// DecodeScript decodes a document whose root is a BoxScript.
func DecodeScript(data []byte, file string, format Format) (*Script, error) {
	n, err := Decode(data, file, format)
	if err != nil {
		return nil, err
	}
	script, ok := n.(*Script)
	if !ok {
		return nil, diagnostics.NewError(diagnostics.MalformedAST, n.Position().Span(),
			"document root is %s, expected %s", n.Kind(), KindScript)
	}
	return script, nil
}

// Decode reads an ASTType-tagged JSON or YAML document, validates it
// against the document schema and builds a linked node tree. file is
// recorded as the source of every position.
func Decode(data []byte, file string, format Format) (Node, error) {
	doc, err := readDocument(data, format)
	if err != nil {
		return nil, diagnostics.Wrap(diagnostics.MalformedAST, diagnostics.Span{File: file}, err, "cannot read AST document")
	}
	sch, err := documentSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling AST schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, diagnostics.Wrap(diagnostics.MalformedAST, diagnostics.Span{File: file}, err, "AST document does not match the schema")
	}
	d := &decoder{file: file}
	root, err := d.node(doc, "$")
	if err != nil {
		return nil, err
	}
	Link(root)
	return root, nil
}

// readDocument produces the generic JSON value model (maps, slices,
// json.Number, string, bool, nil) for both encodings so the schema
// validator and the decoder see one representation.
func readDocument(data []byte, format Format) (any, error) {
	if format == FormatAuto {
		format = FormatYAML
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			format = FormatJSON
		}
	}
	if format == FormatYAML {
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		var err error
		if data, err = json.Marshal(v); err != nil {
			return nil, err
		}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// KnownKinds lists every node kind the decoder understands, sorted.
func KnownKinds() []Kind {
	out := make([]Kind, 0, len(builders))
	for k := range builders {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// suggestKind finds the known kind closest to an unknown ASTType.
func suggestKind(name string) string {
	candidates := make([]string, 0, len(builders))
	for k := range builders {
		candidates = append(candidates, string(k))
	}
	sort.Strings(candidates)
	if ranks := fuzzy.RankFindFold(name, candidates); len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	best, bestDist := "", -1
	for _, c := range candidates {
		dist := fuzzy.LevenshteinDistance(strings.ToLower(name), strings.ToLower(c))
		if bestDist < 0 || dist < bestDist {
			best, bestDist = c, dist
		}
	}
	if bestDist >= 0 && bestDist <= len(name)/3 {
		return best
	}
	return ""
}
