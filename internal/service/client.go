package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/funvibe/boxpiler/internal/diagnostics"
)

// Client calls a remote Transpiler service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to target. Without options the connection is plaintext.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// Request is one document to transpile. Package and ClassName override
// the names derived from DocumentName.
type Request struct {
	DocumentName string
	Document     []byte
	Package      string
	ClassName    string
}

// Reply is the generated unit, or the diagnostics that prevented it.
type Reply struct {
	CompileID   string
	ClassName   string
	Package     string
	Source      string
	Callables   []string
	Keys        []string
	Cached      bool
	Diagnostics []*diagnostics.Error
}

// Err joins the reply's diagnostics, nil when the unit was generated.
func (r *Reply) Err() error {
	if len(r.Diagnostics) == 0 {
		return nil
	}
	errs := make([]error, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		errs[i] = d
	}
	return errors.Join(errs...)
}

func (c *Client) Transpile(ctx context.Context, req Request) (*Reply, error) {
	md, err := method("Transpile")
	if err != nil {
		return nil, err
	}
	in := dynamic.NewMessage(md.GetInputType())
	in.SetFieldByName("document_name", req.DocumentName)
	in.SetFieldByName("document", req.Document)
	in.SetFieldByName("package", req.Package)
	in.SetFieldByName("class_name", req.ClassName)

	out := dynamic.NewMessage(md.GetOutputType())
	if err := c.conn.Invoke(ctx, methodPath(md.UnwrapMethod()), in, out); err != nil {
		return nil, err
	}

	r := &Reply{
		CompileID: stringField(out, "compile_id"),
		ClassName: stringField(out, "class_name"),
		Package:   stringField(out, "package"),
		Source:    stringField(out, "source"),
		Callables: stringsField(out, "callables"),
		Keys:      stringsField(out, "keys"),
	}
	r.Cached, _ = out.GetFieldByName("cached").(bool)
	for i := 0; i < out.FieldLengthByName("diagnostics"); i++ {
		d, ok := out.GetRepeatedFieldByName("diagnostics", i).(*dynamic.Message)
		if !ok {
			return nil, fmt.Errorf("unexpected diagnostic value %T", out.GetRepeatedFieldByName("diagnostics", i))
		}
		r.Diagnostics = append(r.Diagnostics, diagnosticFromMessage(d))
	}
	return r, nil
}

// Kinds lists the AST node types the remote transpiler understands.
func (c *Client) Kinds(ctx context.Context) ([]string, error) {
	md, err := method("Kinds")
	if err != nil {
		return nil, err
	}
	out := dynamic.NewMessage(md.GetOutputType())
	if err := c.conn.Invoke(ctx, methodPath(md.UnwrapMethod()), dynamic.NewMessage(md.GetInputType()), out); err != nil {
		return nil, err
	}
	return stringsField(out, "kinds"), nil
}

func diagnosticFromMessage(m *dynamic.Message) *diagnostics.Error {
	line, _ := m.GetFieldByName("line").(int32)
	col, _ := m.GetFieldByName("column").(int32)
	return &diagnostics.Error{
		Code: diagnostics.Code(stringField(m, "code")),
		Span: diagnostics.Span{
			File:   stringField(m, "file"),
			Line:   int(line),
			Column: int(col),
		},
		Message:    stringField(m, "message"),
		Hint:       stringField(m, "hint"),
		SourceText: stringField(m, "source_text"),
	}
}

func stringField(m *dynamic.Message, name string) string {
	s, _ := m.GetFieldByName(name).(string)
	return s
}

func stringsField(m *dynamic.Message, name string) []string {
	var out []string
	for i := 0; i < m.FieldLengthByName(name); i++ {
		if s, ok := m.GetRepeatedFieldByName(name, i).(string); ok {
			out = append(out, s)
		}
	}
	return out
}
