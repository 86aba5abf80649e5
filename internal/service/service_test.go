package service

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/funvibe/boxpiler/internal/cache"
	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/pipeline"
	"github.com/funvibe/boxpiler/internal/transpiler"
)

const helloDoc = `ASTType: BoxScript
statements:
  - ASTType: BoxBufferOutput
    expression: {ASTType: BoxStringLiteral, value: hello}
`

func startServer(t *testing.T, settings pipeline.Settings) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv, err := NewServer(settings, nil)
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDescriptor(t *testing.T) {
	sd, err := Descriptor()
	require.NoError(t, err)
	assert.Equal(t, ServiceName, sd.GetFullyQualifiedName())
	assert.Len(t, sd.GetMethods(), 2)

	md, err := method("Transpile")
	require.NoError(t, err)
	assert.Equal(t, "/boxpiler.v1.Transpiler/Transpile", methodPath(md.UnwrapMethod()))
	_, err = method("Compile")
	assert.Error(t, err)
}

func TestTranspileRoundTrip(t *testing.T) {
	c := startServer(t, pipeline.Settings{})
	reply, err := c.Transpile(context.Background(), Request{
		DocumentName: "pages/index.bxs.yaml",
		Document:     []byte(helloDoc),
	})
	require.NoError(t, err)
	require.NoError(t, reply.Err())
	assert.Equal(t, "Index$bxs", reply.ClassName)
	assert.Equal(t, "pages", reply.Package)
	assert.Contains(t, reply.Source, `context.writeToBuffer("hello");`)
	assert.NotEmpty(t, reply.CompileID)
	assert.False(t, reply.Cached)
}

func TestTranspileNameOverrides(t *testing.T) {
	c := startServer(t, pipeline.Settings{Options: []transpiler.Option{transpiler.WithPackage("site")}})
	reply, err := c.Transpile(context.Background(), Request{
		DocumentName: "index.json.yaml",
		Document:     []byte(helloDoc),
		ClassName:    "Home",
	})
	require.NoError(t, err)
	require.NoError(t, reply.Err())
	assert.Equal(t, "Home", reply.ClassName)
	assert.Equal(t, "site", reply.Package)

	reply, err = c.Transpile(context.Background(), Request{
		DocumentName: "index.yaml",
		Document:     []byte(helloDoc),
		Package:      "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "admin", reply.Package, "request package wins over the server default")
}

func TestTranspileDiagnostics(t *testing.T) {
	c := startServer(t, pipeline.Settings{})
	reply, err := c.Transpile(context.Background(), Request{
		DocumentName: "loop.yaml",
		Document:     []byte("ASTType: BoxScript\nstatements:\n  - ASTType: BoxBreak\n"),
	})
	require.NoError(t, err)
	require.Len(t, reply.Diagnostics, 1)
	d := reply.Diagnostics[0]
	assert.Equal(t, diagnostics.MisplacedStatement, d.Code)
	assert.True(t, diagnostics.HasCode(reply.Err(), diagnostics.MisplacedStatement))
	assert.Empty(t, reply.Source)
}

func TestTranspileRequiresDocument(t *testing.T) {
	c := startServer(t, pipeline.Settings{})
	_, err := c.Transpile(context.Background(), Request{DocumentName: "x.json"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestTranspileUsesCache(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := startServer(t, pipeline.Settings{Cache: store})
	req := Request{DocumentName: "index.yaml", Document: []byte(helloDoc)}
	first, err := c.Transpile(context.Background(), req)
	require.NoError(t, err)
	second, err := c.Transpile(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.CompileID, second.CompileID)
}

func TestKinds(t *testing.T) {
	c := startServer(t, pipeline.Settings{})
	kinds, err := c.Kinds(context.Background())
	require.NoError(t, err)
	assert.Contains(t, kinds, "BoxScript")
	assert.Contains(t, kinds, "BoxBinaryOperation")
}
