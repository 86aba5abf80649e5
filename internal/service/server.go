// Package service exposes the transpiler over gRPC. The service is
// described by an embedded .proto file and served with dynamic messages,
// so no generated code is involved.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/funvibe/boxpiler/internal/ast"
	"github.com/funvibe/boxpiler/internal/diagnostics"
	"github.com/funvibe/boxpiler/internal/logging"
	"github.com/funvibe/boxpiler/internal/pipeline"
	"github.com/funvibe/boxpiler/internal/transpiler"
)

// Server answers Transpile and Kinds calls.
type Server struct {
	grpc     *grpc.Server
	settings pipeline.Settings
	logger   *slog.Logger
}

type unaryHandler func(s *Server, ctx context.Context, in *dynamic.Message, md *desc.MethodDescriptor) (*dynamic.Message, error)

var handlers = map[string]unaryHandler{
	"Transpile": (*Server).transpile,
	"Kinds":     (*Server).kinds,
}

// NewServer registers the service on a fresh grpc.Server. Generated units
// are never written to disk by the service; settings.OutDir is ignored.
func NewServer(settings pipeline.Settings, logger *slog.Logger, opts ...grpc.ServerOption) (*Server, error) {
	sd, err := Descriptor()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	settings.OutDir = ""
	s := &Server{
		grpc:     grpc.NewServer(opts...),
		settings: settings,
		logger:   logger.With("component", "service"),
	}

	gd := &grpc.ServiceDesc{
		ServiceName: sd.GetFullyQualifiedName(),
		HandlerType: (*any)(nil),
		Metadata:    sd.GetFile().GetName(),
	}
	for _, md := range sd.GetMethods() {
		h, ok := handlers[md.GetName()]
		m := md.UnwrapMethod()
		if !ok || m.IsStreamingClient() || m.IsStreamingServer() {
			continue
		}
		path := methodPath(m)
		gd.Methods = append(gd.Methods, grpc.MethodDesc{
			MethodName: md.GetName(),
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := dynamic.NewMessage(md.GetInputType())
				if err := dec(in); err != nil {
					return nil, err
				}
				call := func(ctx context.Context, req any) (any, error) {
					return h(srv.(*Server), ctx, req.(*dynamic.Message), md)
				}
				if interceptor == nil {
					return call(ctx, in)
				}
				info := &grpc.UnaryServerInfo{
					Server:     srv,
					FullMethod: path,
				}
				return interceptor(ctx, in, info, call)
			},
		})
	}
	s.grpc.RegisterService(gd, s)
	return s, nil
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("serving", "addr", lis.Addr().String())
	err := s.grpc.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Stop waits for in-flight calls to finish.
func (s *Server) Stop() { s.grpc.GracefulStop() }

func (s *Server) transpile(ctx context.Context, in *dynamic.Message, md *desc.MethodDescriptor) (*dynamic.Message, error) {
	name, _ := in.GetFieldByName("document_name").(string)
	doc, _ := in.GetFieldByName("document").([]byte)
	if name == "" || len(doc) == 0 {
		return nil, status.Error(codes.InvalidArgument, "document_name and document are required")
	}

	settings := s.settings
	settings.Options = append([]transpiler.Option(nil), s.settings.Options...)
	if pkg, _ := in.GetFieldByName("package").(string); pkg != "" {
		settings.Options = append(settings.Options, transpiler.WithPackage(pkg))
	}
	if cls, _ := in.GetFieldByName("class_name").(string); cls != "" {
		settings.Options = append(settings.Options, transpiler.WithClassName(cls))
	}

	start := time.Now()
	pc := pipeline.Standard(settings).Run(pipeline.NewContext(ctx, name, doc))
	out := dynamic.NewMessage(md.GetOutputType())
	if len(pc.Errors) > 0 {
		diagType := md.GetOutputType().FindFieldByName("diagnostics").GetMessageType()
		for _, err := range pc.Errors {
			var de *diagnostics.Error
			if !errors.As(err, &de) {
				s.logger.Error("transpile failed", "document", name, "error", err)
				return nil, status.Error(codes.Internal, err.Error())
			}
			if err := out.TryAddRepeatedFieldByName("diagnostics", diagnosticMessage(diagType, de)); err != nil {
				return nil, status.Error(codes.Internal, err.Error())
			}
		}
		s.logger.Debug("transpile rejected", "document", name, "errors", len(pc.Errors))
		return out, nil
	}

	r := pc.Result
	out.SetFieldByName("compile_id", r.CompileID)
	out.SetFieldByName("class_name", r.ClassName)
	out.SetFieldByName("package", r.Package)
	out.SetFieldByName("source", r.Source)
	out.SetFieldByName("callables", stringsOrEmpty(r.Callables))
	out.SetFieldByName("keys", stringsOrEmpty(r.Keys))
	out.SetFieldByName("cached", pc.Cached)
	s.logger.Info("transpiled", "document", name, "class", r.ClassName, "cached", pc.Cached, "elapsed", time.Since(start))
	return out, nil
}

func (s *Server) kinds(_ context.Context, _ *dynamic.Message, md *desc.MethodDescriptor) (*dynamic.Message, error) {
	var kinds []string
	for _, k := range ast.KnownKinds() {
		kinds = append(kinds, string(k))
	}
	out := dynamic.NewMessage(md.GetOutputType())
	out.SetFieldByName("kinds", kinds)
	return out, nil
}

func diagnosticMessage(md *desc.MessageDescriptor, de *diagnostics.Error) *dynamic.Message {
	m := dynamic.NewMessage(md)
	m.SetFieldByName("code", string(de.Code))
	m.SetFieldByName("name", de.Code.Name())
	m.SetFieldByName("file", de.Span.File)
	m.SetFieldByName("line", int32(de.Span.Line))
	m.SetFieldByName("column", int32(de.Span.Column))
	m.SetFieldByName("message", de.Message)
	m.SetFieldByName("hint", de.Hint)
	m.SetFieldByName("source_text", de.SourceText)
	return m
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
