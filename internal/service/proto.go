package service

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	protoFile   = "boxpiler/v1/transpiler.proto"
	ServiceName = "boxpiler.v1.Transpiler"
)

//go:embed transpiler.proto
var protoSource string

var (
	serviceOnce sync.Once
	serviceDesc *desc.ServiceDescriptor
	serviceErr  error
)

// Descriptor returns the parsed Transpiler service.
func Descriptor() (*desc.ServiceDescriptor, error) {
	serviceOnce.Do(func() {
		parser := protoparse.Parser{
			Accessor: protoparse.FileContentsFromMap(map[string]string{protoFile: protoSource}),
		}
		fds, err := parser.ParseFiles(protoFile)
		if err != nil {
			serviceErr = fmt.Errorf("parsing %s: %w", protoFile, err)
			return
		}
		serviceDesc = fds[0].FindService(ServiceName)
		if serviceDesc == nil {
			serviceErr = fmt.Errorf("%s does not declare %s", protoFile, ServiceName)
		}
	})
	return serviceDesc, serviceErr
}

func method(name string) (*desc.MethodDescriptor, error) {
	sd, err := Descriptor()
	if err != nil {
		return nil, err
	}
	md := sd.FindMethodByName(name)
	if md == nil {
		return nil, fmt.Errorf("%s has no method %s", ServiceName, name)
	}
	return md, nil
}

// methodPath is the HTTP/2 path gRPC routes md on.
func methodPath(md protoreflect.MethodDescriptor) string {
	return fmt.Sprintf("/%s/%s", md.Parent().FullName(), md.Name())
}
