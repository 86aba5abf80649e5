// Package pipeline runs one compilation unit through its stages: decode
// the AST document, consult the cache, transpile, validate the generated
// Java, store and emit it.
package pipeline

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. The first stage that reports an error ends
// the unit; later stages never see a half-built result.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		if len(ctx.Errors) > 0 {
			break
		}
	}
	return ctx
}
