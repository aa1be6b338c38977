package mcpsrv

import (
	"github.com/usestring/flowschema/internal/catalog"
	"github.com/usestring/flowschema/internal/config"
	"github.com/usestring/flowschema/internal/mcp/tools"
	"github.com/usestring/flowschema/internal/output"
	"github.com/usestring/flowschema/internal/pipeline"
)

// Deps is what custom tools share with the builtin ones.
type Deps struct {
	Config  *config.Config
	Options pipeline.Options
	Writer  output.Writer
	Results *tools.ResultStore
}

// Pipeline returns a pipeline configured like the one the builtin tools use.
func (d *Deps) Pipeline() *pipeline.Pipeline {
	return pipeline.New(d.Options)
}

// Result returns the structure stored by an earlier infer_api_schema call.
func (d *Deps) Result(resultID string) (*catalog.Structure, bool) {
	return d.Results.Get(resultID)
}
