package tools

import (
	"fmt"

	"github.com/usestring/flowschema/internal/config"
	"github.com/usestring/flowschema/internal/output"
	"github.com/usestring/flowschema/internal/pipeline"
	"github.com/usestring/flowschema/internal/query"
)

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Config  *config.Config
	Options pipeline.Options
	Writer  output.Writer
	Results *ResultStore
}

// NewDeps builds the tool dependencies described by cfg.
func NewDeps(cfg *config.Config) (*Deps, error) {
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	results, err := NewResultStore(DefaultResultStoreSize)
	if err != nil {
		return nil, fmt.Errorf("creating result store: %w", err)
	}
	return &Deps{
		Config:  cfg,
		Options: opts,
		Writer:  output.FromConfig(cfg),
		Results: results,
	}, nil
}

// Pipeline returns a pipeline for one call. A non-empty filter replaces the
// configured one.
func (d *Deps) Pipeline(filter string) (*pipeline.Pipeline, error) {
	opts := d.Options
	if filter != "" {
		f, err := query.NewFilter(filter)
		if err != nil {
			return nil, ErrInvalidInput(err.Error())
		}
		opts.Filter = f
	}
	return pipeline.New(opts), nil
}
