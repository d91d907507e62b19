// Package ingest dispatches normalized manifest items to the registry.
// Failures are isolated per item: a rejected registration is recorded and
// logged, and processing continues with the next item. Only structural
// manifest problems (handled upstream in the loader) abort an ingestion.
package ingest

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mlagent-labs/mlagent/internal/manifest"
	"github.com/mlagent-labs/mlagent/internal/registry"
)

// Registry is the slice of the registry surface the dispatcher needs.
type Registry interface {
	RegisterModel(name, path string, active bool, description string, ctx registry.PackageContext) (uint, error)
	SetPipelineDescription(name, description string) error
	AddResource(name, path, description string, ctx registry.PackageContext) error
}

// Outcome records the result of one registration attempt, or of one item
// the normalizer rejected before any call was made.
type Outcome struct {
	Kind    manifest.Kind
	Name    string
	Path    string
	Version uint // assigned model version, models only
	Err     error
}

// Report aggregates per-item outcomes of one manifest ingestion.
type Report struct {
	Outcomes  []Outcome
	Succeeded int
	Failed    int
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Err != nil {
		r.Failed++
	} else {
		r.Succeeded++
	}
}

// Ingestor drives one manifest through the registry. It holds no state
// across runs beyond its collaborators.
type Ingestor struct {
	reg Registry
	ctx registry.PackageContext
	log zerolog.Logger
}

// New builds an ingestor for one lifecycle invocation. The package
// context is attached to every model and resource registration.
func New(reg Registry, ctx registry.PackageContext, log zerolog.Logger) *Ingestor {
	return &Ingestor{reg: reg, ctx: ctx, log: log}
}

// Run registers every item of the manifest in document order and returns
// the per-item report. Run never fails as a whole; callers decide what a
// non-zero Failed count means (lifecycle hooks ignore it).
func (in *Ingestor) Run(m *manifest.Manifest) Report {
	var report Report

	for _, section := range m.Sections {
		items, issues := section.Items()

		for _, issue := range issues {
			err := errors.New(issue.Reason)
			in.log.Error().
				Stringer("kind", issue.Kind).
				Str("name", issue.Name).
				Int("element", issue.Element).
				Str("reason", issue.Reason).
				Msg("skipping item")
			report.add(Outcome{Kind: issue.Kind, Name: issue.Name, Err: err})
		}

		for _, item := range items {
			report.add(in.dispatch(item))
		}
	}

	return report
}

// dispatch invokes the registry operation matching the item's kind.
func (in *Ingestor) dispatch(item manifest.Item) Outcome {
	out := Outcome{Kind: item.Kind, Name: item.Name, Path: item.Path}

	switch item.Kind {
	case manifest.KindModel:
		version, err := in.reg.RegisterModel(item.Name, item.Path, item.Active, item.Description, in.ctx)
		if err != nil {
			out.Err = fmt.Errorf("registering model %q: %w", item.Name, err)
			break
		}
		out.Version = version
		in.log.Info().Str("name", item.Name).Uint("version", version).Msg("model registered")

	case manifest.KindPipeline:
		if err := in.reg.SetPipelineDescription(item.Name, item.Pipeline); err != nil {
			out.Err = fmt.Errorf("registering pipeline %q: %w", item.Name, err)
			break
		}
		in.log.Info().Str("name", item.Name).Msg("pipeline description registered")

	case manifest.KindResource:
		if err := in.reg.AddResource(item.Name, item.Path, item.Description, in.ctx); err != nil {
			out.Err = fmt.Errorf("registering resource %q path %q: %w", item.Name, item.Path, err)
			break
		}
		in.log.Info().Str("name", item.Name).Str("path", item.Path).Msg("resource registered")
	}

	if out.Err != nil {
		in.log.Error().Err(out.Err).Stringer("kind", item.Kind).Str("name", item.Name).Msg("registration failed")
	}
	return out
}
