package pipeline

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pdswan/wheelhouse/internal/config"
	"github.com/pdswan/wheelhouse/internal/models"
)

// StageFunc executes one stage. A non-nil error is fatal for the run.
type StageFunc func(ctx context.Context) error

// Runner executes a validated graph strictly sequentially. There is no
// rollback: orders submitted before a failure stand.
type Runner struct {
	graph  *Graph
	funcs  map[string]StageFunc
	logger *logrus.Logger
}

// NewRunner builds a Runner over a validated graph.
func NewRunner(graph *Graph, logger *logrus.Logger) *Runner {
	return &Runner{
		graph:  graph,
		funcs:  make(map[string]StageFunc),
		logger: logger,
	}
}

// Bind attaches the implementation for a stage id.
func (r *Runner) Bind(id string, fn StageFunc) {
	r.funcs[id] = fn
}

// Execute runs every stage in resolved order, recording per-stage outcomes
// in the report. The first fatal error stops execution; stages after it are
// marked aborted and the error is returned.
func (r *Runner) Execute(ctx context.Context, report *models.RunReport) error {
	order, err := r.graph.ResolveOrder()
	if err != nil {
		return err
	}

	for _, id := range order {
		stage, _ := r.graph.Stage(id)
		if stage.Enabled {
			if _, bound := r.funcs[id]; !bound {
				return config.Errorf("stage %s has no implementation", id)
			}
		}
	}

	var fatal error
	for _, id := range order {
		stage, _ := r.graph.Stage(id)
		log := r.logger.WithField("stage", id)

		switch {
		case fatal != nil:
			report.AddStage(id, models.StageAborted, nil)
		case !stage.Enabled:
			log.Debug("stage disabled, skipping")
			report.AddStage(id, models.StageSkipped, nil)
		default:
			log.Debug("running stage")
			if err := r.funcs[id](ctx); err != nil {
				log.WithError(err).Error("stage failed")
				report.AddStage(id, models.StageFailed, err)
				fatal = err
			} else {
				report.AddStage(id, models.StageOK, nil)
			}
		}
	}

	if fatal != nil {
		report.Fatal = fatal.Error()
	}
	return fatal
}
