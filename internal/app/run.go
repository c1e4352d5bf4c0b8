package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"github.com/vk/bogflow/internal/bog"
	"github.com/vk/bogflow/internal/chain"
	"github.com/vk/bogflow/internal/config"
	"github.com/vk/bogflow/internal/ctxlog"
	"github.com/vk/bogflow/internal/ctyconv"
	"github.com/vk/bogflow/internal/report"
	"github.com/vk/bogflow/internal/runstore"
	"github.com/vk/bogflow/internal/scheduler"
	"github.com/vk/bogflow/modules/core"
	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrNothingToRun is returned by Run when neither a workflow nor a chain
	// is configured.
	ErrNothingToRun = errors.New("no workflow or chain to run")
	// ErrRunUnsuccessful is returned by Run when some service of the chain
	// failed or never ran.
	ErrRunUnsuccessful = errors.New("run did not complete successfully")
)

// Result is what a finished run produced.
type Result struct {
	ID           string
	Results      bog.Bag
	Unsuccessful report.Unsuccessful
	ReportPath   string
}

// Run executes the configured workflow or chain under a RootTask, records
// every outcome in the ledger and, when a logs directory is set, keeps
// run.json up to date.
func (a *App) Run(ctx context.Context) (*Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		if err := a.startHealthcheckServer(a.config.HealthcheckPort); err != nil {
			return nil, err
		}
		defer a.closeHealthcheckServer()
	}

	work, inputs, names, err := a.buildWork()
	if err != nil {
		return nil, err
	}
	if err := chain.Validate(a.registry, work, inputs.Keys()...); err != nil {
		return nil, fmt.Errorf("chain validation failed: %w", err)
	}

	uid := report.NewUID()
	res := &Result{ID: uid.String()}
	var runData *report.RunData
	if a.config.LogsDir != "" {
		runData = report.NewRunData(uid, filepath.Join(a.config.LogsDir, uid.String()), names, inputs, a.config.Argv)
		if err := runData.Write(); err != nil {
			return nil, fmt.Errorf("failed to write run report: %w", err)
		}
		res.ReportPath = runData.Path()
	}

	opts := []scheduler.Option{
		scheduler.WithMetrics(a.metrics),
		scheduler.WithRecorder(runstore.Recorder(a.store, uid.String())),
		scheduler.WithDefaultLimit(a.config.WorkerCount),
	}
	if a.config.Strict {
		opts = append(opts, scheduler.WithStrictSerialization())
	}
	engine := scheduler.New(a.registry, opts...)
	defer engine.Drain()

	a.logger.Info("🚀 Starting run.", "id", uid.String(), "chain", work)
	root := chain.Sig(core.RootTaskService, chain.Args{"chain": work})
	out, runErr := engine.SubmitAndWait(ctx, root, inputs, scheduler.ExtractOptions{})
	if runErr == nil {
		res.Results, res.Unsuccessful = rootOutputs(out)
		if len(res.Unsuccessful.Failed) > 0 || len(res.Unsuccessful.NotRun) > 0 {
			runErr = fmt.Errorf("%w: failed %v, not run %v", ErrRunUnsuccessful, res.Unsuccessful.Failed, res.Unsuccessful.NotRun)
		}
	}

	if runData != nil {
		runData.Complete(res.Results, res.Unsuccessful, runErr)
		if err := runData.Write(); err != nil {
			a.logger.Error("Failed to write run report.", "path", runData.Path(), "error", err)
		}
	}

	if runErr != nil {
		a.logger.Error("❌ Run failed.", "id", uid.String(), "error", runErr)
		return res, runErr
	}
	a.logger.Info("🏁 Run finished.", "id", uid.String(), "results", res.Results.Keys())
	return res, nil
}

// buildWork returns the work to run, the bag it starts from and the names
// of its services. Arguments given on the command line win over a
// workflow's inject block.
func (a *App) buildWork() (chain.Work, bog.Bag, []string, error) {
	args := make(map[string]any, len(a.config.Args))
	for k, v := range a.config.Args {
		args[k] = v
	}

	switch {
	case a.config.Workflow != "":
		wf, ok := a.model.Workflow(a.config.Workflow)
		if !ok {
			return nil, bog.Bag{}, nil, fmt.Errorf("workflow '%s' not found", a.config.Workflow)
		}
		return workflowWork(wf, args)
	case a.config.Chain != "":
		names := chain.SplitList(a.config.Chain)
		if len(names) == 0 {
			return nil, bog.Bag{}, nil, fmt.Errorf("%w: '%s' names no services", chain.ErrInvalidChain, a.config.Chain)
		}
		c, err := chain.FromList(names, nil)
		if err != nil {
			return nil, bog.Bag{}, nil, err
		}
		return c, bog.New(args), names, nil
	default:
		return nil, bog.Bag{}, nil, ErrNothingToRun
	}
}

func workflowWork(wf *config.Workflow, args map[string]any) (chain.Work, bog.Bag, []string, error) {
	if len(wf.Steps) == 0 {
		return nil, bog.Bag{}, nil, fmt.Errorf("%w: workflow '%s' (%s) has no steps", chain.ErrInvalidChain, wf.Name, wf.Source)
	}

	injected, err := nativeMap(wf.Inject)
	if err != nil {
		return nil, bog.Bag{}, nil, fmt.Errorf("workflow '%s' inject: %w", wf.Name, err)
	}
	maps.Copy(injected, args)

	works := make([]chain.Work, 0, len(wf.Steps))
	names := make([]string, 0, len(wf.Steps))
	for i, st := range wf.Steps {
		stepArgs, err := nativeMap(st.Arguments)
		if err != nil {
			return nil, bog.Bag{}, nil, fmt.Errorf("workflow '%s' step %d (%s): %w", wf.Name, i, st.Service, err)
		}
		works = append(works, chain.Sig(st.Service, stepArgs))
		names = append(names, st.Service)
	}
	c, err := chain.New(works...)
	if err != nil {
		return nil, bog.Bag{}, nil, err
	}
	return c, bog.New(injected), names, nil
}

func nativeMap(values map[string]cty.Value) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for _, k := range slices.Sorted(maps.Keys(values)) {
		v, err := ctyconv.ToNative(values[k])
		if err != nil {
			return nil, fmt.Errorf("'%s': %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// rootOutputs unpacks the RootTask's returns.
func rootOutputs(out bog.Bag) (bog.Bag, report.Unsuccessful) {
	var results bog.Bag
	if raw, ok := out.Get("chain_results"); ok {
		if m, ok := raw.(map[string]any); ok {
			results = bog.New(m)
		}
	}
	var u report.Unsuccessful
	if raw, ok := out.Get("unsuccessful_services"); ok {
		if m, ok := raw.(map[string]any); ok {
			u.Failed, _ = m["failed"].([]string)
			u.NotRun, _ = m["not_run"].([]string)
		}
	}
	return results, u
}
