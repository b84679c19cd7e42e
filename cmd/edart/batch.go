package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/usfs-r5/edart/internal/logger"
	"github.com/usfs-r5/edart/internal/models"
	"github.com/usfs-r5/edart/internal/scene"
)

// outcome is what a scene step reports back to the batch.
type outcome struct {
	Workspace string
	Outputs   int
	Skipped   bool
	Message   string
}

type sceneStep func(target string) (outcome, error)

// sceneArgs returns the scenes named on the command line, or the configured ones.
func (a *app) sceneArgs(args []string) ([]string, error) {
	paths := args
	if len(paths) == 0 {
		paths = a.cfg.Scenes.Paths
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenes given: pass TDIS paths or set scenes.paths")
	}
	return paths, nil
}

// runBatch runs step for every scene in order, recording each run in the ledger.
// The first failing scene stops the batch.
func (a *app) runBatch(kind string, paths []string, options any, step sceneStep) error {
	optJSON, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}

	var runs []models.Run
	for i, p := range paths {
		tdis, err := scene.ExpandTDISPath(a.fs, p)
		if err != nil {
			return a.failBatch(kind, runs, err)
		}
		logger.Info("[%d/%d] %s %s", i+1, len(paths), kind, tdis)

		run, stepErr := a.runOne(kind, tdis, string(optJSON), step)
		runs = append(runs, run)
		if stepErr != nil {
			return a.failBatch(kind, runs, fmt.Errorf("%s: %w", tdis, stepErr))
		}
	}

	if a.notifier != nil {
		if err := a.notifier.SendSummary(kind, runs); err != nil {
			logger.Warn("Failed to send Telegram notification: %v", err)
		}
	}
	return nil
}

// runOne runs step for target and records the run in the ledger.
func (a *app) runOne(kind, target, options string, step sceneStep) (models.Run, error) {
	run := models.Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Scene:     target,
		Options:   options,
		Status:    models.RunRunning,
		StartedAt: time.Now(),
	}
	if a.store != nil {
		if err := a.store.AddRun(&run); err != nil {
			logger.Warn("Failed to record run: %v", err)
		}
	}

	out, stepErr := step(target)
	finished := time.Now()
	run.FinishedAt = &finished
	run.Workspace = out.Workspace
	run.Outputs = out.Outputs
	run.Message = out.Message
	switch {
	case stepErr != nil:
		run.Status = models.RunFailed
		run.Message = stepErr.Error()
	case out.Skipped:
		run.Status = models.RunSkipped
	default:
		run.Status = models.RunDone
	}
	if a.store != nil {
		if err := a.store.FinishRun(run.ID, run.Status, run.Workspace, run.Outputs, run.Message, finished); err != nil {
			logger.Warn("Failed to update run: %v", err)
		}
	}
	if stepErr == nil {
		logger.Info("%s %s: %s, %d output(s) in %s", kind, target, run.Status, run.Outputs,
			run.Duration().Round(time.Millisecond))
	}
	return run, stepErr
}

func (a *app) failBatch(kind string, runs []models.Run, err error) error {
	if a.notifier != nil {
		if sendErr := a.notifier.SendError(kind, err); sendErr != nil {
			logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
		}
		if len(runs) > 0 {
			if sendErr := a.notifier.SendSummary(kind, runs); sendErr != nil {
				logger.Warn("Failed to send Telegram notification: %v", sendErr)
			}
		}
	}
	return err
}
