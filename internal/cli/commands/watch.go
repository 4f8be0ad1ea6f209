package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/conduit-lang/schemaviewer/internal/cli/config"
	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
	"github.com/conduit-lang/schemaviewer/internal/viewer"
	"github.com/conduit-lang/schemaviewer/internal/watch"
	"github.com/conduit-lang/schemaviewer/internal/web/cache"
	"go.uber.org/zap"
)

// reloader rebuilds the registry from the manifests and swaps it into the running viewer
type reloader struct {
	schema  config.SchemaConfig
	handler *viewer.Handler
	store   cache.Store
	reloads *watch.ReloadServer
	logger  *zap.Logger
}

// reload rebuilds the registry. On failure the viewer keeps serving the previous registry
// and open pages are told why.
func (rl *reloader) reload(ctx context.Context, files []string) error {
	rl.logger.Info("manifests changed", zap.Strings("files", files))

	registry, err := buildRegistry(rl.schema)
	if err != nil {
		rl.fail([]string{err.Error()})
		return err
	}

	issues := registry.Check()
	if schema.HasErrors(issues) {
		var messages []string
		for _, issue := range issues {
			if issue.Level == schema.LevelError {
				messages = append(messages, issue.String())
			}
		}
		rl.fail(messages)
		return fmt.Errorf("registry check failed with %d issue(s)", len(messages))
	}

	previous := rl.handler.Fingerprint()
	rl.handler.SetRegistry(registry)
	fingerprint := rl.handler.Fingerprint()
	if fingerprint == previous {
		rl.logger.Debug("schema unchanged", zap.String("fingerprint", fingerprint))
		return nil
	}

	if rl.store != nil {
		if err := rl.store.Clear(ctx); err != nil {
			rl.logger.Warn("failed to clear response cache", zap.Error(err))
		}
	}

	models := len(registry.Models())
	rl.logger.Info("schema reloaded", zap.String("fingerprint", fingerprint), zap.Int("models", models))
	if rl.reloads != nil {
		rl.reloads.NotifyReload(fingerprint, models)
	}
	return nil
}

func (rl *reloader) fail(messages []string) {
	rl.logger.Error("schema reload failed, keeping previous schema", zap.Strings("errors", messages))
	if rl.reloads != nil {
		rl.reloads.NotifyError(messages)
	}
}

// startWatcher watches the configured manifests and reloads on change
func startWatcher(ctx context.Context, rl *reloader) (*watch.Watcher, error) {
	if len(rl.schema.Manifests) == 0 {
		return nil, errors.New("watch requires at least one manifest (--manifest or schema.manifests)")
	}

	w, err := watch.NewWatcher(rl.schema.Manifests, watch.DefaultDelay, rl.logger, func(files []string) {
		// Failures are reported by reload itself
		_ = rl.reload(ctx, files)
	})
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}
