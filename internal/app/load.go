package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/envfile"
	"github.com/specialistvlad/testgrid/internal/hcl_adapter"
)

// LoadDefinitions reads the HCL definitions and the YAML environment files
// and writes them into the store.
func (a *App) LoadDefinitions(ctx context.Context) (hcl_adapter.SyncStats, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := a.logger
	logger.Debug("Loading definitions...", "definitions_path", a.config.DefinitionsPath, "env_files_path", a.config.EnvFilesPath)

	defs, err := a.loader.Load(ctx, a.config.DefinitionsPath)
	if err != nil {
		return hcl_adapter.SyncStats{}, fmt.Errorf("failed to load definitions: %w", err)
	}

	if a.config.EnvFilesPath != "" {
		vars, err := envfile.Load(a.config.EnvFilesPath)
		if err != nil {
			return hcl_adapter.SyncStats{}, fmt.Errorf("failed to load environment files: %w", err)
		}
		declared := map[string]bool{}
		for _, v := range defs.Variables {
			declared[v.Environment] = true
		}
		for _, v := range vars {
			if declared[v.Environment] {
				return hcl_adapter.SyncStats{}, fmt.Errorf("environment %q is declared both in HCL and in an environment file", v.Environment)
			}
		}
		defs.Variables = append(defs.Variables, vars...)
	}

	stats, err := defs.Apply(ctx, a.store)
	if err != nil {
		return stats, fmt.Errorf("failed to store definitions: %w", err)
	}
	logger.Info("Definitions loaded successfully.",
		"files", len(defs.Files), "campaigns", len(defs.Campaigns), "tests", len(defs.Tests), "variables", len(defs.Variables))
	return stats, nil
}

// Reload rediscovers plugins and reloads the definitions. Runs already in
// progress keep the plugins and definitions they started with.
func (a *App) Reload(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if err := a.registry.Reload(ctx); err != nil {
		return err
	}
	_, err := a.LoadDefinitions(ctx)
	return err
}
