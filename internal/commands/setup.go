package commands

import (
	"context"
	"io"
	"log/slog"

	"gtasks/internal/config"
	"gtasks/internal/integration"
	"gtasks/internal/service"
)

// logger returns the logger for one-shot commands: warnings and errors
// only, unless --debug is given. Logs go to errOut so stdout stays
// machine-readable.
func logger(cfg *config.Config, errOut io.Writer) *slog.Logger {
	if cfg.Debug {
		return cfg.Logger(errOut)
	}
	return slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{
		Level:       slog.LevelWarn,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// setup builds the integration instance for the tracked list. On failure
// it reports the error and returns a non-zero exit code.
func setup(ctx context.Context, cfg *config.Config, svc service.Service, errOut io.Writer) (*integration.Instance, int) {
	inst, err := integration.Setup(ctx, cfg, svc, logger(cfg, errOut))
	if err != nil {
		return nil, report(errOut, err)
	}
	return inst, 0
}
