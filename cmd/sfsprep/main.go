// Package main runs the shape-from-shading depth preprocessor on a live or
// recorded frame source.
package main

import (
	"context"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	"go.viam.com/sfsprep/config"
	"go.viam.com/sfsprep/lifecycle"
	"go.viam.com/sfsprep/pipeline"
)

const perfMode = "perf"

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

var logger = golog.NewDevelopmentLogger("sfsprep")

// Arguments for the command.
type Arguments struct {
	InputPrefix string `flag:"0,usage=input file prefix"`
	Mode        string `flag:"1,usage=pass perf for a performance run"`
	ConfigFile  string `flag:"config,usage=json config file"`
	Debug       bool   `flag:"debug,usage=enable debug logging"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Debug {
		logger = golog.NewDebugLogger("sfsprep")
	}

	cfg := config.Default()
	if argsParsed.ConfigFile != "" {
		var err error
		if cfg, err = config.Read(argsParsed.ConfigFile); err != nil {
			return err
		}
	}
	if argsParsed.InputPrefix != "" {
		cfg.InputPrefix = argsParsed.InputPrefix
	}
	switch argsParsed.Mode {
	case "":
	case perfMode:
		cfg.Perf = true
	default:
		logger.Warnw("invalid second parameter, ignoring", "value", argsParsed.Mode)
	}
	warnings, err := cfg.Validate("config")
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logger.Warn(w)
	}

	ctrl := lifecycle.NewController()
	stopSignals := ctrl.HandleSignals(ctx, logger)
	defer stopSignals()

	driver, err := pipeline.NewDriver(cfg, logger)
	if err != nil {
		return err
	}
	runner, err := pipeline.NewRunner(cfg, driver, ctrl, nil, logger)
	if err != nil {
		return err
	}
	logger.Infow("starting", "source", cfg.Source, "input_prefix", cfg.InputPrefix, "perf", cfg.Perf)
	return runner.Run(ctx)
}
