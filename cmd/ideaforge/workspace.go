package main

import (
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/ideaforge/internal/config"
	"github.com/hpungsan/ideaforge/internal/db"
	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/generator"
	"github.com/hpungsan/ideaforge/internal/idea"
	"github.com/hpungsan/ideaforge/internal/logging"
	"github.com/hpungsan/ideaforge/internal/ops"
	"github.com/hpungsan/ideaforge/internal/project"
)

// newGenerator builds the content generator for a workspace. Tests replace it.
var newGenerator = func(cfg *config.Config) generator.Generator {
	return generator.NewOpenAI(generator.Options{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		APIKey:  config.APIKey(),
		Timeout: cfg.Timeout(),
	})
}

// workspace is everything one command needs, opened from a workspace directory.
type workspace struct {
	dir    string
	cfg    *config.Config
	db     *sql.DB
	ledger *db.Ledger
	env    *ops.Env
	logger *logrus.Logger
}

// openWorkspace loads config and .env from dir, opens the run ledger, and
// wires the stores and generator. Logs go to logOut.
func openWorkspace(dir string, logOut io.Writer) (*workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("workspace %q: %v", dir, err))
	}

	cfg, err := config.Load(abs)
	if err != nil {
		return nil, errors.NewConfig(fmt.Sprintf("failed to load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfig(fmt.Sprintf("invalid config: %v", err))
	}
	if err := config.LoadEnv(abs); err != nil {
		return nil, errors.NewConfig(err.Error())
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, logOut)
	if err != nil {
		return nil, errors.NewConfig(err.Error())
	}

	database, err := db.Init(abs)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to initialize ledger: %w", err))
	}
	ledger := db.NewLedger(database)

	env := &ops.Env{
		Ideas:     idea.NewFileStore(cfg.IdeasPath(abs), logger),
		Projects:  project.NewFileStore(cfg.ProjectsPath(abs)),
		Generator: newGenerator(cfg),
		Blacklist: idea.NewBlacklist(slices.Concat(idea.DefaultBlacklist, cfg.Blacklist)),
		Recorder:  ledger,
		Logger:    logger.WithField("workspace", abs),
	}

	return &workspace{
		dir:    abs,
		cfg:    cfg,
		db:     database,
		ledger: ledger,
		env:    env,
		logger: logger,
	}, nil
}

// Close releases the ledger handle.
func (w *workspace) Close() error {
	return w.db.Close()
}
