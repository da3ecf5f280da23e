package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"gorm.io/gorm"

	"github.com/andrescamacho/facsim-go/internal/adapters/logging"
	"github.com/andrescamacho/facsim-go/internal/adapters/metrics"
	"github.com/andrescamacho/facsim-go/internal/adapters/persistence"
	"github.com/andrescamacho/facsim-go/internal/adapters/report"
	"github.com/andrescamacho/facsim-go/internal/application/common"
	"github.com/andrescamacho/facsim-go/internal/application/simulation/commands"
	"github.com/andrescamacho/facsim-go/internal/application/simulation/queries"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
	"github.com/andrescamacho/facsim-go/internal/infrastructure/config"
	"github.com/andrescamacho/facsim-go/internal/infrastructure/database"
)

// app holds everything a command needs once the config is loaded
type app struct {
	cfg       *config.Config
	db        *gorm.DB
	mediator  common.Mediator
	runs      *persistence.GormRunRepository
	logs      *persistence.GormFacilityLogRepository
	publisher *report.Publisher
	logOut    io.Writer
	clock     shared.Clock
	closers   []func() error
}

// newApp connects the database, registers metrics and handlers and builds
// the report publisher. With persist false nothing touches the database.
func newApp(ctx context.Context, cfg *config.Config, persist bool) (*app, error) {
	a := &app{cfg: cfg, clock: shared.NewRealClock(), logOut: os.Stdout}

	switch cfg.Logging.Output {
	case "stderr":
		a.logOut = os.Stderr
	case "file":
		f, err := os.OpenFile(cfg.Logging.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.logOut = f
		a.closers = append(a.closers, f.Close)
	}

	var (
		runRepo  simulation.RunRepository
		recorder simulation.SnapshotRecorder
		opts     []commands.HandlerOption
	)
	if persist {
		db, err := database.NewConnection(&cfg.Database)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.AutoMigrate(db); err != nil {
			database.Close(db)
			a.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		a.db = db
		a.closers = append(a.closers, func() error { return database.Close(db) })

		a.runs = persistence.NewGormRunRepository(db, a.clock)
		a.logs = persistence.NewGormFacilityLogRepository(db, a.clock)
		runRepo = a.runs
		if cfg.Simulation.Snapshots {
			recorder = persistence.NewGormSnapshotRepository(db)
		}
		if cfg.Logging.Persist {
			opts = append(opts, commands.WithRunLogger(a.logs.ForRun))
		}
	}

	a.mediator = common.NewMediator()
	a.mediator.Use(common.LoggingMiddleware)
	if cfg.Metrics.Enabled {
		if err := initMetrics(a.mediator); err != nil {
			a.Close()
			return nil, err
		}
	}

	if err := common.RegisterHandler[*commands.RunScenarioCommand](a.mediator,
		commands.NewRunScenarioHandler(runRepo, recorder, a.clock, opts...)); err != nil {
		a.Close()
		return nil, err
	}
	if a.runs != nil {
		snapshots := persistence.NewGormSnapshotRepository(a.db)
		if err := common.RegisterHandler[*queries.GetRunHistoryQuery](a.mediator,
			queries.NewGetRunHistoryHandler(a.runs, snapshots)); err != nil {
			a.Close()
			return nil, err
		}
		if err := common.RegisterHandler[*queries.ListRunsQuery](a.mediator,
			queries.NewListRunsHandler(a.runs)); err != nil {
			a.Close()
			return nil, err
		}
	}

	var sinks []report.Sink
	if cfg.Report.Dir != "" {
		sinks = append(sinks, report.NewFileSink(cfg.Report.Dir))
	}
	if cfg.Report.S3Bucket != "" {
		s3Sink, err := report.NewS3Sink(ctx, report.S3Config{
			Region: cfg.Report.Region,
			Bucket: cfg.Report.S3Bucket,
			Prefix: cfg.Report.S3Prefix,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		sinks = append(sinks, s3Sink)
	}
	a.publisher = report.NewPublisher(sinks...)

	return a, nil
}

// initMetrics is only called once per process
func initMetrics(m common.Mediator) error {
	metrics.InitRegistry()

	facilities := metrics.NewFacilityMetricsCollector()
	if err := facilities.Register(); err != nil {
		return fmt.Errorf("failed to register facility metrics: %w", err)
	}
	metrics.SetGlobalFacilityCollector(facilities)

	cmds := metrics.NewCommandMetricsCollector()
	if err := cmds.Register(); err != nil {
		return fmt.Errorf("failed to register command metrics: %w", err)
	}
	m.Use(metrics.PrometheusMiddleware(cmds))
	return nil
}

// logger returns a stdout/file logger scoped to one scenario
func (a *app) logger(scope string) common.FacilityLogger {
	return logging.NewStdLogger(a.logOut, scope, a.cfg.Logging.Level, a.cfg.Logging.Format, a.clock)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}
