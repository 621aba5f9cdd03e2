package app

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	config "github.com/tigerroll/chunkbatch/pkg/batch/core/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// ApplicationParams are the dependencies of NewApplication.
type ApplicationParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	AppCtx    context.Context `name:"appCtx"`
}

// NewApplication builds the Application and closes it when fx stops.
func NewApplication(p ApplicationParams) (*Application, error) {
	a, err := BuildJobEngine(p.AppCtx, p.Cfg)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Infof("Closing job engine and connections...")
			return a.Close(ctx)
		},
	})
	return a, nil
}

// registerMetricsServer serves /metrics for the lifetime of the app when the
// Prometheus recorder is enabled.
func registerMetricsServer(lc fx.Lifecycle, a *Application, cfg *config.Config) {
	srv := a.Telemetry.MetricsServer(cfg.Surfin.Metrics.Prometheus.Addr)
	if srv == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Infof("Serving metrics on %s/metrics", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Errorf("Metrics server stopped: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// jobDone carries the exit code of the job run back to RunApplication.
type jobDone chan int

// JobParams are the dependencies of startJobExecution.
type JobParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Done      jobDone
	App       *Application
	Cfg       *config.Config
	AppCtx    context.Context `name:"appCtx"`
	JobName   string          `name:"jobName" optional:"true"`
}

// startJobExecution runs the job once the app has started and reports exit
// code 1 unless the job completed.
func startJobExecution(p JobParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := 0
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in job execution: %v", r)
						code = 1
					}
					logger.Infof("Requesting application shutdown after job completion.")
					p.Done <- code
				}()
				if _, err := p.App.Run(p.AppCtx, p.Cfg, p.JobName); err != nil {
					logger.Errorf("Job execution failed: %v", err)
					code = 1
				}
			}()
			return nil
		},
	})
}

// Module provides the Application and runs the selected job.
var Module = fx.Options(
	fx.Provide(NewApplication),
	fx.Invoke(registerMetricsServer),
	fx.Invoke(startJobExecution),
)

// RunApplication loads the configuration, runs jobName (batch.jobName when
// empty) and returns the process exit code. Cancelling appCtx stops the
// running job; the app is stopped once the job has returned.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, jobName string) int {
	done := make(jobDone, 1)
	app := fx.New(
		fx.WithLogger(func() fxevent.Logger { return logger.NewFxEventLogger() }),
		fx.Supply(
			embeddedConfig,
			done,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(jobName, fx.ResultTags(`name:"jobName"`)),
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
		),
		config.Module,
		Module,
	)
	if err := app.Err(); err != nil {
		logger.Errorf("Application setup failed: %v", err)
		return 1
	}

	startCtx, cancelStart := context.WithTimeout(appCtx, app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		logger.Errorf("Application start failed: %v", err)
		return 1
	}
	code := <-done

	stopCtx, cancelStop := context.WithTimeout(context.WithoutCancel(appCtx), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Application stop failed: %v", err)
		return 1
	}
	return code
}
