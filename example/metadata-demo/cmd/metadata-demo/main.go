// Command metadata-demo starts the repository against the configured MongoDB,
// records one job run (instance, execution, step, contexts) and prints what it
// finds back. It is a wiring demonstration, not part of the library.
package main

import (
	"context"
	"os"

	_ "embed"

	"go.uber.org/fx"

	storemongo "github.com/tigerroll/moray/pkg/batch/adapter/docstore/mongo"
	config "github.com/tigerroll/moray/pkg/batch/core/config"
	model "github.com/tigerroll/moray/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/moray/pkg/batch/core/domain/repository"
	inframetrics "github.com/tigerroll/moray/pkg/batch/infrastructure/metrics"
	repomongo "github.com/tigerroll/moray/pkg/batch/infrastructure/repository/mongo"
	"github.com/tigerroll/moray/pkg/batch/support/util/logger"
)

//go:embed resources/application.yaml
var embeddedConfig []byte

func runDemo(lc fx.Lifecycle, shutdowner fx.Shutdowner, repo repository.JobRepository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()
				if err := recordDemoRun(context.Background(), repo); err != nil {
					logger.Errorf("Demo run failed: %v", err)
				}
			}()
			return nil
		},
	})
}

func recordDemoRun(ctx context.Context, repo repository.JobRepository) error {
	params := model.NewJobParameters().
		PutString("source", "s3://bucket/in").
		PutLong("run.id", 1)

	instance, err := repo.FindJobInstanceByJobNameAndParameters(ctx, "demoJob", params)
	if err != nil {
		instance, err = repo.CreateJobInstance(ctx, "demoJob", params)
		if err != nil {
			return err
		}
		logger.Infof("Created JobInstance (ID: %d, key: %s).", instance.ID, instance.JobKey)
	} else {
		logger.Infof("Reusing JobInstance (ID: %d).", instance.ID)
	}

	execution := model.NewJobExecution(instance)
	if err := repo.SaveJobExecution(ctx, execution); err != nil {
		return err
	}
	execution.MarkAsStarted()
	if err := repo.UpdateJobExecution(ctx, execution); err != nil {
		return err
	}

	step := execution.CreateStepExecution("demoStep")
	if err := repo.SaveStepExecution(ctx, step); err != nil {
		return err
	}
	step.ReadCount = 3
	step.WriteCount = 3
	step.MarkAsCompleted()
	if err := repo.UpdateStepExecution(ctx, step); err != nil {
		return err
	}
	step.ExecutionContext.Put("reader.offset", int64(3))

	execution.MarkAsCompleted()
	if err := repo.UpdateJobExecution(ctx, execution); err != nil {
		return err
	}
	if err := repo.SaveExecutionContexts(ctx, []*model.StepExecution{step}); err != nil {
		return err
	}

	last, err := repo.FindLastJobExecution(ctx, instance)
	if err != nil {
		return err
	}
	if err := repo.AddStepExecutions(ctx, last); err != nil {
		return err
	}
	logger.Infof("Last execution of '%s': ID %d, status %s, %d step(s).",
		instance.JobName, last.ID, last.Status, len(last.StepExecutions))

	names, err := repo.GetJobNames(ctx)
	if err != nil {
		return err
	}
	logger.Infof("Known jobs: %v", names)
	return nil
}

func main() {
	envFilePath := os.Getenv("ENV_FILE_PATH")

	app := fx.New(
		fx.Supply(
			config.EmbeddedConfig(embeddedConfig),
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		),
		logger.Module,
		config.Module,
		inframetrics.Module,
		storemongo.Module,
		repomongo.Module,
		fx.Invoke(runDemo),
	)
	app.Run()
	if app.Err() != nil {
		logger.Fatalf("Application run failed: %v", app.Err())
	}
}
