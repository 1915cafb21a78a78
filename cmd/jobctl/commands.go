package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/trade-insights/internal/app"
	"github.com/cuongbtq/trade-insights/internal/config"
	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/model"
	"github.com/cuongbtq/trade-insights/internal/storage"
	"github.com/cuongbtq/trade-insights/shared/logger"
	"github.com/cuongbtq/trade-insights/shared/postgresql"
	"github.com/cuongbtq/trade-insights/shared/rabbitmq"
)

// env is what every database-backed command needs
type env struct {
	cfg    *config.Config
	logger *logger.Logger
	db     *postgresql.Client
	store  *storage.Storage
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
	}
	e.logger.Close()
}

func openEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := postgresql.NewClient(&postgresql.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}, log.Component("postgresql"))
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &env{
		cfg:    cfg,
		logger: log,
		db:     db,
		store:  storage.NewStorage(db, log.Component("storage")),
	}, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			res, err := storage.Migrate(ctx, e.db.GetDB(), e.logger.Component("migrate"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied: %d executed, %d already present\n", res.Executed, res.Skipped)
			return nil
		},
	}
}

func newJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List job definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			defs, err := e.store.ListDefinitions(ctx)
			if err != nil {
				return err
			}
			return printDefinitions(cmd.OutOrStdout(), defs)
		},
	}
}

func newRunsCmd() *cobra.Command {
	var (
		jobID  string
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 || limit > 100 {
				return fmt.Errorf("--limit must be between 1 and 100")
			}
			if status != "" && !domain.IsValidRunStatus(status) {
				return fmt.Errorf("unknown run status %q", status)
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			runs, err := e.store.ListRuns(ctx, storage.RunFilter{JobID: jobID, Status: status, PageSize: limit})
			if err != nil {
				return err
			}
			if len(runs) > limit {
				runs = runs[:limit]
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().StringVar(&jobID, "job", "", "Only show runs of this job")
	cmd.Flags().StringVar(&status, "status", "", "Only show runs with this status")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}

func newTriggerCmd() *cobra.Command {
	var (
		params []string
		local  bool
	)
	cmd := &cobra.Command{
		Use:   "trigger <job_id>",
		Short: "Run a job now",
		Long: `Queue a manual run on the trigger exchange, or execute it in this process with --local.
Without RabbitMQ configured the job always runs locally.

Parameter values are parsed as JSON when possible, so -p years=3 is a number
and -p geo_list='["CN","US"]' is a list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := buildTriggerMessage(args[0], params)
			if err != nil {
				return err
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			if e.cfg.RabbitMQ.Enabled && !local {
				return publishTrigger(ctx, e, msg, cmd.OutOrStdout())
			}
			return runLocal(ctx, e, msg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Parameter override as key=value (repeatable)")
	cmd.Flags().BoolVar(&local, "local", false, "Run in this process instead of queueing")
	return cmd
}

func publishTrigger(ctx context.Context, e *env, msg domain.TriggerMessage, out io.Writer) error {
	rc := &e.cfg.RabbitMQ
	client, err := rabbitmq.NewClient(&rabbitmq.Config{
		Host:               rc.Host,
		Port:               rc.Port,
		User:               rc.User,
		Password:           rc.Password,
		VHost:              rc.VHost,
		ExchangeName:       rc.Exchange.Name,
		ExchangeType:       rc.Exchange.Type,
		ExchangeDurable:    rc.Exchange.Durable,
		ExchangeAutoDelete: rc.Exchange.AutoDelete,
		RoutingKey:         rc.RoutingKey,
		RetryAttempts:      1,
		ConnectionTimeout:  rc.Connection.ConnectionTimeout,
		PublishRetries:     rc.Publish.RetryAttempts,
		PublishRetryDelay:  rc.Publish.RetryInterval,
		PublishBackoffMult: rc.Publish.BackoffMultiplier,
	}, e.logger.Component("rabbitmq"))
	if err != nil {
		return err
	}
	defer client.Close()

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode trigger: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.PublishWithRetry(publishCtx, rabbitmq.Message{
		RoutingKey:  rc.RoutingKey,
		ContentType: "application/json",
		Type:        triggerMessageType,
		Body:        body,
	}); err != nil {
		return err
	}

	fmt.Fprintf(out, "queued %s on %s (%s)\n", msg.JobID, rc.Exchange.Name, rc.RoutingKey)
	return nil
}

func runLocal(ctx context.Context, e *env, msg domain.TriggerMessage, out io.Writer) error {
	pipeline, err := app.Build(ctx, e.cfg, e.store, e.logger.Logger)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	e.logger.Info("Running job locally",
		slog.String("job_id", msg.JobID),
		slog.Int("params", len(msg.Params)),
	)
	result, err := pipeline.Runner.RunNow(ctx, msg.JobID, msg.Params, msg.TriggeredBy)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.OK {
		return fmt.Errorf("job %s finished with status %s", msg.JobID, result.Status)
	}
	return nil
}

func printDefinitions(out io.Writer, defs []model.JobDefinition) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tCRON\tTIMEZONE\tENABLED\tLAST SUCCESS")
	for _, d := range defs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", d.JobID, d.CronExpr, d.Timezone, d.Enabled, formatNullTime(d.LastSuccessAt.Time, d.LastSuccessAt.Valid))
	}
	return tw.Flush()
}

func printRuns(out io.Writer, runs []model.JobRun) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tJOB\tSTATUS\tTRIGGER\tSTARTED\tDURATION\tMESSAGE")
	for _, r := range runs {
		duration := "-"
		if r.DurationMs.Valid {
			duration = (time.Duration(r.DurationMs.Int64) * time.Millisecond).String()
		}
		message := r.Message
		if r.Error.Valid && r.Error.String != "" {
			message = r.Error.String
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.JobID, r.Status, r.TriggeredBy, formatNullTime(r.StartedAt, true), duration, truncate(message, 80))
	}
	return tw.Flush()
}

func formatNullTime(t time.Time, valid bool) string {
	if !valid {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
