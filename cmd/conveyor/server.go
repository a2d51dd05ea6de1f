package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/xraph/conveyor/api"
	audithook "github.com/xraph/conveyor/audit_hook"
	"github.com/xraph/conveyor/dlq"
	"github.com/xraph/conveyor/engine"
)

// ServerCommands run long-lived processes.
type ServerCommands struct {
	Serve ServeCommand `cmd:"" name:"serve" help:"Serve the admin API and monitor the dead letter queue." group:"SERVER"`
}

// ServeCommand runs the admin API until interrupted.
type ServeCommand struct {
	Addr            string        `name:"addr" env:"CONVEYOR_ADDR" default:":8080" help:"HTTP listen address"`
	RequestTimeout  time.Duration `name:"request-timeout" default:"30s" help:"Per-request timeout"`
	MonitorSchedule string        `name:"monitor-schedule" env:"CONVEYOR_MONITOR_SCHEDULE" default:"@every 1m" help:"Cron schedule for DLQ alert checks; empty disables the monitor"`
	MaxMessages     int           `name:"max-messages" env:"CONVEYOR_DLQ_MAX_MESSAGES" default:"100" help:"Alert when more dead letters than this are present"`
	MaxAge          time.Duration `name:"max-age" env:"CONVEYOR_DLQ_MAX_AGE" default:"1h" help:"Alert when the oldest dead letter is older than this"`
	Audit           bool          `name:"audit" env:"CONVEYOR_AUDIT" help:"Write lifecycle audit events to the log"`
}

func (cmd *ServeCommand) Run(g *Globals) error {
	var opts []engine.Option
	if cmd.Audit {
		opts = append(opts, engine.WithExtension(audithook.New(logRecorder(g.logger), audithook.WithLogger(g.logger))))
	}

	eng, closer, err := g.Engine(opts...)
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck // best effort on exit

	if err := eng.Start(g.ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eng.Stop(stopCtx); err != nil {
			g.logger.Error("engine stop", slog.String("error", err.Error()))
		}
	}()

	if strings.TrimSpace(cmd.MonitorSchedule) != "" {
		monitor, err := dlq.NewMonitor(eng.DLQ(g.User), dlq.Thresholds{
			MaxMessages: cmd.MaxMessages,
			MaxAge:      cmd.MaxAge,
		}, func(_ context.Context, a *dlq.Alert) {
			g.logger.Warn("dlq threshold exceeded",
				slog.Any("reasons", a.Reasons),
				slog.Int("total", a.Stats.TotalMessages),
			)
		}, dlq.WithSchedule(cmd.MonitorSchedule), dlq.WithMonitorLogger(g.logger))
		if err != nil {
			return err
		}
		if err := monitor.Start(g.ctx); err != nil {
			return err
		}
		defer monitor.Stop(context.Background()) //nolint:errcheck // Stop never fails
	}

	srv := &http.Server{
		Addr:              cmd.Addr,
		Handler:           api.New(eng, api.WithTimeout(cmd.RequestTimeout), api.WithLogger(g.logger)).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("admin api listening", slog.String("addr", cmd.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-g.ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	g.logger.Info("shutting down admin api")
	return srv.Shutdown(shutdownCtx)
}

// logRecorder writes audit events to the structured log.
func logRecorder(logger *slog.Logger) audithook.Recorder {
	return audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
		level := slog.LevelInfo
		switch evt.Severity {
		case audithook.SeverityWarning:
			level = slog.LevelWarn
		case audithook.SeverityCritical:
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "audit",
			slog.String("action", evt.Action),
			slog.String("resource_id", evt.ResourceID),
			slog.String("outcome", evt.Outcome),
			slog.String("reason", evt.Reason),
			slog.Any("metadata", evt.Metadata),
		)
		return nil
	})
}
