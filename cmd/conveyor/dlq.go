package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/conveyor/dlq"
	"github.com/xraph/conveyor/message"
)

// DLQCommands inspect and replay the dead letter queue.
type DLQCommands struct {
	DLQ struct {
		List   DLQListCommand   `cmd:"" name:"list" help:"List dead letters." default:"withargs"`
		Stats  DLQStatsCommand  `cmd:"" name:"stats" help:"Summarize dead letters."`
		Replay DLQReplayCommand `cmd:"" name:"replay" help:"Replay dead letters to their original topic."`
		Alert  DLQAlertCommand  `cmd:"" name:"alert" help:"Evaluate alert thresholds."`
	} `cmd:"" name:"dlq" help:"Dead letter queue." group:"DLQ"`
}

// DLQListCommand lists dead letters oldest first.
type DLQListCommand struct {
	Limit int    `name:"limit" help:"Maximum number of dead letters" default:"1000"`
	Topic string `name:"topic" help:"Only dead letters from this original topic"`
}

// DLQStatsCommand prints DLQ statistics.
type DLQStatsCommand struct{}

// DLQReplayCommand replays by id, by original topic or by time window.
type DLQReplayCommand struct {
	IDs   []string  `arg:"" optional:"" name:"ids" help:"Envelope ids to replay"`
	Topic string    `name:"topic" help:"Replay every dead letter from this original topic"`
	Since time.Time `name:"since" help:"Replay dead letters that failed at or after this time (RFC3339)"`
	Until time.Time `name:"until" help:"Replay dead letters that failed at or before this time (RFC3339)"`
}

// DLQAlertCommand checks thresholds once and exits non-zero on alert.
type DLQAlertCommand struct {
	MaxMessages int           `name:"max-messages" help:"Alert when more dead letters than this are present"`
	MaxAge      time.Duration `name:"max-age" help:"Alert when the oldest dead letter is older than this"`
}

var errAlert = errors.New("dlq alert thresholds exceeded")

func (cmd *DLQListCommand) Run(g *Globals) error {
	opts := dlq.FetchOptions{Limit: cmd.Limit}
	if cmd.Topic != "" {
		topic, err := message.ParseTopic(cmd.Topic)
		if err != nil {
			return err
		}
		opts.Topic = topic
	}

	eng, closer, err := g.Engine()
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck // best effort on exit

	msgs, err := eng.DLQ(g.User).FetchMessages(g.ctx, opts)
	if err != nil {
		return err
	}
	return printJSON(msgs)
}

func (cmd *DLQStatsCommand) Run(g *Globals) error {
	eng, closer, err := g.Engine()
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck // best effort on exit

	stats, err := eng.DLQ(g.User).Stats(g.ctx)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func (cmd *DLQReplayCommand) Run(g *Globals) error {
	selectors := 0
	if len(cmd.IDs) > 0 {
		selectors++
	}
	if cmd.Topic != "" {
		selectors++
	}
	if !cmd.Since.IsZero() || !cmd.Until.IsZero() {
		selectors++
	}
	if selectors != 1 {
		return errors.New("give exactly one of: ids, --topic, or --since/--until")
	}

	eng, closer, err := g.Engine()
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck // best effort on exit

	ins := eng.DLQ(g.User)
	var res dlq.ReplayResult
	switch {
	case len(cmd.IDs) > 0:
		res, err = ins.ReplayByID(g.ctx, cmd.IDs...)
	case cmd.Topic != "":
		topic, perr := message.ParseTopic(cmd.Topic)
		if perr != nil {
			return perr
		}
		res, err = ins.ReplayByTopic(g.ctx, topic)
	default:
		res, err = ins.ReplayByTimeWindow(g.ctx, cmd.Since, cmd.Until)
	}
	if err != nil {
		return err
	}

	for _, e := range res.Errors {
		g.logger.Warn("replay failed", "error", e)
	}
	fmt.Printf("replayed %d, failed %d\n", res.Replayed, res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("%d dead letters could not be replayed", res.Failed)
	}
	return nil
}

func (cmd *DLQAlertCommand) Run(g *Globals) error {
	eng, closer, err := g.Engine()
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck // best effort on exit

	alert, err := eng.DLQ(g.User).CheckAlertThresholds(g.ctx, dlq.Thresholds{
		MaxMessages: cmd.MaxMessages,
		MaxAge:      cmd.MaxAge,
	})
	if err != nil {
		return err
	}
	if err := printJSON(alert); err != nil {
		return err
	}
	if alert.Alert {
		return errAlert
	}
	return nil
}
