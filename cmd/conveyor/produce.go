package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xraph/conveyor/message"
	"github.com/xraph/conveyor/producer"
)

// ProduceCommands publish messages.
type ProduceCommands struct {
	Produce ProduceCommand `cmd:"" name:"produce" help:"Publish a message to a topic." group:"MESSAGE"`
}

// ProduceCommand publishes one JSON payload.
type ProduceCommand struct {
	Topic          string `arg:"" name:"topic" help:"Topic name"`
	Data           string `name:"data" required:"" help:"JSON payload"`
	IdempotencyKey string `name:"idempotency-key" help:"Idempotency key carried on the envelope"`
	Once           bool   `name:"once" help:"Send in a single attempt"`
}

func (cmd *ProduceCommand) Run(g *Globals) error {
	topic, err := message.ParseTopic(cmd.Topic)
	if err != nil {
		return err
	}
	if !json.Valid([]byte(cmd.Data)) {
		return errors.New("--data is not valid JSON")
	}

	eng, closer, err := g.Engine()
	if err != nil {
		return err
	}
	defer closer() //nolint:errcheck // best effort on exit

	var opts []producer.ProduceOption
	if cmd.IdempotencyKey != "" {
		opts = append(opts, producer.WithIdempotencyKey(cmd.IdempotencyKey))
	}

	p := eng.Producer(g.User)
	data := json.RawMessage(cmd.Data)
	var res producer.Result
	if cmd.Once {
		res = p.ProduceOnce(g.ctx, topic, data, opts...)
	} else {
		res = p.Produce(g.ctx, topic, data, opts...)
	}
	if !res.Success {
		return res.Err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Println(string(data))
	return err
}
