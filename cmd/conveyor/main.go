// Command conveyor produces messages, inspects and replays the dead
// letter queue, and serves the admin API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conveyor"
	"github.com/xraph/conveyor/broker"
	"github.com/xraph/conveyor/broker/memory"
	redisbroker "github.com/xraph/conveyor/broker/redis"
	"github.com/xraph/conveyor/broker/rest"
	"github.com/xraph/conveyor/engine"
	"github.com/xraph/conveyor/featureflag"
)

// version is set at build time with -ldflags "-X main.version=…".
var version = "dev"

// ── CLI ─────────────────────────────────────────────

// Globals are shared by every command.
type Globals struct {
	Debug   bool             `name:"debug" help:"Enable debug logging"`
	Version kong.VersionFlag `name:"version" help:"Print version and exit"`
	User    string           `name:"user" env:"CONVEYOR_USER" help:"User id passed to the feature flag"`
	Flags   string           `name:"flags" env:"CONVEYOR_FLAGS" enum:"on,off,env" default:"on" help:"Feature flag source (on, off, env)"`

	Broker struct {
		Kind     string        `name:"kind" env:"CONVEYOR_BROKER" enum:"rest,redis,memory" default:"rest" help:"Broker backend (rest, redis, memory)"`
		URL      string        `name:"url" env:"CONVEYOR_BROKER_URL" help:"REST broker endpoint"`
		Username string        `name:"username" env:"CONVEYOR_BROKER_USERNAME" help:"REST broker username"`
		Password string        `name:"password" env:"CONVEYOR_BROKER_PASSWORD" help:"REST broker password"`
		Timeout  time.Duration `name:"timeout" env:"CONVEYOR_BROKER_TIMEOUT" default:"10s" help:"REST broker request timeout"`
	} `embed:"" prefix:"broker."`

	Redis struct {
		Addr     string `name:"addr" env:"CONVEYOR_REDIS_ADDR" default:"localhost:6379" help:"Redis address"`
		Password string `name:"password" env:"CONVEYOR_REDIS_PASSWORD" help:"Redis password"`
		DB       int    `name:"db" env:"CONVEYOR_REDIS_DB" help:"Redis database"`
	} `embed:"" prefix:"redis."`

	Queue struct {
		Group        string          `name:"group" env:"CONVEYOR_GROUP" default:"conveyor" help:"Consumer group"`
		Instance     string          `name:"instance" env:"CONVEYOR_INSTANCE" default:"instance-1" help:"Consumer instance"`
		OffsetReset  string          `name:"offset-reset" env:"CONVEYOR_OFFSET_RESET" enum:"earliest,latest" default:"earliest" help:"Offset for a new group"`
		BatchSize    int             `name:"batch-size" env:"CONVEYOR_BATCH_SIZE" default:"10" help:"Envelopes per fetch"`
		MaxRetries   int             `name:"max-retries" env:"CONVEYOR_MAX_RETRIES" default:"5" help:"Producer attempts and consumer retry ceiling"`
		RetryDelays  []time.Duration `name:"retry-delays" env:"CONVEYOR_RETRY_DELAYS" default:"1s,2s,4s,8s" help:"Producer backoff table"`
		PollInterval time.Duration   `name:"poll-interval" env:"CONVEYOR_POLL_INTERVAL" default:"1s" help:"Idle polling sleep"`
		Concurrency  int             `name:"concurrency" env:"CONVEYOR_CONCURRENCY" default:"5" help:"Parallel batch window"`
		FeatureFlag  string          `name:"feature-flag" env:"CONVEYOR_FEATURE_FLAG" default:"conveyor-queue" help:"Feature flag name"`
	} `embed:"" prefix:"queue."`

	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// CLI is the command tree.
type CLI struct {
	Globals
	ProduceCommands
	DLQCommands
	ServerCommands
}

func main() {
	cli := new(CLI)
	kctx := kong.Parse(cli,
		kong.Name("conveyor"),
		kong.Description("conveyor message queue command line interface"),
		kong.Vars{"version": version},
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	cli.Globals.ctx, cli.Globals.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cli.Globals.cancel()

	level := slog.LevelInfo
	if cli.Debug {
		level = slog.LevelDebug
	}
	cli.Globals.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := kctx.Run(&cli.Globals); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// ── Wiring ──────────────────────────────────────────

// Config maps the global flags onto conveyor.Config.
func (g *Globals) Config() conveyor.Config {
	return conveyor.Config{
		BrokerURL:      g.Broker.URL,
		BrokerUsername: g.Broker.Username,
		BrokerPassword: g.Broker.Password,
		Group:          g.Queue.Group,
		Instance:       g.Queue.Instance,
		OffsetReset:    g.Queue.OffsetReset,
		BatchSize:      g.Queue.BatchSize,
		MaxRetries:     g.Queue.MaxRetries,
		RetryDelays:    g.Queue.RetryDelays,
		PollInterval:   g.Queue.PollInterval,
		Concurrency:    g.Queue.Concurrency,
		FeatureFlag:    g.Queue.FeatureFlag,
	}
}

// NewBroker builds the selected backend. The returned closer releases
// any client the broker owns.
func (g *Globals) NewBroker() (broker.Broker, func() error, error) {
	noop := func() error { return nil }

	switch g.Broker.Kind {
	case "memory":
		return memory.New(), noop, nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     g.Redis.Addr,
			Password: g.Redis.Password,
			DB:       g.Redis.DB,
		})
		b := redisbroker.New(client, redisbroker.WithLogger(g.logger))
		if err := b.Ping(g.ctx); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("redis %s: %w", g.Redis.Addr, err)
		}
		return b, client.Close, nil
	default:
		b, err := rest.New(rest.Config{
			URL:      g.Broker.URL,
			Username: g.Broker.Username,
			Password: g.Broker.Password,
			Timeout:  g.Broker.Timeout,
			Trace:    g.Debug,
		})
		if err != nil {
			return nil, noop, err
		}
		return b, noop, nil
	}
}

// FeatureFlags returns the flag source selected by --flags.
func (g *Globals) FeatureFlags() featureflag.Flags {
	switch g.Flags {
	case "off":
		return featureflag.Always(false)
	case "env":
		return featureflag.NewEnv("CONVEYOR_FLAG_")
	default:
		return featureflag.Always(true)
	}
}

// Engine builds the gated engine over the selected broker.
func (g *Globals) Engine(opts ...engine.Option) (*engine.Engine, func() error, error) {
	b, closer, err := g.NewBroker()
	if err != nil {
		return nil, closer, err
	}
	opts = append([]engine.Option{engine.WithLogger(g.logger)}, opts...)
	eng := engine.New(g.Config(), b, g.FeatureFlags(), opts...)
	return eng, closer, nil
}
