package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/shmslot/internal/cliconfig"
	"github.com/bft-labs/shmslot/pkg/log"
)

const helpDescription = `
Exchange per-frame object detections between two processes through a single
shared-memory slot.

The producer overwrites the slot with every frame; the consumer polls it and
reads the newest frame exactly once. Frames the consumer was too slow for are
counted as dropped. Both sides must agree on the key (seed and salt) and on
the max detections per frame.
`

var exampleUsage = strings.TrimSpace(`
  shmslot produce --source detections.jsonl --follow
  shmslot consume --sink log --sink jsonl --out frames.jsonl
  shmslot inspect --json
  shmslot monitor --backend file
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries state shared by every subcommand.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string

	zl     zerolog.Logger
	logger log.Logger
}

// load applies file and environment configuration below the flags that were
// set, validates the result and builds the logger.
func (c *cli) load(cmd *cobra.Command) error {
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	zl, err := cliconfig.Logger(c.cfg.LogFormat, c.cfg.LogLevel)
	if err != nil {
		return err
	}
	c.zl = zl
	c.logger = log.NewZerologAdapterWithLogger(zl)
	c.zl.Debug().Interface("config", c.cfg).Msg("configuration")
	return nil
}

// runContext is canceled on SIGINT, SIGTERM or after the configured timeout.
func (c *cli) runContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	if c.cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, c.cfg.Timeout)
		prev := cancel
		cancel = func() { cancelTimeout(); prev() }
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			c.zl.Info().Str("signal", sig.String()).Msg("received signal, stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func newRootCommand() *cobra.Command {
	c := &cli{cfg: cliconfig.DefaultConfig()}

	root := &cobra.Command{
		Use:           "shmslot",
		Short:         "Shared-memory detection exchange between a producer and a consumer",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.shmslot/config.toml)")
	pf.StringVar(&c.cfg.Backend, "backend", c.cfg.Backend, "segment backend: sysv, file or memory")
	pf.StringVar(&c.cfg.Seed, "seed", c.cfg.Seed, "key derivation seed")
	pf.Uint32Var(&c.cfg.Salt, "salt", c.cfg.Salt, "key derivation salt; change it to start on a fresh segment")
	pf.StringVar(&c.cfg.Dir, "dir", c.cfg.Dir, "segment directory for the file backend (default /dev/shm)")
	pf.IntVar(&c.cfg.MaxDetections, "max-detections", c.cfg.MaxDetections, "detections per frame; both sides must match")
	pf.DurationVar(&c.cfg.PollInterval, "poll", c.cfg.PollInterval, "consumer poll interval")
	pf.IntVar(&c.cfg.MaxTornRetries, "max-torn-retries", c.cfg.MaxTornRetries, "copy retries per poll while the producer writes")
	pf.DurationVar(&c.cfg.OpenTimeout, "open-timeout", c.cfg.OpenTimeout, "wait this long for the producer to create the segment (0 creates it)")
	pf.DurationVar(&c.cfg.Timeout, "timeout", c.cfg.Timeout, "stop after this long (0 runs until done)")
	pf.StringVar(&c.cfg.StateDir, "state-dir", c.cfg.StateDir, "directory for the consumer's status.json drain report")
	pf.StringVar(&c.cfg.LogFormat, "log-format", c.cfg.LogFormat, "log format: auto, console or json")
	pf.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level: debug, info, warn or error")

	root.AddCommand(
		newProduceCommand(c),
		newConsumeCommand(c),
		newInspectCommand(c),
		newResetCommand(c),
		newMonitorCommand(c),
		newKeyCommand(c),
	)
	return root
}

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "shmslot:", err)
		os.Exit(1)
	}
}
