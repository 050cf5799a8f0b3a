package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/shmslot/internal/adapters/recording"
	"github.com/bft-labs/shmslot/internal/adapters/source"
	"github.com/bft-labs/shmslot/internal/app"
	"github.com/bft-labs/shmslot/internal/ports"
	"github.com/bft-labs/shmslot/pkg/log"
	"github.com/bft-labs/shmslot/pkg/shmslot"
)

type produceFlags struct {
	source   string
	format   string
	follow   bool
	interval time.Duration
	noFinish bool
}

func newProduceCommand(c *cli) *cobra.Command {
	var f produceFlags

	cmd := &cobra.Command{
		Use:   "produce",
		Short: "Publish frames from a detection source into the slot",
		Long: strings.TrimSpace(`
Publish frames read from a YAML script, a JSON-lines file or a msgpack
recording. The stream is finished when the source ends unless --no-finish is
given. With --follow a JSON-lines file is tailed until a {"done":true} line.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProduce(c, f)
		},
	}

	cmd.Flags().StringVar(&f.source, "source", "", "detection source file (- for stdin JSON lines)")
	cmd.Flags().StringVar(&f.format, "format", "", "source format: yaml, jsonl or msgpack (default: from extension)")
	cmd.Flags().BoolVar(&f.follow, "follow", false, "tail a JSON-lines source for appended frames")
	cmd.Flags().DurationVar(&f.interval, "interval", 0, "pause between frames (0 publishes as fast as possible)")
	cmd.Flags().BoolVar(&f.noFinish, "no-finish", false, "leave the stream open when the source ends")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func runProduce(c *cli, f produceFlags) error {
	src, err := openSource(f, c.logger)
	if err != nil {
		return err
	}
	defer src.Close()

	lib := c.cfg.Channel()
	p, err := shmslot.OpenProducer(lib, shmslot.WithLogger(c.logger))
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := c.runContext()
	defer cancel()

	res, err := app.Produce(ctx, app.ProduceConfig{
		Capacity: lib.MaxDetections,
		Interval: f.interval,
		Finish:   !f.noFinish,
	}, src, p, c.logger)

	c.zl.Info().
		Int("published", res.Published).
		Int("truncated", res.Truncated).
		Int32("last_frame", res.LastFrame).
		Bool("finished", res.Finished).
		Msg("produce complete")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func openSource(f produceFlags, logger log.Logger) (ports.Source, error) {
	format := f.format
	if format == "" {
		format = formatFromPath(f.source)
	}
	if f.follow && format != "jsonl" {
		return nil, fmt.Errorf("--follow needs a JSON-lines source, got %s", format)
	}

	switch format {
	case "yaml":
		return source.OpenYAML(f.source)
	case "jsonl":
		if f.source == "-" {
			return source.NewJSONLines(os.Stdin), nil
		}
		return source.OpenJSONLines(f.source, f.follow, logger)
	case "msgpack":
		return recording.Open(f.source)
	default:
		return nil, fmt.Errorf("unknown source format %q (want yaml, jsonl or msgpack)", format)
	}
}

func formatFromPath(p string) string {
	if p == "-" {
		return "jsonl"
	}
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".jsonl", ".ndjson", ".json":
		return "jsonl"
	case ".msgpack", ".mp", ".rec":
		return "msgpack"
	}
	return ""
}
