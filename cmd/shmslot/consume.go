package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bft-labs/shmslot/internal/adapters/recording"
	"github.com/bft-labs/shmslot/internal/adapters/sink"
	"github.com/bft-labs/shmslot/internal/app"
	"github.com/bft-labs/shmslot/internal/ports"
	"github.com/bft-labs/shmslot/pkg/shmslot"
)

type consumeFlags struct {
	sinks  []string
	out    string
	record string
}

func newConsumeCommand(c *cli) *cobra.Command {
	var f consumeFlags

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Read frames from the slot until the producer finishes",
		Long: strings.TrimSpace(`
Poll the slot and hand every new frame to the configured sinks. The command
ends when the producer finished and the final frame was read; the segment is
then removed. Interrupting it keeps the segment for the next run.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsume(c, f)
		},
	}

	cmd.Flags().StringSliceVar(&f.sinks, "sink", []string{"log"}, "frame sinks: log, jsonl, msgpack, mqtt (repeatable)")
	cmd.Flags().StringVar(&f.out, "out", "frames.jsonl", "output file of the jsonl sink")
	cmd.Flags().StringVar(&f.record, "record", "frames.msgpack", "output file of the msgpack sink")
	cmd.Flags().StringVar(&c.cfg.MQTTBroker, "mqtt-broker", c.cfg.MQTTBroker, "MQTT broker URL, e.g. tcp://localhost:1883")
	cmd.Flags().StringVar(&c.cfg.MQTTClientID, "mqtt-client-id", c.cfg.MQTTClientID, "MQTT client id")
	cmd.Flags().StringVar(&c.cfg.MQTTTopic, "mqtt-topic", c.cfg.MQTTTopic, "MQTT topic prefix")
	cmd.Flags().IntVar(&c.cfg.MQTTQoS, "mqtt-qos", c.cfg.MQTTQoS, "MQTT quality of service (0-2)")
	return cmd
}

func runConsume(c *cli, f consumeFlags) (err error) {
	sinks, err := openSinks(c, f)
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range sinks {
			err = errors.Join(err, s.Close())
		}
	}()

	ctx, cancel := c.runContext()
	defer cancel()

	consumer, err := shmslot.OpenConsumer(ctx, c.cfg.Channel(), shmslot.WithLogger(c.logger))
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, consumer.Close()) }()

	n, derr := app.Drain(ctx, consumer, sinks, c.logger)
	st := consumer.Stats()
	c.zl.Info().
		Int("frames", n).
		Uint64("dropped", st.Dropped).
		Uint64("torn_retries", st.TornRetries).
		Bool("drained", consumer.Closed()).
		Msg("consume complete")
	if derr != nil && ctx.Err() == nil {
		return derr
	}
	return nil
}

func openSinks(c *cli, f consumeFlags) ([]ports.Sink, error) {
	var sinks []ports.Sink
	fail := func(err error) ([]ports.Sink, error) {
		for _, s := range sinks {
			_ = s.Close()
		}
		return nil, err
	}

	for _, name := range f.sinks {
		switch name {
		case "log":
			sinks = append(sinks, sink.NewLog(c.logger))
		case "jsonl":
			s, err := sink.CreateJSONLines(f.out)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
		case "msgpack":
			s, err := recording.Create(f.record)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
		case "mqtt":
			if c.cfg.MQTTBroker == "" {
				return fail(fmt.Errorf("mqtt sink needs --mqtt-broker"))
			}
			s, err := sink.DialMQTT(c.cfg.MQTT(), c.logger)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
		default:
			return fail(fmt.Errorf("unknown sink %q", name))
		}
	}
	return sinks, nil
}
