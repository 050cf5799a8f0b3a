package shmslot_test

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bft-labs/shmslot/pkg/record"
	"github.com/bft-labs/shmslot/pkg/segment"
	"github.com/bft-labs/shmslot/pkg/shmslot"
)

func Example() {
	cfg := shmslot.DefaultConfig()
	cfg.Backend = segment.BackendMemory
	cfg.Seed = "example"
	ctx := context.Background()

	producer, err := shmslot.OpenProducer(cfg)
	if err != nil {
		panic(err)
	}
	defer producer.Close()

	consumer, err := shmslot.OpenConsumer(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer consumer.Close()

	f, _ := record.NewFrameDetections(1, cfg.MaxDetections,
		record.DetectionRecord{X: 10, Y: 20, Width: 30, Height: 40, Confidence: 0.9},
	)
	_ = producer.Publish(f)
	_ = producer.Finish()

	for {
		got, err := consumer.Next(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Println("drained")
			break
		}
		if err != nil {
			panic(err)
		}
		fmt.Println(got)
	}
	// Output:
	// frame 1 (1/50 detections)
	// drained
}
