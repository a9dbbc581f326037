package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dep2p/go-scamper"
	"github.com/dep2p/go-scamper/pkg/protocol"
	"github.com/dep2p/go-scamper/pkg/types"
)

func queryCmd() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "向服务端查询日期",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "to",
				Usage:    "服务端地址，逗号分隔的次地址按顺序回退",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "count",
				Usage: "查询次数",
				Value: 1,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "每次查询等待应答的时间",
				Value: 5 * time.Second,
			},
		},
		Action: query,
	}
}

func query(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	to, err := types.ParseMultiHomed(c.String("to"))
	if err != nil {
		return err
	}

	answers := make(chan dateAnswer, 1)
	b := scamper.NewBuilder(scamper.WithConfig(cfg), scamper.WithoutMetrics())
	scamper.Handle(b, dateAnswerType, func(ctx context.Context, req *protocol.Request, msg protocol.Message[dateAnswer]) (protocol.Envelope, error) {
		answers <- msg.Body()
		return nil, nil
	})
	node, err := b.Build()
	if err != nil {
		return err
	}
	defer node.Close()

	if err := node.Start(c.Context); err != nil {
		return err
	}

	for i := 0; i < c.Int("count"); i++ {
		ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
		start := time.Now()

		receipt, err := node.SendTo(ctx, to, protocol.NewVoidMessage(dateQueryType)).Wait(ctx)
		if err != nil {
			cancel()
			return fmt.Errorf("query %d: %w", i+1, err)
		}

		select {
		case a := <-answers:
			fmt.Fprintf(c.App.Writer, "%s %s (stream %d, rtt %s)\n",
				a.Time().Format(time.RFC3339Nano), a.Zone, receipt.Stream, time.Since(start).Round(time.Microsecond))
		case <-ctx.Done():
			cancel()
			return fmt.Errorf("query %d: no answer: %w", i+1, ctx.Err())
		}
		cancel()
	}
	return nil
}
