package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/dep2p/go-scamper"
	"github.com/dep2p/go-scamper/pkg/types"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "应答日期查询",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "监听地址，逗号分隔的次地址用于多宿主（覆盖配置文件）",
			},
			&cli.StringFlag{
				Name:  "metrics-listen",
				Usage: "/metrics HTTP 监听地址（覆盖配置文件）",
			},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if v := c.String("listen"); v != "" {
		addr, err := types.ParseMultiHomed(v)
		if err != nil {
			return err
		}
		cfg.Engine.Listen = addr
	}
	if v := c.String("metrics-listen"); v != "" {
		cfg.Metrics.Listen = v
	}

	b := scamper.NewBuilder(scamper.WithConfig(cfg))
	scamper.Handle(b, dateQueryType, answerDate)
	node, err := b.Build()
	if err != nil {
		return err
	}
	defer node.Close()

	server, err := node.Listen(c.Context)
	if err != nil {
		return err
	}
	for _, a := range server.Addrs() {
		logger.Info("serving date queries", "addr", a.String(), "transport", cfg.Transport.Kind)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen != "" && node.Gatherer() != nil {
		stop := serveMetrics(cfg.Metrics.Listen, node)
		defer stop()
	}

	<-c.Context.Done()
	logger.Info("shutting down")
	logBandwidth(node)
	return nil
}

// logBandwidth 退出时按消息类型输出带宽统计
func logBandwidth(node *scamper.Node) {
	for _, s := range node.BandwidthByType() {
		logger.Info("bandwidth",
			"type", s.Type.String(),
			"messages_in", s.MessagesIn,
			"messages_out", s.MessagesOut,
			"bytes_in", s.BytesIn,
			"bytes_out", s.BytesOut)
	}
}

// serveMetrics 暴露 /metrics，返回停止函数
func serveMetrics(addr string, node *scamper.Node) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(node.Gatherer(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
