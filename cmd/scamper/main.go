// Package main 提供 scamper 命令行入口
//
//	scamper serve --listen 0.0.0.0:8007,10.0.0.5:8007
//	scamper query --to 127.0.0.1:8007 --count 3
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
