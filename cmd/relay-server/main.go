package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/lk2023060901/relay-garden-go/application"
	"github.com/lk2023060901/relay-garden-go/pkg/log"
)

func main() {
	app := application.New()

	// 第一个位置参数（可选）覆盖历史存储路径。
	if path := positionalArg(os.Args[1:]); path != "" {
		app.SetHistoryPath(path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("relay server exited", zap.Error(err))
		os.Exit(1)
	}
}

// positionalArg 返回第一个非 flag 参数，跳过 --config 及其值。
func positionalArg(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			i++
			continue
		}
		if strings.HasPrefix(arg, "--") {
			continue
		}
		return arg
	}
	return ""
}
