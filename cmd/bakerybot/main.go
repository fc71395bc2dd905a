package main

import (
	"context"
	"log"

	_ "time/tzdata"

	"github.com/m3rciful/bakerybot/core/cmd"
	"github.com/m3rciful/bakerybot/internal/app"
	"github.com/m3rciful/bakerybot/internal/config"
)

func main() {
	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(ctx context.Context, cfg cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			return app.New(ctx, cfg.(*config.Config))
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
