package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	telegram "boxity-analyzer/internal/api"
	"boxity-analyzer/internal/container"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Telegram.Token == "" {
			return eris.New("TELEGRAM_TOKEN is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := container.New(ctx, cfg, zap.L())
		if err != nil {
			return err
		}
		defer c.Close()

		bot, err := telegram.NewBot(cfg.Telegram.Token, c.InspectionService, zap.L().Named("telegram"))
		if err != nil {
			return eris.Wrap(err, "create bot")
		}

		zap.L().Info("bot is running")
		return bot.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}
