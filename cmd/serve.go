package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/char5742/fbtouch/internal/api"
)

func NewServeCommand() *cobra.Command {
	var (
		port int
		open bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the touch injection API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.API.Port = port
			}
			if cmd.Flags().Changed("open") {
				cfg.API.OpenBrowser = open
			}

			log := logrus.StandardLogger()
			service := api.NewTouchService(cfg, log)
			if err := service.Start(); err != nil {
				// デバイスがなくてもAPIは起動し、/api/service/startで再試行できる
				log.WithError(err).Warn("タッチサービスを開始できませんでした")
			}

			server := api.NewServer(cfg, service, log)
			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Start()
			}()

			if cfg.API.OpenBrowser {
				url := fmt.Sprintf("http://localhost:%d/api/status", cfg.API.Port)
				if err := browser.OpenURL(url); err != nil {
					log.WithError(err).Warn("ブラウザを開けませんでした")
				}
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case err = <-errChan:
			case sig := <-sigChan:
				log.WithField("signal", sig).Info("シャットダウンします...")
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err = server.Stop(ctx)
				cancel()
			}

			if service.IsRunning() {
				if stopErr := service.Stop(); stopErr != nil {
					log.WithError(stopErr).Warn("タッチデバイスを閉じられませんでした")
				}
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "APIサーバーのポート番号")
	cmd.Flags().BoolVar(&open, "open", false, "起動後にブラウザで状態ページを開く")

	return cmd
}
