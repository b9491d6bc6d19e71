package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Dhanuzh/dchat/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST backend",
		Long:  "Serve chat settings, conversations and file data over HTTP, plus chat and speech endpoints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			store, err := openStore(ctx, a)
			if err != nil {
				return err
			}
			defer store.Close()
			log.WithField("driver", a.cfg.Storage.Driver).Info("storage ready")

			srv := server.New(server.Options{
				Config:   a.cfg,
				Store:    store,
				Registry: a.registry,
				Logger:   log.StandardLogger(),
			})

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				log.Info("shutting down server")
				if err := srv.Stop(ctx); err != nil {
					log.WithError(err).Error("shutdown failed")
				}
			}()

			return srv.Start()
		},
	}
	cmd.Flags().IntP("port", "P", 3001, "Port to listen on")
	return cmd
}
