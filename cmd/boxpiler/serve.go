package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/funvibe/boxpiler/internal/service"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Transpiler gRPC service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Service.Addr
			}
			c, err := a.openCache()
			if err != nil {
				return err
			}
			defer closeCache(c)

			srv, err := service.NewServer(a.settings(c, ""), a.logger)
			if err != nil {
				return err
			}
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				a.logger.Info("shutting down")
				srv.Stop()
			}()
			return srv.Serve(lis)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to service.addr)")
	return cmd
}
