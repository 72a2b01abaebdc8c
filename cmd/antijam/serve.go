package main

import (
	"fmt"
	"log"
	"net"

	"github.com/antijam/mimo-controller/internal/envserver"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

// #region serve
func serveCommand() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve environment sessions over gRPC for an external trainer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = cfg.ListenAddr
			}
			ws, err := openWorkspace(cfg, false)
			if err != nil {
				return err
			}
			defer ws.Close()

			// Fail before listening if the dataset and scaler disagree.
			if _, err := ws.environment(cfg); err != nil {
				return err
			}

			srv := envserver.NewServer(envserver.SharedFactory(ws.data, ws.scaler, ws.simulator(cfg), cfg.Env()))
			gs := grpc.NewServer()
			envserver.RegisterEnvironmentServer(gs, srv)

			lis, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen %s: %w", listen, err)
			}

			go func() {
				<-cmd.Context().Done()
				log.Printf("[serve] shutting down, %d sessions open", srv.Sessions())
				gs.GracefulStop()
			}()

			log.Printf("[serve] environment server listening on %s (max_steps=%d)", lis.Addr(), cfg.MaxSteps)
			if err := gs.Serve(lis); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default: configured listen_addr)")
	return cmd
}

// #endregion serve
