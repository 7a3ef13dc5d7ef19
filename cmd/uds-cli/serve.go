package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/gavinwade12/udsgateway/gateway"
	"github.com/gavinwade12/udsgateway/protocols/uds"
	"github.com/gavinwade12/udsgateway/protocols/uds/ecusim"
)

var simulate bool

func init() {
	serveCmd.Flags().String(listenSettingName, gateway.DefaultListenAddr, "address the gateway listens on")
	serveCmd.Flags().BoolVar(&simulate, "simulate", false, "also run the simulated ECU on the configured port")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
}

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Run the HTTP gateway",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		l := udsLogger(cmd)
		session := createSession(l)
		defer session.Close()

		e := createExplainer()
		defer e.Close()

		srv := gateway.New(gateway.Config{ListenAddr: viper.GetString(listenSettingName)}, uds.NewClient(session, l), e)

		errg, ctx := errgroup.WithContext(ctx)
		if simulate {
			sim := ecusim.NewServer(ecusim.NewHandler(), l)
			addr := net.JoinHostPort("", strconv.Itoa(viper.GetInt(portSettingName)))
			errg.Go(func() error {
				return sim.ListenAndServe(ctx, addr)
			})
		}
		errg.Go(func() error {
			return srv.Run(ctx)
		})

		err := errg.Wait()
		log.Printf("[gateway] stopped")
		return err
	},
}

var simulateCmd = &cobra.Command{
	Use:          "simulate",
	Short:        "Run the simulated ECU",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		addr := net.JoinHostPort("", strconv.Itoa(viper.GetInt(portSettingName)))
		return ecusim.NewServer(ecusim.NewHandler(), udsLogger(cmd)).ListenAndServe(ctx, addr)
	},
}
