package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gavinwade12/udsgateway/explain"
)

var rawResponse string
var explainContext string

func init() {
	explainCmd.Flags().StringVar(&rawResponse, "raw", "", "raw response to explain. Example: \"7F 23 31\"")
	explainCmd.Flags().StringVar(&explainContext, "context", "", "what was being done when the response came back")

	rootCmd.AddCommand(explainCmd)
}

var explainCmd = &cobra.Command{
	Use:          "explain",
	Short:        "Explain a raw UDS response",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if rawResponse == "" {
			return errors.New("a raw response is required")
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		e := createExplainer()
		defer e.Close()

		fmt.Fprintln(cmd.OutOrStdout(), explain.Describe(ctx, e, rawResponse, explainContext))
		return nil
	},
}
