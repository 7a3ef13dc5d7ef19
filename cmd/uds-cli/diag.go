package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gavinwade12/udsgateway/explain"
	"github.com/gavinwade12/udsgateway/protocols/uds"
)

var errRequestFailed = errors.New("request failed")

var address string
var length int
var value string
var dataID string
var describeFailures bool

func init() {
	readMemoryCmd.Flags().StringVar(&address, "address", "", "hex memory address to read from. Example: 1000")
	readMemoryCmd.Flags().IntVar(&length, "length", 1, "number of bytes to read (1-255)")
	writeMemoryCmd.Flags().StringVar(&address, "address", "", "hex memory address to write to. Example: 1000")
	writeMemoryCmd.Flags().StringVar(&value, "value", "", "hex bytes to write. Example: \"AA BB\"")
	readDIDCmd.Flags().StringVar(&dataID, "id", "", "hex data identifier to read. Example: F100")

	for _, cmd := range []*cobra.Command{readMemoryCmd, writeMemoryCmd, readDIDCmd, resetCmd} {
		cmd.Flags().BoolVar(&describeFailures, "describe", false, "ask for an explanation when the request fails")
		rootCmd.AddCommand(cmd)
	}
}

var readMemoryCmd = &cobra.Command{
	Use:          "read-memory",
	Short:        "Read bytes from the ECU's memory",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if address == "" {
			return errors.New("an address is required")
		}
		return runOperation(cmd, func(ctx context.Context, c *uds.Client) uds.Outcome {
			return c.ReadMemory(ctx, address, length)
		})
	},
}

var writeMemoryCmd = &cobra.Command{
	Use:          "write-memory",
	Short:        "Write bytes to the ECU's memory",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if address == "" {
			return errors.New("an address is required")
		}
		if value == "" {
			return errors.New("a value is required")
		}
		return runOperation(cmd, func(ctx context.Context, c *uds.Client) uds.Outcome {
			return c.WriteMemory(ctx, address, value)
		})
	},
}

var readDIDCmd = &cobra.Command{
	Use:          "read-did",
	Short:        "Read a data item by its identifier",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dataID == "" {
			return errors.New("a data identifier is required")
		}
		return runOperation(cmd, func(ctx context.Context, c *uds.Client) uds.Outcome {
			return c.ReadDataByIdentifier(ctx, dataID)
		})
	},
}

var resetCmd = &cobra.Command{
	Use:          "reset",
	Short:        "Reset the ECU",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, func(ctx context.Context, c *uds.Client) uds.Outcome {
			return c.ECUReset(ctx)
		})
	},
}

func runOperation(cmd *cobra.Command, op func(context.Context, *uds.Client) uds.Outcome) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	l := udsLogger(cmd)
	session := createSession(l)
	defer session.Close()

	out := op(ctx, uds.NewClient(session, l))
	printOutcome(cmd.OutOrStdout(), out)
	if out.Success {
		return nil
	}

	if describeFailures && out.RawHex != "" {
		e := createExplainer()
		defer e.Close()
		fmt.Fprintln(cmd.OutOrStdout(), explain.Describe(ctx, e, out.RawHex, cmd.Name()))
	}
	return errRequestFailed
}

func printOutcome(w io.Writer, out uds.Outcome) {
	if quiet {
		fmt.Fprintln(w, out.RawHex)
		return
	}
	fmt.Fprintln(w, out.Message)
	if out.RawHex != "" {
		fmt.Fprintf(w, "raw: %s\n", out.RawHex)
	}
}
