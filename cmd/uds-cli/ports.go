package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gavinwade12/udsgateway/protocols/uds"
)

var errInvalidSelection = errors.New("invalid selection")

func init() {
	portsCmd.AddCommand(listPortsCmd)
	portsCmd.AddCommand(selectPortCmd)

	rootCmd.AddCommand(portsCmd)
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Manage the serial ports an ECU can be reached through",
}

var listPortsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available serial ports on the host",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := uds.AvailablePorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
			return nil
		}

		return listPorts(cmd.OutOrStdout(), ports, viper.GetString(serialSettingName))
	},
}

// listPorts writes a table of ports, marking the one named selected.
func listPorts(w io.Writer, ports []uds.SerialPort, selected string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tINDEX\tPORT\tUSB\tVID:PID\tDESCRIPTION")
	for i, p := range ports {
		mark := ""
		if p.PortName == selected {
			mark = "*"
		}
		ids := "-"
		if p.IsUSB {
			ids = p.VendorID + ":" + p.ProductID
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%t\t%s\t%s\n", mark, i, p.PortName, p.IsUSB, ids, p.Description)
	}
	return tw.Flush()
}

var selectPortCmd = &cobra.Command{
	Use:          "set [index]",
	Short:        "Set the serial port to use in the config file",
	Long:         "Set the serial port to use in the config file. Without an index, the ports are listed and one is asked for.",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := uds.AvailablePorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			return errors.New("no serial ports found")
		}

		var choice string
		if len(args) == 1 {
			choice = args[0]
		} else {
			if err = listPorts(cmd.OutOrStdout(), ports, viper.GetString(serialSettingName)); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), "Port (index): ")
			if choice, err = bufio.NewReader(cmd.InOrStdin()).ReadString('\n'); err != nil && choice == "" {
				return errors.Wrap(err, "reading selection")
			}
		}

		p, err := choosePort(ports, choice)
		if err != nil {
			return err
		}

		viper.Set(serialSettingName, p.PortName)
		if err = viper.WriteConfig(); err != nil {
			return errors.Wrap(err, "saving config")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Selected '%s'\n", p.PortName)
		return nil
	},
}

// choosePort returns the port picked by choice, which is either an index into
// ports or a port name.
func choosePort(ports []uds.SerialPort, choice string) (uds.SerialPort, error) {
	choice = strings.TrimSpace(choice)
	for _, p := range ports {
		if p.PortName == choice {
			return p, nil
		}
	}

	i, err := strconv.Atoi(choice)
	if err != nil || i < 0 || i >= len(ports) {
		return uds.SerialPort{}, errors.Wrapf(errInvalidSelection, "%q", choice)
	}
	return ports[i], nil
}
