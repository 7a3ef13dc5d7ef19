package main

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gavinwade12/udsgateway/explain"
	"github.com/gavinwade12/udsgateway/protocols/uds"
)

const (
	hostSettingName       string = "host"
	portSettingName       string = "port"
	serialSettingName     string = "serial"
	baudSettingName       string = "baud"
	timeoutSettingName    string = "timeout"
	maxRetriesSettingName string = "maxRetries"
	retryDelaySettingName string = "retryDelay"
	listenSettingName     string = "listen"

	explainAPIKeySettingName   string = "explain.apiKey"
	explainEndpointSettingName string = "explain.endpoint"
	explainModelSettingName    string = "explain.model"
	explainCacheTTLSettingName string = "explain.cacheTTL"
)

var configFile string
var quiet bool
var verbose bool

func init() {
	cobra.OnInitialize(func() {
		if err := loadConfig(configFile); err != nil {
			log.Fatal(err)
		}
		bindFlags(rootCmd)
	})

	def := uds.DefaultSessionConfig()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default is $HOME/.udsgw.yaml)")
	flags.String(hostSettingName, "localhost", "host of the ECU (or simulator) to connect to")
	flags.Int(portSettingName, 5001, "TCP port of the ECU (or simulator) to connect to")
	flags.String(serialSettingName, "", "serial port to connect to instead of TCP. Example: /dev/ttyUSB0")
	flags.Int(baudSettingName, uds.SerialDefaultBaudRate, "baud rate used with --serial")
	flags.Duration(timeoutSettingName, def.Timeout, "timeout for connecting and for each response")
	flags.Int(maxRetriesSettingName, def.MaxRetries, "connection attempts per request")
	flags.Duration(retryDelaySettingName, def.RetryDelay, "delay between connection attempts")
	flags.BoolVar(&quiet, "quiet", false, "quiet all log output")
	flags.BoolVar(&verbose, "verbose", false, "provide verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var rootCmd = &cobra.Command{
	Use:           "uds-cli",
	Short:         "A CLI for running UDS (ISO 14229) diagnostics against an ECU.",
	SilenceErrors: true,
}

// loadConfig points viper at file, or at ~/.udsgw.yaml when file is empty,
// and reads it. A missing file is created from the defaults.
func loadConfig(file string) error {
	if file == "" {
		home, err := homedir.Dir()
		if err != nil {
			return errors.Wrap(err, "finding home directory")
		}
		file = filepath.Join(home, ".udsgw.yaml")
	}
	viper.SetConfigFile(file)
	viper.SetConfigType("yaml")

	viper.SetDefault(explainEndpointSettingName, explain.DefaultEndpoint)
	viper.SetDefault(explainModelSettingName, explain.DefaultModel)
	viper.SetDefault(explainCacheTTLSettingName, explain.DefaultCacheTTL)
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
	case errors.As(err, &notFound) || os.IsNotExist(err):
		if err = viper.SafeWriteConfigAs(file); err != nil {
			return errors.Wrap(err, "creating config file")
		}
	default:
		return errors.Wrap(err, "reading config file")
	}

	// bound after the config file is written so the key never lands in it
	return viper.BindEnv(explainAPIKeySettingName, "GROQ_API_KEY")
}

// bindFlags binds the flags of cmd and its subcommands to viper, then fills
// every flag left unset on the command line from the config.
func bindFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	viper.BindPFlags(flags)
	flags.VisitAll(func(f *pflag.Flag) {
		if !f.Changed && viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			flags.Set(f.Name, viper.GetString(f.Name))
		}
	})

	for _, sub := range cmd.Commands() {
		bindFlags(sub)
	}
}

func udsLogger(cmd *cobra.Command) uds.Logger {
	if !verbose {
		return uds.NopLogger
	}
	return uds.DefaultLogger(cmd.ErrOrStderr())
}

func sessionConfig() uds.SessionConfig {
	return uds.SessionConfig{
		Timeout:    viper.GetDuration(timeoutSettingName),
		MaxRetries: viper.GetInt(maxRetriesSettingName),
		RetryDelay: viper.GetDuration(retryDelaySettingName),
	}
}

func ecuAddress() string {
	return net.JoinHostPort(viper.GetString(hostSettingName), strconv.Itoa(viper.GetInt(portSettingName)))
}

// createSession returns a session for the configured ECU. It doesn't connect;
// that happens on the first request.
func createSession(l uds.Logger) *uds.Session {
	cfg := sessionConfig()

	var open uds.Opener
	if sp := viper.GetString(serialSettingName); sp != "" {
		l.Debugf("using serial port %s", sp)
		open = uds.SerialOpener(sp, viper.GetInt(baudSettingName), cfg.Timeout)
	} else {
		addr := ecuAddress()
		l.Debugf("using TCP address %s", addr)
		open = uds.TCPOpener(addr, cfg.Timeout)
	}

	return uds.NewSession(open, cfg, l)
}

func createExplainer() *explain.Cached {
	chat := explain.NewChatClient(explain.ChatConfig{
		APIKey:   viper.GetString(explainAPIKeySettingName),
		Endpoint: viper.GetString(explainEndpointSettingName),
		Model:    viper.GetString(explainModelSettingName),
	})
	return explain.NewCached(chat, viper.GetDuration(explainCacheTTLSettingName))
}
