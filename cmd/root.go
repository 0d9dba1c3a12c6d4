package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"qrshare/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg     *config.Config
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "qrshare",
	Short: "qrshare - send a file to whoever scans the QR code",
	Long: `qrshare transfers a single file between two peers paired by a URL,
shown as a QR code on the sending side.

The file is sent as one metadata message followed by binary chunks over a
websocket relay or a WebRTC data channel.

Usage:
  Send a file:    qrshare send --file /path/to/file
  Receive a file: qrshare receive --url "<pairing URL>" --dst /path/to/dir`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v, err := initConfig(cmd)
		if err != nil {
			return err
		}

		loaded, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = loaded
		return cfg.ConfigureLogging(os.Stderr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.qrshare.yaml)")
	rootCmd.PersistentFlags().String("transport", "", "transport to use: websocket or webrtc")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
}

// initConfig layers the root flags of cmd, environment and the config file,
// if any, over the defaults.
func initConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	config.SetDefaults(v)
	config.BindEnv(v)

	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("transport.kind", flags.Lookup("transport")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("log.level", flags.Lookup("log-level")); err != nil {
		return nil, err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			logrus.WithField("error", err.Error()).Warn("Could not find home directory")
			return v, nil
		}

		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(".qrshare")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	logrus.WithField("file", v.ConfigFileUsed()).Debug("Using config file")
	return v, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// createContext creates a context that cancels on interrupt signals
func createContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
