package cmd

import (
	"qrshare/internal/app"
	"qrshare/internal/ui"

	"github.com/spf13/cobra"
)

type SendFlags struct {
	FilePath string
}

var sendFlags SendFlags

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a file to the peer that scans the pairing QR code",
	Long: `Send a file to a peer. This will:

1. Create a session and print its pairing URL as a QR code
2. Wait for the receiver to join
3. Send the file metadata followed by its chunks

Use --file to specify the path to the file you want to send.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSenderApp(&sendFlags)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVarP(&sendFlags.FilePath, "file", "f", "", "Path to file to send (required)")
	_ = sendCmd.MarkFlagRequired("file")
}

// runSenderApp creates and runs the sender application
func runSenderApp(flags *SendFlags) error {
	if err := cfg.ValidateTransport(); err != nil {
		return err
	}

	ctx, cancel := createContext()
	defer cancel()

	connector, err := app.NewConnector(ctx, cfg)
	if err != nil {
		return err
	}

	senderApp := app.NewSenderApp(cfg, connector, ui.NewConsoleUI("Sending"))
	return senderApp.Run(ctx, &app.SenderOptions{FilePath: flags.FilePath})
}
