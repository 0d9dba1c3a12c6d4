package cmd

import (
	"qrshare/internal/app"
	"qrshare/internal/ui"

	"github.com/spf13/cobra"
)

type ReceiveFlags struct {
	PairingURL string
	DstPath    string
}

var receiveFlags ReceiveFlags

// receiveCmd represents the receive command
var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Receive a file from the peer that shows the pairing URL",
	Long: `Receive a file from a peer. This will:

1. Join the session named by the pairing URL (prompted for if --url is empty)
2. Wait for the file metadata and collect its chunks
3. Save the file into the destination directory once every byte arrived

Use --dst to specify the directory to save the received file in.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReceiverApp(&receiveFlags)
	},
}

func init() {
	rootCmd.AddCommand(receiveCmd)

	receiveCmd.Flags().StringVarP(&receiveFlags.PairingURL, "url", "u", "", "Pairing URL shown by the sender")
	receiveCmd.Flags().StringVarP(&receiveFlags.DstPath, "dst", "d", ".", "Directory to save the received file in")
}

// runReceiverApp creates and runs the receiver application
func runReceiverApp(flags *ReceiveFlags) error {
	if err := cfg.ValidateTransport(); err != nil {
		return err
	}

	ctx, cancel := createContext()
	defer cancel()

	connector, err := app.NewConnector(ctx, cfg)
	if err != nil {
		return err
	}

	receiverApp := app.NewReceiverApp(cfg, connector, ui.NewConsoleUI("Receiving"))
	return receiverApp.Run(ctx, &app.ReceiverOptions{
		PairingURL: flags.PairingURL,
		DestPath:   flags.DstPath,
	})
}
