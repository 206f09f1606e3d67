// Command browserclip-cmd is the CLI front-end for browserclip-server's
// /control websocket. Its command tree follows docker-compose's cobra
// layout (ecs/cmd/commands/root.go's NewRootCmd + one file per subcommand)
// rather than the teacher's hand-rolled gasoline-cmd flag parser, since the
// pack carries spf13/cobra and this binary is the natural place to use it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var serverAddr string

	cmd := &cobra.Command{
		Use:   "browserclip-cmd",
		Short: "CLI for the browserclip capture engine's control plane.",
		Long:  "browserclip-cmd talks to a running browserclip-server over its /control websocket.",
	}
	cmd.PersistentFlags().StringVar(&serverAddr, "server", "127.0.0.1:7891", "browserclip-server host:port")

	cmd.AddCommand(
		versionCommand(),
		statusCommand(&serverAddr),
		clipCommand(&serverAddr),
		pauseCommand(&serverAddr),
		resumeCommand(&serverAddr),
		clearBufferCommand(&serverAddr),
		testConnectionCommand(&serverAddr),
		cleanupCommand(&serverAddr),
	)
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "browserclip-cmd %s\n", version)
			return nil
		},
	}
}
