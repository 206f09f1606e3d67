package main

import (
	"github.com/spf13/cobra"
)

func statusCommand(serverAddr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine status: pause state, storage cap class, buffer span.",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := callControl(*serverAddr, "getStatus", nil)
			if err != nil {
				return err
			}
			return printResult(resp.Result)
		},
	}
}

func pauseCommand(serverAddr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause capture.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := callControl(*serverAddr, "pauseCapture", nil)
			return err
		},
	}
}

func resumeCommand(serverAddr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume capture.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := callControl(*serverAddr, "resumeCapture", nil)
			return err
		},
	}
}

func clearBufferCommand(serverAddr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-buffer",
		Short: "Drop all buffered capture data.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := callControl(*serverAddr, "clearBuffer", nil)
			return err
		},
	}
}

func cleanupCommand(serverAddr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Run one storage-pressure cleanup pass immediately.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := callControl(*serverAddr, "runCleanup", nil)
			return err
		},
	}
}
