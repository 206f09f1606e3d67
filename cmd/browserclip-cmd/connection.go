package main

import (
	"github.com/spf13/cobra"
)

func testConnectionCommand(serverAddr *string) *cobra.Command {
	var url, key string

	cmd := &cobra.Command{
		Use:   "test-connection",
		Short: "Validate a Supabase endpoint URL and key without saving a bad one.",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := struct {
				URL string `json:"url,omitempty"`
				Key string `json:"key,omitempty"`
			}{URL: url, Key: key}
			resp, err := callControl(*serverAddr, "testSupabaseConnection", params)
			if err != nil {
				return err
			}
			return printResult(resp.Result)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Supabase endpoint URL (default: use the currently configured one)")
	cmd.Flags().StringVar(&key, "key", "", "Supabase service_role key (default: use the currently configured one)")
	return cmd
}
