package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func clipCommand(serverAddr *string) *cobra.Command {
	var startMs, endMs int64
	var tabsCSV, name string

	cmd := &cobra.Command{
		Use:   "clip",
		Short: "Create a clip from the buffered capture window.",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := struct {
				StartTime int64  `json:"startTime"`
				EndTime   int64  `json:"endTime"`
				TabIDs    []int  `json:"tabIds,omitempty"`
				ClipName  string `json:"clipName,omitempty"`
			}{
				StartTime: startMs,
				EndTime:   endMs,
				ClipName:  name,
			}
			if tabsCSV != "" {
				for _, tok := range strings.Split(tabsCSV, ",") {
					tok = strings.TrimSpace(tok)
					if tok == "" {
						continue
					}
					id, err := strconv.Atoi(tok)
					if err != nil {
						return err
					}
					params.TabIDs = append(params.TabIDs, id)
				}
			}
			resp, err := callControl(*serverAddr, "createClip", params)
			if err != nil {
				return err
			}
			return printResult(resp.Result)
		},
	}

	cmd.Flags().Int64Var(&startMs, "start", 0, "clip start time, epoch milliseconds")
	cmd.Flags().Int64Var(&endMs, "end", 0, "clip end time, epoch milliseconds")
	cmd.Flags().StringVar(&tabsCSV, "tabs", "", "comma-separated tab ids to restrict the clip to (default: all)")
	cmd.Flags().StringVar(&name, "name", "", "clip name (default: auto-generated)")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}
