package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/char5742/fbtouch/internal/features"
)

func NewDevicesCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List input devices and mark touchscreens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}
			devices, err := features.ScanTouchDevices()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(devices)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tNAME\tTOUCHSCREEN")
			for _, d := range devices {
				fmt.Fprintf(w, "%s\t%s\t%v\n", d.Path, d.Name, d.IsTouchscreen())
			}
			if len(devices) == 0 {
				fmt.Fprintln(os.Stderr, "入力デバイスが見つかりません")
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "JSONで出力する")

	return cmd
}
