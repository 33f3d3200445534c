package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"swasthai/internal/calendar"
	logx "swasthai/pkg/logx"
)

func newCalendarCmd(o *rootOpts) *cobra.Command {
	cmd := &cobra.Command{Use: "calendar", Short: "Calendar operations"}
	var outPath string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export upcoming events as an iCalendar file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(o, logx.Nop())
			if err != nil {
				return err
			}
			defer store.Close()
			members, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			ics := calendar.Export(members, time.Now())
			if outPath == "" || outPath == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), ics)
				return err
			}
			if err := os.WriteFile(outPath, []byte(ics), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", outPath)
			return nil
		},
	}
	export.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	cmd.AddCommand(export)
	return cmd
}

func newConfigCmd(o *rootOpts) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration operations"}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Parse and validate the config, then print it with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(cfg.Redacted()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "config %s is valid\n", o.resolveConfigPath())
			return nil
		},
	})
	return cmd
}
