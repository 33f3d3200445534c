package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"swasthai/pkg/unitctl"
)

func newServiceCmd() *cobra.Command {
	var unit string
	cmd := &cobra.Command{Use: "service", Short: "Inspect or restart the healthd systemd unit"}
	cmd.PersistentFlags().StringVar(&unit, "unit", unitctl.DefaultUnit, "systemd unit name")

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the unit state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			c, err := unitctl.Dial(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			st, err := c.Status(ctx, unit)
			if err != nil {
				return err
			}
			if !st.Found() {
				return fmt.Errorf("unit %s not found", st.Unit)
			}
			row := []string{st.Unit, st.Active + "/" + st.SubState, "", "", ""}
			if st.MainPID > 0 {
				row[2] = fmt.Sprint(st.MainPID)
			}
			if st.Memory > 0 {
				row[3] = fmt.Sprintf("%.1f MiB", float64(st.Memory)/(1<<20))
			}
			if st.Uptime > 0 {
				row[4] = st.Uptime.String()
			}
			return renderTable(cmd.OutOrStdout(), []string{"UNIT", "STATE", "PID", "MEMORY", "UPTIME"}, [][]string{row})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "restart",
		Short: "Restart the unit and wait for the job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			c, err := unitctl.Dial(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.Restart(ctx, unit); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restarted %s\n", unit)
			return nil
		},
	})
	return cmd
}
