package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"swasthai/internal/reminder"
	logx "swasthai/pkg/logx"
)

func newMembersCmd(o *rootOpts) *cobra.Command {
	cmd := &cobra.Command{Use: "members", Short: "Family member operations"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List family members and their upcoming events",
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
			return renderTable(cmd.OutOrStdout(), []string{"ID", "NAME", "RELATION", "CONDITIONS", "EVENTS"}, memberRows(members))
		},
	})
	return cmd
}

func newNotificationsCmd(o *rootOpts) *cobra.Command {
	cmd := &cobra.Command{Use: "notifications", Short: "Notification log operations"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the notification log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(o, logx.Nop())
			if err != nil {
				return err
			}
			defer store.Close()
			ns, err := store.ListNotifications(cmd.Context())
			if err != nil {
				return err
			}
			return renderTable(cmd.OutOrStdout(), []string{"MEMBER", "EVENT", "DATE", "DAYS", "STATUS", "NOTIFIED"}, notificationRows(ns))
		},
	})
	return cmd
}

func memberRows(members []reminder.Member) [][]string {
	rows := make([][]string, 0, len(members))
	for _, m := range members {
		events := make([]string, 0, len(m.UpcomingEvents))
		for _, ev := range m.UpcomingEvents {
			s := ev.Title + " " + ev.Date
			if ev.RRule != "" {
				s += " (recurring)"
			}
			events = append(events, s)
		}
		rows = append(rows, []string{m.ID, m.Name, m.Relation, strings.Join(m.Conditions, ", "), strings.Join(events, "; ")})
	}
	return rows
}

func notificationRows(ns []reminder.Notification) [][]string {
	rows := make([][]string, 0, len(ns))
	for _, n := range ns {
		rows = append(rows, []string{
			n.MemberName,
			n.EventTitle,
			n.EventDate,
			strconv.Itoa(n.DaysUntil),
			string(n.Status),
			n.NotifiedAt.Format("2006-01-02 15:04"),
		})
	}
	return rows
}
