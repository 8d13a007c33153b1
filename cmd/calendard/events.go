package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/flitsinc/go-calendar/internal/ics"
	"github.com/flitsinc/go-calendar/internal/state"
)

func newEventsCmd() *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect, export and import stored events",
	}

	var start, end string
	var jsonOutput bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List events, optionally those overlapping [--start, --end)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (start == "") != (end == "") {
				return errors.New("--start and --end must be given together")
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var events []state.Event
			if start == "" {
				events, err = a.store.AllEvents(cmd.Context())
			} else {
				events, err = a.store.EventsBetween(cmd.Context(), start, end)
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTART\tEND\tTITLE\tLOCATION")
			for _, ev := range events {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", ev.ID, ev.StartTime, ev.EndTime, ev.Title, ev.Location)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringVar(&start, "start", "", "window start, YYYY-MM-DDTHH:MM:SS")
	listCmd.Flags().StringVar(&end, "end", "", "window end, YYYY-MM-DDTHH:MM:SS")
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")

	exportCmd := &cobra.Command{
		Use:   "export [file.ics]",
		Short: "Write all events as iCalendar (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			n, err := ics.Export(cmd.Context(), a.store, out, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d events\n", n)
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file.ics>",
		Short: "Insert events from an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			res, err := ics.Import(cmd.Context(), f, a.store, a.log.Named("ics"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d, invalid %d\n", res.Imported, res.Skipped, res.Invalid)
			return nil
		},
	}

	eventsCmd.AddCommand(listCmd, exportCmd, importCmd)
	return eventsCmd
}
