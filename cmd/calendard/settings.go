package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flitsinc/go-calendar/internal/state"
)

func newSettingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write stored settings such as the API key",
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			value, err := a.store.ReadSetting(cmd.Context(), args[0])
			if errors.Is(err, state.ErrSettingNotFound) {
				return fmt.Errorf("setting %q is not set", args[0])
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting, replacing any previous value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return a.store.WriteSetting(cmd.Context(), args[0], args[1])
		},
	}

	settingsCmd.AddCommand(getCmd, setCmd)
	return settingsCmd
}
