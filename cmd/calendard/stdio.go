package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flitsinc/go-calendar/internal/engine"
	"github.com/flitsinc/go-calendar/internal/hostproto"
)

func newStdioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Answer JSON-lines requests on stdin for a host application",
		Long: `Reads one {"id": ..., "message": "..."} object per line from stdin and writes one
{"id": ..., "reply": ..., "error": ...} object per line to stdout. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			h, _, err := a.handler(ctx)
			if err != nil {
				return err
			}
			err = hostproto.Serve(ctx, os.Stdin, os.Stdout, replyText(h), a.log.Named("stdio"))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func replyText(h engine.Handler) hostproto.Handler {
	return hostproto.HandlerFunc(func(ctx context.Context, msg string) string {
		return h.Handle(ctx, msg).Text
	})
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			h, _, err := a.handler(cmd.Context())
			if err != nil {
				return err
			}
			reply := h.Handle(cmd.Context(), strings.Join(args, " "))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			return err
		},
	}
}
