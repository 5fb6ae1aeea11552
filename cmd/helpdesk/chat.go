package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/repository"
)

func newChatCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "chat <ticket-id>",
		Short: "Print a ticket chat, optionally following new messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.close()

			list := a.ticketList()
			defer list.Close()
			ticket, err := a.openTicket(ctx, list, args[0])
			if err != nil {
				return err
			}

			chat := a.messageSync(nil)
			defer chat.Cancel()
			if err := chat.Open(ctx, &ticket); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			state := chat.Snapshot()
			printMessages(out, a.norm, state.Messages)
			if !state.Gate.Allowed {
				fmt.Fprintf(out, "(chat locked: %s)\n", state.Gate.Reason)
			}
			if !watch {
				return nil
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s every %s, Ctrl-C to stop\n", ticket.Ref.Display(), a.cfg.Chat.PollInterval())
			<-ctx.Done()
			a.logger.Debug("chat watch stopped", zap.String("ticket", ticket.Ref.Display()))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling and print new messages")
	return cmd
}

func newSendCommand() *cobra.Command {
	var (
		body  string
		files []string
	)

	cmd := &cobra.Command{
		Use:   "send <ticket-id>",
		Short: "Post a chat message with optional attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.close()

			inputs := make([]repository.FileInput, 0, len(files))
			for _, path := range files {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read attachment %s: %w", path, err)
				}
				inputs = append(inputs, repository.FileInput{Name: filepath.Base(path), Content: content})
			}

			list := a.ticketList()
			defer list.Close()
			ticket, err := a.openTicket(ctx, list, args[0])
			if err != nil {
				return err
			}

			chat := a.messageSync(nil)
			defer chat.Cancel()
			if err := chat.Open(ctx, &ticket); err != nil {
				return err
			}
			msg, err := chat.Send(ctx, body, inputs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent message %s to %s\n", msg.ID, ticket.Ref.Display())
			return nil
		},
	}

	cmd.Flags().StringVarP(&body, "message", "m", "", "message text")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "file to attach (repeatable)")
	return cmd
}

