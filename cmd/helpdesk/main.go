package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "helpdesk",
		Short:         "Helpdesk ticket client",
		Long:          "Browse tickets, follow ticket chats and move tickets through their lifecycle from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newTicketsCommand(),
		newShowCommand(),
		newChatCommand(),
		newSendCommand(),
		newTransitionCommand(),
		newReopenCommand(),
		newAttachmentCommand(),
	)
	return cmd
}

// describe renders errors the way they are shown next to the control that
// triggered them.
func describe(err error) string {
	var domainErr *errorutil.DomainError
	if errors.As(err, &domainErr) {
		return fmt.Sprintf("error [%s]: %s", domainErr.Code, domainErr.Message)
	}
	return "error: " + err.Error()
}
