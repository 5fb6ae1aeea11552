package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/service"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

func newAttachmentCommand() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "attachment <ticket-id> <attachment-id>",
		Short: "Open a ticket or chat attachment",
		Args:  cobra.ExactArgs(2),
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

			candidates := append([]domain.Attachment{}, ticket.Attachments...)
			msgs, err := a.messages.ListByTicket(ctx, ticket.Ref)
			if err != nil {
				a.logger.Debug("chat attachments unavailable")
			}
			for _, m := range msgs {
				candidates = append(candidates, m.Attachments...)
			}

			att, ok := findAttachment(candidates, args[1])
			if !ok {
				return errorutil.NewNotFound("attachment", map[string]any{"id": args[1]})
			}

			resolver := a.attachments()
			if printOnly {
				fmt.Fprintln(cmd.OutOrStdout(), resolver.URL(att))
				return nil
			}
			res, err := resolver.Open(ctx, att)
			if err != nil {
				return err
			}
			switch res.Mode {
			case service.OpenDownloaded:
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", res.Path)
			case service.OpenDirect:
				fmt.Fprintf(cmd.OutOrStdout(), "opened %s\n", res.URL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "url", false, "print the resolved URL instead of opening it")
	return cmd
}

func findAttachment(candidates []domain.Attachment, id string) (domain.Attachment, bool) {
	for _, att := range candidates {
		if att.ID == id || att.Name() == id {
			return att, true
		}
	}
	return domain.Attachment{}, false
}
