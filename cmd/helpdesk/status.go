package main

import (
	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/service"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

func newTransitionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transition <ticket-id> [status]",
		Short: "Move a ticket to its next status (admins only)",
		Long:  "Move a ticket along OPEN -> IN_REVIEW -> IN_PROGRESS -> RESOLVED. Without a status the next one is used.",
		Args:  cobra.RangeArgs(1, 2),
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

			var target domain.TicketStatus
			if len(args) == 2 {
				if target, err = parseStatus(args[1]); err != nil {
					return err
				}
			} else {
				next, ok := service.Next(ticket.Status)
				if !ok {
					return errorutil.NewIllegalTransition(string(ticket.Status), "-")
				}
				target = next
			}

			_, err = a.statusMachine().Transition(ctx, ticket, target, a.session.Actor.Role)
			return err
		},
	}
}

func newReopenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <ticket-id>",
		Short: "Reopen a resolved ticket (not supported)",
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
			_, err = a.statusMachine().Reopen(ctx, ticket, a.session.Actor.Role)
			return err
		},
	}
}
