package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-client/internal/api/dto"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/normalize"
	"github.com/spec-kit/helpdesk-client/internal/service"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

func newTicketsCommand() *cobra.Command {
	var (
		page         int
		serverStatus string
		chip         string
		search       string
		link         string
	)

	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List one page of tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.close()

			list := a.ticketList()
			defer list.Close()

			if link != "" {
				cleaned, err := list.ApplyDeepLink(link)
				if err != nil {
					return err
				}
				a.logger.Debug("deep link consumed")
				fmt.Fprintln(cmd.ErrOrStderr(), cleaned)
			}

			query := dto.TicketListQuery{Page: page}
			if serverStatus != "" {
				status, err := parseStatus(serverStatus)
				if err != nil {
					return err
				}
				query.Status = &status
			}
			loaded, err := list.LoadQuery(ctx, query)
			if err != nil {
				return err
			}

			filter := service.ListFilter{Search: search}
			if chip != "" {
				status, err := parseStatus(chip)
				if err != nil {
					return err
				}
				filter.Status = &status
			}
			list.SetFilter(filter)

			out := cmd.OutOrStdout()
			printCounts(out, list.StatusCounts())
			printTickets(out, a.norm, list.Visible(), a.session.Actor.Role)
			fmt.Fprintf(out, "page %d of %d\n", loaded.CurrentPage, loaded.LastPage)

			if selected, ok := list.Selected(); ok {
				fmt.Fprintln(out)
				printTicket(out, a.norm, selected)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page to load")
	cmd.Flags().StringVar(&serverStatus, "status", "", "ask the backend for one status only")
	cmd.Flags().StringVar(&chip, "chip", "", "filter the loaded page by status")
	cmd.Flags().StringVar(&search, "search", "", "filter the loaded page by text")
	cmd.Flags().StringVar(&link, "link", "", "ticket list URL; an open=<id> parameter opens that ticket")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <ticket-id>",
		Short: "Show one ticket by code or internal id",
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
			printTicket(cmd.OutOrStdout(), a.norm, ticket)
			return nil
		},
	}
}

func parseStatus(raw string) (domain.TicketStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errorutil.NewValidationError("status is required", nil)
	}
	status, ok := normalize.Status(raw)
	if !ok {
		return "", errorutil.NewValidationError(fmt.Sprintf("unknown status %q", raw), nil)
	}
	return status, nil
}
