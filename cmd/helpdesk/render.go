package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/normalize"
	"github.com/spec-kit/helpdesk-client/internal/service"
)

func printTickets(out io.Writer, norm *normalize.Normalizer, tickets []domain.Ticket, role domain.Role) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if role == domain.RoleAdmin {
		fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPRIORITY\tSTATUS\tREQUESTER\tCREATED")
	} else {
		fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tSTATUS\tCREATED")
	}
	for _, t := range tickets {
		if role == domain.RoleAdmin {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				t.Ref.Display(), t.Title, t.Category, t.Priority, t.Status.Label(), t.RequesterName, norm.Display(t.CreatedAt))
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			t.Ref.Display(), t.Title, t.Category, t.Status.Label(), norm.Display(t.CreatedAt))
	}
	_ = tw.Flush()
}

func printCounts(out io.Writer, counts []service.StatusCount) {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s %d", c.Status.Label(), c.Count))
	}
	fmt.Fprintln(out, strings.Join(parts, " | "))
}

func printTicket(out io.Writer, norm *normalize.Normalizer, t domain.Ticket) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Ticket\t%s\n", t.Ref.Display())
	fmt.Fprintf(tw, "Title\t%s\n", t.Title)
	fmt.Fprintf(tw, "Category\t%s\n", t.Category)
	fmt.Fprintf(tw, "Priority\t%s\n", t.Priority)
	fmt.Fprintf(tw, "Status\t%s\n", t.Status.Label())
	fmt.Fprintf(tw, "Requester\t%s\n", t.RequesterName)
	fmt.Fprintf(tw, "Created\t%s\n", norm.Display(t.CreatedAt))
	fmt.Fprintf(tw, "Updated\t%s\n", norm.Display(t.UpdatedAt))
	if t.ResolvedAt != nil {
		fmt.Fprintf(tw, "Resolved\t%s\n", norm.Display(*t.ResolvedAt))
	}
	_ = tw.Flush()
	if t.Description != "" {
		fmt.Fprintf(out, "\n%s\n", t.Description)
	}
	if atts := t.TopLevelAttachments(); len(atts) > 0 {
		fmt.Fprintln(out, "\nAttachments:")
		for _, att := range atts {
			fmt.Fprintf(out, "  [%s] %s\n", att.ID, att.Name())
		}
	}
}

func printMessages(out io.Writer, norm *normalize.Normalizer, msgs []domain.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(out, "No messages yet.")
		return
	}
	for _, m := range msgs {
		fmt.Fprintf(out, "[%s] %s (%s): %s\n", norm.Display(m.SentAt), m.SenderName, m.SenderRole, m.Body)
		for _, att := range m.Attachments {
			fmt.Fprintf(out, "    attachment [%s] %s\n", att.ID, att.Name())
		}
	}
}
