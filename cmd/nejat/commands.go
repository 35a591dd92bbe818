package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/prohmpiriya/nejat-client/internal/detail"
	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/internal/mutation"
)

const dateLayout = "2006-01-02"

func init() {
	register(command{name: "cities", summary: "list the city filter values", run: runCities})
	register(command{name: "events", summary: "list upcoming events", run: runEvents})
	register(command{name: "event", args: "<id>", summary: "show one event", run: runEvent})
	register(command{name: "performers", summary: "list performers open for votes", run: runPerformers})
	register(command{name: "ticket-events", summary: "list events a ticket can refer to", run: runTicketEvents})
	register(command{name: "subscribe", summary: "subscribe to a venue's events", run: runSubscribe})
	register(command{name: "vote", args: "<id>", summary: "vote for a performer", run: runVote})
	register(command{name: "ticket", summary: "file a support ticket", run: runTicket})
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parse parses args and checks the positional count
func parse(fs *pflag.FlagSet, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%s: %w", fs.Name(), err)
	}
	rest := fs.Args()
	if len(rest) != positional {
		return nil, fmt.Errorf("%s: expected %d argument(s), got %d", fs.Name(), positional, len(rest))
	}
	return rest, nil
}

func runCities(_ context.Context, s *session, args []string) error {
	if _, err := parse(newFlagSet("cities"), args, 0); err != nil {
		return err
	}
	fmt.Fprintln(s.out, domain.CityAll)
	for _, c := range domain.Cities() {
		fmt.Fprintln(s.out, c)
	}
	return nil
}

func runEvents(ctx context.Context, s *session, args []string) error {
	fs := newFlagSet("events")
	search := fs.String("search", "", "text to search for")
	city := fs.String("city", "", "city name, or ALL")
	from := fs.String("from", "", "earliest date (YYYY-MM-DD or RFC 3339)")
	to := fs.String("to", "", "latest date, inclusive (YYYY-MM-DD or RFC 3339)")
	pages := fs.Int("pages", 1, "number of pages to load")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	start, err := parseDate(*from, false)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	end, err := parseDate(*to, true)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	if start != nil && end != nil && end.Before(*start) {
		return fmt.Errorf("--to %s is before --from %s: %w", *to, *from, domain.ErrInvalidInput)
	}

	store := s.c.Filter
	store.SetSearch(*search)
	if *city != "" {
		c, err := domain.ParseCity(*city)
		if err != nil {
			return fmt.Errorf("--city: %w", err)
		}
		if err := store.SetCity(c); err != nil {
			return err
		}
	}
	store.SetDateRange(start, end)

	list := s.c.Events
	if err := list.Load(ctx); err != nil {
		return err
	}
	for i := 1; i < *pages; i++ {
		fetched, err := list.FetchMore(ctx)
		if err != nil {
			return err
		}
		if !fetched {
			break
		}
	}

	snap := list.Snapshot()
	events := snap.Events()
	if len(events) == 0 {
		fmt.Fprintln(s.out, "No events found.")
		return nil
	}

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for i := range events {
		e := &events[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.EventDate.Local().Format("Mon 02 Jan 15:04"), e.Title(), e.City(), e.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(s.out, "\nShowing %d of %d events", len(events), snap.Total)
	if snap.HasMore {
		fmt.Fprintf(s.out, " (use --pages %d for more)", snap.CurrentPage+1)
	}
	fmt.Fprintln(s.out)
	return nil
}

func runEvent(ctx context.Context, s *session, args []string) error {
	rest, err := parse(newFlagSet("event"), args, 1)
	if err != nil {
		return err
	}

	view := s.c.Details.Load(ctx, rest[0])
	switch view.State {
	case detail.NotFound:
		fmt.Fprintf(s.out, "No event found with id %s.\n", rest[0])
		return nil
	case detail.Error:
		return view.Err
	}

	printEvent(s.out, view.Event)
	return nil
}

func printEvent(w io.Writer, e *domain.Event) {
	fmt.Fprintln(w, e.Title())
	fmt.Fprintln(w, strings.Repeat("=", len(e.Title())))

	when := e.StartTime.Local().Format("Mon 02 Jan 2006, 15:04")
	if e.EndTime != nil {
		when += " - " + e.EndTime.Local().Format("15:04")
	}
	fmt.Fprintf(w, "When:   %s\n", when)
	fmt.Fprintf(w, "Where:  %s, %s, %s\n", e.Venue.Name, e.Venue.Address, e.Venue.City)
	if img := e.CoverImage(); img != "" {
		fmt.Fprintf(w, "Image:  %s\n", img)
	}
	if e.Description != "" {
		fmt.Fprintf(w, "\n%s\n", e.Description)
	}

	if len(e.Performers) > 0 {
		fmt.Fprintln(w, "\nPerformers:")
		for i := range e.Performers {
			p := &e.Performers[i]
			fmt.Fprintf(w, "  %s", p.DisplayName())
			if p.Bio != "" {
				fmt.Fprintf(w, " - %s", p.Bio)
			}
			fmt.Fprintln(w)
			for _, l := range p.SocialMedia.Links() {
				fmt.Fprintf(w, "    %s: %s\n", l.Network, l.URL)
			}
		}
	}

	links := e.Venue.SocialMedia.Links()
	if e.Venue.SocialMedia.Website != "" {
		links = append(links, domain.SocialLink{Network: "website", URL: e.Venue.SocialMedia.Website})
	}
	if len(links) > 0 {
		fmt.Fprintln(w, "\nVenue links:")
		for _, l := range links {
			fmt.Fprintf(w, "  %s: %s\n", l.Network, l.URL)
		}
	}
}

func runPerformers(ctx context.Context, s *session, args []string) error {
	if _, err := parse(newFlagSet("performers"), args, 0); err != nil {
		return err
	}

	panel := s.c.Panel
	if err := panel.OpenVote(ctx); err != nil {
		return err
	}
	defer panel.CloseVote()

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, p := range panel.Vote.Performers() {
		fmt.Fprintf(tw, "%s\t%s\n", p.ID, p.DisplayName())
	}
	return tw.Flush()
}

func runTicketEvents(ctx context.Context, s *session, args []string) error {
	if _, err := parse(newFlagSet("ticket-events"), args, 0); err != nil {
		return err
	}

	events, err := s.c.Panel.Ticket.LoadEvents(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\n", e.ID, e.Label())
	}
	return tw.Flush()
}

func runSubscribe(ctx context.Context, s *session, args []string) error {
	fs := newFlagSet("subscribe")
	venue := fs.String("venue", "", "venue id")
	email := fs.String("email", "", "email address")
	phone := fs.String("phone", "", "phone number (optional)")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	if *venue == "" {
		return errors.New("subscribe: --venue is required")
	}

	form := s.c.Subscription(*venue)
	form.Set(mutation.SubscriptionValues{
		Email:        *email,
		Phone:        *phone,
		IncludePhone: *phone != "",
	})
	return form.Submit(ctx)
}

func runVote(ctx context.Context, s *session, args []string) error {
	rest, err := parse(newFlagSet("vote"), args, 1)
	if err != nil {
		return err
	}

	panel := s.c.Panel
	if err := panel.OpenVote(ctx); err != nil {
		return err
	}
	defer panel.CloseVote()

	if err := panel.Vote.Select(rest[0]); err != nil {
		return err
	}
	return panel.Vote.Vote(ctx)
}

func runTicket(ctx context.Context, s *session, args []string) error {
	fs := newFlagSet("ticket")
	name := fs.String("name", "", "your full name")
	email := fs.String("email", "", "your email address")
	title := fs.String("title", "", "ticket title")
	description := fs.String("description", "", "what happened")
	event := fs.String("event", "", "related event id (optional)")
	image := fs.String("image", "", "path to a screenshot (optional)")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	panel := s.c.Panel
	if err := panel.OpenTicket(ctx); err != nil {
		return err
	}
	defer panel.CloseTicket()

	form := panel.Ticket
	form.Set(mutation.TicketValues{
		FullName:    *name,
		Email:       *email,
		Title:       *title,
		Description: *description,
		EventID:     *event,
	})
	if *image != "" {
		if err := form.AttachImageFile(*image); err != nil {
			return err
		}
	}
	return form.Submit(ctx)
}

// parseDate reads a calendar date in local time or an RFC 3339 instant.
// With endOfDay a calendar date covers the whole day.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
		}
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, domain.ErrInvalidInput)
	}
	return &t, nil
}
