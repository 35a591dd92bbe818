package mutation

import (
	"context"
	"sync"
)

// PanelState reports which dialog is open. At most one is.
type PanelState struct {
	TicketOpen bool
	VoteOpen   bool
}

// Panel owns the ticket and vote dialogs and keeps them mutually exclusive.
// Closing the ticket dialog resets its form; closing the vote dialog clears
// the selection. Both close after a successful submit.
type Panel struct {
	Ticket *TicketForm
	Vote   *VoteDialog

	mu    sync.Mutex
	state PanelState
}

// NewPanel wires the two dialogs together
func NewPanel(ticket *TicketForm, vote *VoteDialog) *Panel {
	p := &Panel{Ticket: ticket, Vote: vote}
	ticket.onSuccess = p.CloseTicket
	vote.onSuccess = p.CloseVote
	return p
}

// State returns which dialog is open
func (p *Panel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// OpenTicket closes the vote dialog, opens the ticket dialog and loads the
// selectable events. The dialog stays open when the lookup fails.
func (p *Panel) OpenTicket(ctx context.Context) error {
	p.CloseVote()

	p.mu.Lock()
	p.state.TicketOpen = true
	p.mu.Unlock()

	_, err := p.Ticket.LoadEvents(ctx)
	return err
}

// CloseTicket closes the ticket dialog and resets its form
func (p *Panel) CloseTicket() {
	p.mu.Lock()
	p.state.TicketOpen = false
	p.mu.Unlock()

	p.Ticket.Reset()
}

// OpenVote closes the ticket dialog, opens the vote dialog and loads the
// performer list. The dialog stays open when the lookup fails.
func (p *Panel) OpenVote(ctx context.Context) error {
	p.CloseTicket()

	p.mu.Lock()
	p.state.VoteOpen = true
	p.mu.Unlock()

	_, err := p.Vote.LoadPerformers(ctx)
	return err
}

// CloseVote closes the vote dialog and clears the selection
func (p *Panel) CloseVote() {
	p.mu.Lock()
	p.state.VoteOpen = false
	p.mu.Unlock()

	p.Vote.Deselect()
}
