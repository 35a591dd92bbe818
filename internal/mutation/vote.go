package mutation

import (
	"context"
	"fmt"
	"sync"

	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/internal/dto"
)

// Voter lists performers and casts votes
type Voter interface {
	ListPerformers(ctx context.Context) ([]domain.Performer, error)
	VotePerformer(ctx context.Context, performerID string) (*dto.MutationResponse, error)
}

// VoteDialog picks a performer and votes for it. Votes are not
// de-duplicated: each call to Vote sends a request.
type VoteDialog struct {
	api       Voter
	notifier  Notifier
	onSuccess func()

	mu         sync.Mutex
	performers []domain.Performer
	selected   *domain.Performer
}

// NewVoteDialog creates a dialog with no performer list loaded
func NewVoteDialog(api Voter, notifier Notifier) *VoteDialog {
	return &VoteDialog{api: api, notifier: orDiscard(notifier)}
}

// LoadPerformers fetches the performer list
func (d *VoteDialog) LoadPerformers(ctx context.Context) ([]domain.Performer, error) {
	performers, err := d.api.ListPerformers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list performers: %w", err)
	}
	d.mu.Lock()
	d.performers = performers
	d.mu.Unlock()
	return performers, nil
}

// Performers returns the loaded list
func (d *VoteDialog) Performers() []domain.Performer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.performers
}

// Select picks a performer from the loaded list
func (d *VoteDialog) Select(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.performers {
		if d.performers[i].ID == id {
			p := d.performers[i]
			d.selected = &p
			return nil
		}
	}
	return fmt.Errorf("select %q: %w", id, ErrUnknownPerformer)
}

// Deselect clears the selection
func (d *VoteDialog) Deselect() {
	d.mu.Lock()
	d.selected = nil
	d.mu.Unlock()
}

// Selected returns the picked performer, or nil
func (d *VoteDialog) Selected() *domain.Performer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// Vote casts a vote for the selected performer
func (d *VoteDialog) Vote(ctx context.Context) error {
	p := d.Selected()
	if p == nil {
		verr := &domain.ValidationError{}
		verr.Add("performer", "is required")
		return verr
	}
	return d.VoteFor(ctx, *p)
}

// VoteFor casts a vote for p without touching the selection list
func (d *VoteDialog) VoteFor(ctx context.Context, p domain.Performer) error {
	resp, err := d.api.VotePerformer(ctx, p.ID)
	if err != nil {
		d.notifier.Notify(errorNotice("Something went wrong voting performer. Please try again!"))
		return fmt.Errorf("vote %s: %w", p.ID, err)
	}
	if !resp.Success {
		d.notifier.Notify(errorNotice("Something went wrong voting performer. Please try again!"))
		return fmt.Errorf("vote %s: %w", p.ID, rejected(resp))
	}

	d.notifier.Notify(Notice{
		Kind:  NoticeSuccess,
		Title: "Success",
		Text:  p.DisplayName() + " voted successfully!",
	})
	if d.onSuccess != nil {
		d.onSuccess()
	}
	return nil
}
