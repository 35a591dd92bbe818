package mutation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/internal/dto"
)

// Subscriber creates venue subscriptions
type Subscriber interface {
	CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.MutationResponse, error)
}

// SubscriptionValues are the subscription form inputs
type SubscriptionValues struct {
	Email        string
	Phone        string
	IncludePhone bool
}

// SubscriptionForm subscribes an email to one venue's events
type SubscriptionForm struct {
	api      Subscriber
	notifier Notifier
	venueID  string

	mu     sync.Mutex
	values SubscriptionValues
}

// NewSubscriptionForm creates an empty form for venueID
func NewSubscriptionForm(api Subscriber, venueID string, notifier Notifier) *SubscriptionForm {
	return &SubscriptionForm{api: api, venueID: venueID, notifier: orDiscard(notifier)}
}

// Set replaces the form inputs
func (f *SubscriptionForm) Set(v SubscriptionValues) {
	f.mu.Lock()
	f.values = v
	f.mu.Unlock()
}

// Values returns the form inputs
func (f *SubscriptionForm) Values() SubscriptionValues {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// Reset clears the form
func (f *SubscriptionForm) Reset() {
	f.Set(SubscriptionValues{})
}

// Request builds and validates the request. The phone number is only
// included when IncludePhone is set.
func (f *SubscriptionForm) Request() (*dto.CreateSubscriptionRequest, error) {
	v := f.Values()

	req := &dto.CreateSubscriptionRequest{
		Email:   strings.TrimSpace(v.Email),
		VenueID: f.venueID,
	}
	if v.IncludePhone {
		phone := strings.TrimSpace(v.Phone)
		req.PhoneNumber = &phone
	}

	if err := domain.Validate(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Submit validates and sends the form. Invalid input returns a
// *domain.ValidationError without a request.
func (f *SubscriptionForm) Submit(ctx context.Context) error {
	req, err := f.Request()
	if err != nil {
		return err
	}

	resp, err := f.api.CreateSubscription(ctx, req)
	if err != nil {
		f.notifier.Notify(errorNotice(genericError))
		return fmt.Errorf("create subscription: %w", err)
	}
	if !resp.Success {
		f.notifier.Notify(errorNotice(genericError))
		return fmt.Errorf("create subscription: %w", rejected(resp))
	}

	f.notifier.Notify(Notice{
		Kind:  NoticeSuccess,
		Title: "Subscription Successful",
		Text:  "You will be notified about future events",
	})
	f.Reset()
	return nil
}

func rejected(resp *dto.MutationResponse) error {
	if resp.Message != "" {
		return fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	return ErrRejected
}
