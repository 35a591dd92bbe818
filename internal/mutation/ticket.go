package mutation

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/prohmpiriya/nejat-client/internal/domain"
	"github.com/prohmpiriya/nejat-client/internal/dto"
)

// MaxImageSize bounds a ticket attachment
const MaxImageSize = 5 << 20

// Ticketer files tickets and lists the events they may refer to
type Ticketer interface {
	CreateTicket(ctx context.Context, req *dto.CreateTicketRequest) (*dto.MutationResponse, error)
	ListTicketEvents(ctx context.Context) ([]domain.TicketEvent, error)
}

// TicketValues are the ticket form inputs
type TicketValues struct {
	FullName    string
	Email       string
	Title       string
	Description string
	// EventID is optional
	EventID string
}

// Image is an attached screenshot
type Image struct {
	MIME    string
	Size    int
	DataURI string
}

// NewImage reads r and checks that it holds an image
func NewImage(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%s: %w", mt.String(), ErrNotImage)
	}

	return &Image{
		MIME:    mt.String(),
		Size:    len(data),
		DataURI: "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

// TicketForm files a support ticket with an optional screenshot
type TicketForm struct {
	api       Ticketer
	notifier  Notifier
	now       func() time.Time
	onSuccess func()

	mu     sync.Mutex
	values TicketValues
	image  *Image
	events []domain.TicketEvent
}

// NewTicketForm creates an empty ticket form
func NewTicketForm(api Ticketer, notifier Notifier) *TicketForm {
	return &TicketForm{api: api, notifier: orDiscard(notifier), now: time.Now}
}

// Set replaces the text inputs, keeping the image
func (f *TicketForm) Set(v TicketValues) {
	f.mu.Lock()
	f.values = v
	f.mu.Unlock()
}

// Values returns the text inputs
func (f *TicketForm) Values() TicketValues {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// AttachImage reads and attaches a screenshot, replacing any previous one
func (f *TicketForm) AttachImage(r io.Reader) error {
	img, err := NewImage(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.image = img
	f.mu.Unlock()
	return nil
}

// AttachImageFile attaches the image at path
func (f *TicketForm) AttachImageFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer file.Close()
	return f.AttachImage(file)
}

// RemoveImage drops the attachment
func (f *TicketForm) RemoveImage() {
	f.mu.Lock()
	f.image = nil
	f.mu.Unlock()
}

// Image returns the attachment, or nil
func (f *TicketForm) Image() *Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.image
}

// Reset clears the inputs and the attachment
func (f *TicketForm) Reset() {
	f.mu.Lock()
	f.values = TicketValues{}
	f.image = nil
	f.mu.Unlock()
}

// LoadEvents fetches the selectable events
func (f *TicketForm) LoadEvents(ctx context.Context) ([]domain.TicketEvent, error) {
	events, err := f.api.ListTicketEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ticket events: %w", err)
	}
	f.mu.Lock()
	f.events = events
	f.mu.Unlock()
	return events, nil
}

// Events returns the last loaded selectable events
func (f *TicketForm) Events() []domain.TicketEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events
}

// Request builds and validates the request
func (f *TicketForm) Request() (*dto.CreateTicketRequest, error) {
	f.mu.Lock()
	v, img := f.values, f.image
	f.mu.Unlock()

	req := &dto.CreateTicketRequest{
		FullName:          strings.TrimSpace(v.FullName),
		Email:             strings.TrimSpace(v.Email),
		TicketTitle:       strings.TrimSpace(v.Title),
		TicketDescription: strings.TrimSpace(v.Description),
	}
	if id := strings.TrimSpace(v.EventID); id != "" {
		req.EventID = &id
	}
	if img != nil {
		req.Base64Data = dto.NewTicketImage(img.DataURI, f.now())
	}

	if err := domain.Validate(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Submit validates and sends the ticket. On success the form is reset.
func (f *TicketForm) Submit(ctx context.Context) error {
	req, err := f.Request()
	if err != nil {
		return err
	}

	resp, err := f.api.CreateTicket(ctx, req)
	if err != nil {
		f.notifier.Notify(errorNotice(genericError))
		return fmt.Errorf("create ticket: %w", err)
	}
	if !resp.Success {
		f.notifier.Notify(errorNotice(genericError))
		return fmt.Errorf("create ticket: %w", rejected(resp))
	}

	f.notifier.Notify(Notice{
		Kind:  NoticeSuccess,
		Title: "Success",
		Text:  "Successfully created ticket, we will contact you ASAP.",
	})
	f.Reset()
	if f.onSuccess != nil {
		f.onSuccess()
	}
	return nil
}
