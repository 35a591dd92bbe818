package dto

import (
	"strconv"
	"time"
)

// TicketImageSubfolder is the storage folder for ticket screenshots
const TicketImageSubfolder = "tickets"

// CreateSubscriptionRequest subscribes an email to venue notifications
type CreateSubscriptionRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	VenueID     string  `json:"venueId" validate:"required"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
}

// ImagePayload is an inline image upload
type ImagePayload struct {
	Base64    string `json:"base64" validate:"required,startswith=data:image/"`
	Subfolder string `json:"subfolder" validate:"required"`
	Filename  string `json:"filename" validate:"required"`
}

// NewTicketImage builds the payload for a ticket screenshot taken at now
func NewTicketImage(dataURI string, now time.Time) *ImagePayload {
	return &ImagePayload{
		Base64:    dataURI,
		Subfolder: TicketImageSubfolder,
		Filename:  TicketImageSubfolder + "-" + strconv.FormatInt(now.UnixMilli(), 10),
	}
}

// CreateTicketRequest files a support ticket. Base64Data is sent as null
// when no image is attached.
type CreateTicketRequest struct {
	FullName          string        `json:"fullName" validate:"required,min=6"`
	Email             string        `json:"email" validate:"required,email"`
	TicketTitle       string        `json:"ticketTitle" validate:"required,min=6"`
	TicketDescription string        `json:"ticketDescription" validate:"required,min=10"`
	EventID           *string       `json:"eventId,omitempty"`
	Base64Data        *ImagePayload `json:"base64Data"`
}

// MutationResponse is the envelope of every write endpoint
type MutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
