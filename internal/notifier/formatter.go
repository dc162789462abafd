package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/slotwatch/internal/models"
)

// Message is one formatted notification ready for any channel.
type Message struct {
	Title        string
	Body         string
	Appointments []models.Appointment
	CreatedAt    time.Time
}

// Formatter renders notification-worthy appointments into channel-agnostic
// text. Channels add their own framing (embeds, mentions) on top.
type Formatter struct{}

// NewFormatter creates a formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format builds the message for a batch of available appointments.
func (f *Formatter) Format(appointments []models.Appointment) *Message {
	title := "Exam slot available"
	if len(appointments) > 1 {
		title = fmt.Sprintf("%d exam slots available", len(appointments))
	}

	var body strings.Builder
	for i, app := range appointments {
		if i > 0 {
			body.WriteString("\n")
		}
		body.WriteString(formatLine(app))
	}

	return &Message{
		Title:        title,
		Body:         body.String(),
		Appointments: appointments,
		CreatedAt:    time.Now(),
	}
}

func formatLine(app models.Appointment) string {
	parts := []string{app.Date}
	if app.TimeRange != "" {
		parts = append(parts, app.TimeRange)
	}
	if app.Location != "" {
		parts = append(parts, app.Location)
	}
	if app.Category != "" {
		parts = append(parts, app.Category)
	}
	if app.Price != "" {
		parts = append(parts, app.Price)
	}
	line := strings.Join(parts, " | ")
	if app.RegistrationRef != "" {
		line += "\n  register: " + app.RegistrationRef
	}
	return line
}
