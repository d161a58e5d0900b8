// Package booking implements the book_test_drive tool over an
// in-memory booking book. It is the one streaming tool in the default
// registry: it reports progress while the slot is being reserved, then
// the confirmation.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wheelhouse-ai/wheelhouse/internal/agent"
)

// Booking is one confirmed test drive.
type Booking struct {
	ConfirmationID string    `json:"confirmation_id"`
	VehicleID      string    `json:"vehicle_id"`
	CustomerName   string    `json:"customer_name"`
	Phone          string    `json:"phone"`
	City           string    `json:"city"`
	PreferredDate  string    `json:"preferred_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// Book stores confirmed bookings in memory.
type Book struct {
	mu       sync.Mutex
	bookings []Booking
}

// NewBook creates an empty booking book.
func NewBook() *Book {
	return &Book{}
}

// Add records a booking and returns its confirmation id.
func (b *Book) Add(bk Booking) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	bk.ConfirmationID = "TD-" + uuid.NewString()[:8]
	bk.CreatedAt = time.Now().UTC()
	b.bookings = append(b.bookings, bk)
	return bk.ConfirmationID
}

// All returns a copy of the recorded bookings.
func (b *Book) All() []Booking {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Booking, len(b.bookings))
	copy(out, b.bookings)
	return out
}

// Tool implements book_test_drive as a streaming tool.
type Tool struct {
	Book *Book
}

func (t *Tool) Name() string { return "book_test_drive" }

func (t *Tool) Description() string {
	return "Book a test drive for a vehicle. Needs the vehicle id, customer name, phone number, city, and a preferred date (YYYY-MM-DD)."
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"vehicle_id": {"type": "string"},
			"customer_name": {"type": "string", "minLength": 1},
			"phone": {"type": "string", "pattern": "^[0-9+][0-9 -]{7,14}$"},
			"city": {"type": "string", "minLength": 1},
			"preferred_date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"}
		},
		"required": ["vehicle_id", "customer_name", "phone", "preferred_date"]
	}`)
}

// Execute satisfies the plain tool contract; the executor prefers
// ExecuteStream.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (*agent.ToolOutput, error) {
	ch, err := t.ExecuteStream(ctx, args)
	if err != nil {
		return nil, err
	}
	var last *agent.ToolOutput
	for o := range ch {
		last = o
	}
	return last, nil
}

// ExecuteStream yields an interim progress output while the slot is
// reserved, then the confirmation.
func (t *Tool) ExecuteStream(ctx context.Context, args map[string]any) (<-chan *agent.ToolOutput, error) {
	out := make(chan *agent.ToolOutput)
	go func() {
		defer close(out)

		vehicleID, _ := args["vehicle_id"].(string)
		name, _ := args["customer_name"].(string)
		phone, _ := args["phone"].(string)
		city, _ := args["city"].(string)
		date, _ := args["preferred_date"].(string)

		out <- agent.Success(fmt.Sprintf("Reserving a test drive slot for %s on %s...", vehicleID, date))

		if _, err := time.Parse("2006-01-02", date); err != nil {
			out <- agent.Failure(fmt.Sprintf("Invalid preferred_date %q, expected YYYY-MM-DD.", date))
			return
		}

		confirmation := t.Book.Add(Booking{
			VehicleID:     vehicleID,
			CustomerName:  name,
			Phone:         phone,
			City:          city,
			PreferredDate: date,
		})

		final := agent.Success(fmt.Sprintf(
			"Test drive booked for %s on %s. Confirmation id: %s. Our team will call %s to confirm the showroom and time.",
			vehicleID, date, confirmation, phone))
		final.Metadata = map[string]any{"confirmation_id": confirmation}
		out <- final
	}()
	return out, nil
}
