package booking

import (
	"context"
	"strings"
	"testing"

	"github.com/wheelhouse-ai/wheelhouse/internal/agent"
	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

func validArgs() map[string]any {
	return map[string]any{
		"vehicle_id":     "xuv700",
		"customer_name":  "Asha Rao",
		"phone":          "+91 98765 43210",
		"city":           "Pune",
		"preferred_date": "2026-09-15",
	}
}

func collect(t *testing.T, ch <-chan *agent.ToolOutput) []*agent.ToolOutput {
	t.Helper()
	var out []*agent.ToolOutput
	for o := range ch {
		out = append(out, o)
	}
	return out
}

func TestExecuteStreamProgressThenConfirmation(t *testing.T) {
	tool := &Tool{Book: NewBook()}

	ch, err := tool.ExecuteStream(context.Background(), validArgs())
	if err != nil {
		t.Fatal(err)
	}
	outputs := collect(t, ch)
	if len(outputs) != 2 {
		t.Fatalf("outputs = %d, want 2", len(outputs))
	}
	if !strings.Contains(outputs[0].Text, "Reserving") {
		t.Errorf("interim = %q", outputs[0].Text)
	}

	final := outputs[1]
	if final.Status != models.ToolStatusSuccess {
		t.Errorf("final status = %q", final.Status)
	}
	confirmation, _ := final.Metadata["confirmation_id"].(string)
	if !strings.HasPrefix(confirmation, "TD-") {
		t.Errorf("confirmation id = %q", confirmation)
	}
	if !strings.Contains(final.Text, confirmation) {
		t.Errorf("final text %q does not mention %q", final.Text, confirmation)
	}
}

func TestExecuteStreamRecordsBooking(t *testing.T) {
	book := NewBook()
	tool := &Tool{Book: book}

	ch, err := tool.ExecuteStream(context.Background(), validArgs())
	if err != nil {
		t.Fatal(err)
	}
	collect(t, ch)

	bookings := book.All()
	if len(bookings) != 1 {
		t.Fatalf("bookings = %d, want 1", len(bookings))
	}
	bk := bookings[0]
	if bk.VehicleID != "xuv700" || bk.CustomerName != "Asha Rao" || bk.PreferredDate != "2026-09-15" {
		t.Errorf("booking = %+v", bk)
	}
	if bk.ConfirmationID == "" || bk.CreatedAt.IsZero() {
		t.Errorf("booking not stamped: %+v", bk)
	}
}

func TestExecuteStreamInvalidDate(t *testing.T) {
	tool := &Tool{Book: NewBook()}

	args := validArgs()
	args["preferred_date"] = "next tuesday"
	ch, err := tool.ExecuteStream(context.Background(), args)
	if err != nil {
		t.Fatal(err)
	}
	outputs := collect(t, ch)

	last := outputs[len(outputs)-1]
	if last.Status != models.ToolStatusFailure {
		t.Errorf("last status = %q, want failure", last.Status)
	}
	if len(tool.Book.All()) != 0 {
		t.Error("invalid booking recorded")
	}
}

func TestExecuteTakesLastOutput(t *testing.T) {
	tool := &Tool{Book: NewBook()}

	out, err := tool.Execute(context.Background(), validArgs())
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != models.ToolStatusSuccess || !strings.Contains(out.Text, "booked") {
		t.Errorf("output = %+v", out)
	}
}
