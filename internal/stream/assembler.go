package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEvent marks an event kind outside the protocol
	// enumeration. Skipping such an event would produce a plausible but
	// truncated message, so it aborts the round instead.
	ErrUnknownEvent = errors.New("unknown stream event kind")

	// ErrMalformedEvent marks an event that addresses a slot the
	// response tree does not have, or arrives before the tree exists.
	ErrMalformedEvent = errors.New("malformed stream event")

	// ErrNoResponse is returned when a stream ended without ever
	// carrying a response snapshot.
	ErrNoResponse = errors.New("stream carried no response")
)

// Assembler folds an ordered event sequence into a response tree.
//
// Events must be applied exactly once, in receipt order; there is no
// reordering buffer. The raw event log is retained for diagnostics.
type Assembler struct {
	resp   *Response
	events []Event
}

// NewAssembler returns an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Events returns the raw event log in receipt order.
func (a *Assembler) Events() []Event {
	return a.events
}

// Response returns the current response tree snapshot. It fails if the
// stream never produced one, which callers treat as a missing terminal
// response rather than an empty message.
func (a *Assembler) Response() (*Response, error) {
	if a.resp == nil {
		return nil, ErrNoResponse
	}
	return a.resp.Clone(), nil
}

// AddEvent applies one event and returns a deep-cloned snapshot of the
// resulting tree. Unknown kinds and out-of-range slot addresses are
// errors; the assembler never silently drops data.
func (a *Assembler) AddEvent(ev Event) (*Response, error) {
	a.events = append(a.events, ev)

	switch ev.Kind {
	case EventResponseCreated, EventResponseInProgress, EventResponseCompleted:
		// Full-tree re-sync points. Created/in_progress seed the tree,
		// completed carries the authoritative terminal form.
		if ev.Response == nil {
			return nil, fmt.Errorf("%w: %s without response payload", ErrMalformedEvent, ev.Kind)
		}
		a.resp = ev.Response.Clone()

	case EventOutputItemAdded:
		if ev.Item == nil {
			return nil, fmt.Errorf("%w: %s without item payload", ErrMalformedEvent, ev.Kind)
		}
		if a.resp == nil {
			return nil, fmt.Errorf("%w: %s before response created", ErrMalformedEvent, ev.Kind)
		}
		if ev.OutputIndex != len(a.resp.Output) {
			return nil, fmt.Errorf("%w: %s at output index %d, have %d items",
				ErrMalformedEvent, ev.Kind, ev.OutputIndex, len(a.resp.Output))
		}
		a.resp.Output = append(a.resp.Output, ev.Item.Clone())

	case EventOutputItemDone:
		if ev.Item == nil {
			return nil, fmt.Errorf("%w: %s without item payload", ErrMalformedEvent, ev.Kind)
		}
		item, err := a.item(ev)
		if err != nil {
			return nil, err
		}
		*item = *ev.Item.Clone()

	case EventContentPartAdded:
		item, err := a.item(ev)
		if err != nil {
			return nil, err
		}
		part := Part{Type: PartOutputText}
		if ev.Part != nil {
			part = *ev.Part
		}
		if ev.ContentIndex != len(item.Content) {
			return nil, fmt.Errorf("%w: %s at content index %d, have %d parts",
				ErrMalformedEvent, ev.Kind, ev.ContentIndex, len(item.Content))
		}
		item.Content = append(item.Content, part)

	case EventContentPartDone:
		if ev.Part == nil {
			return nil, fmt.Errorf("%w: %s without part payload", ErrMalformedEvent, ev.Kind)
		}
		part, err := a.contentPart(ev)
		if err != nil {
			return nil, err
		}
		*part = *ev.Part

	case EventOutputTextDelta:
		part, err := a.contentPart(ev)
		if err != nil {
			return nil, err
		}
		part.Text += ev.Delta

	case EventOutputTextDone:
		// The done event carries the full text, guarding against
		// delta-accumulation drift.
		part, err := a.contentPart(ev)
		if err != nil {
			return nil, err
		}
		part.Text = ev.Text

	case EventFunctionCallArgumentsDelta:
		item, err := a.item(ev)
		if err != nil {
			return nil, err
		}
		item.Arguments += ev.Delta

	case EventFunctionCallArgumentsDone:
		item, err := a.item(ev)
		if err != nil {
			return nil, err
		}
		item.Arguments = ev.Arguments

	case EventReasoningSummaryPartAdded:
		item, err := a.item(ev)
		if err != nil {
			return nil, err
		}
		part := Part{Type: PartSummaryText}
		if ev.Part != nil {
			part = *ev.Part
		}
		if ev.SummaryIndex != len(item.Summary) {
			return nil, fmt.Errorf("%w: %s at summary index %d, have %d parts",
				ErrMalformedEvent, ev.Kind, ev.SummaryIndex, len(item.Summary))
		}
		item.Summary = append(item.Summary, part)

	case EventReasoningSummaryPartDone:
		if ev.Part == nil {
			return nil, fmt.Errorf("%w: %s without part payload", ErrMalformedEvent, ev.Kind)
		}
		part, err := a.summaryPart(ev)
		if err != nil {
			return nil, err
		}
		*part = *ev.Part

	case EventReasoningSummaryTextDelta:
		part, err := a.summaryPart(ev)
		if err != nil {
			return nil, err
		}
		part.Text += ev.Delta

	case EventReasoningSummaryTextDone:
		part, err := a.summaryPart(ev)
		if err != nil {
			return nil, err
		}
		part.Text = ev.Text

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}

	return a.resp.Clone(), nil
}

func (a *Assembler) item(ev Event) (*OutputItem, error) {
	if a.resp == nil {
		return nil, fmt.Errorf("%w: %s before response created", ErrMalformedEvent, ev.Kind)
	}
	if ev.OutputIndex < 0 || ev.OutputIndex >= len(a.resp.Output) {
		return nil, fmt.Errorf("%w: %s at output index %d, have %d items",
			ErrMalformedEvent, ev.Kind, ev.OutputIndex, len(a.resp.Output))
	}
	return a.resp.Output[ev.OutputIndex], nil
}

func (a *Assembler) contentPart(ev Event) (*Part, error) {
	item, err := a.item(ev)
	if err != nil {
		return nil, err
	}
	if ev.ContentIndex < 0 || ev.ContentIndex >= len(item.Content) {
		return nil, fmt.Errorf("%w: %s at content index %d, have %d parts",
			ErrMalformedEvent, ev.Kind, ev.ContentIndex, len(item.Content))
	}
	return &item.Content[ev.ContentIndex], nil
}

func (a *Assembler) summaryPart(ev Event) (*Part, error) {
	item, err := a.item(ev)
	if err != nil {
		return nil, err
	}
	if ev.SummaryIndex < 0 || ev.SummaryIndex >= len(item.Summary) {
		return nil, fmt.Errorf("%w: %s at summary index %d, have %d parts",
			ErrMalformedEvent, ev.Kind, ev.SummaryIndex, len(item.Summary))
	}
	return &item.Summary[ev.SummaryIndex], nil
}
