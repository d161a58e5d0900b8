// Package stream implements the provider streaming protocol: a typed
// event enumeration, the response tree those events build, and an
// assembler that folds an event sequence into progressively more
// complete response snapshots.
package stream

// EventKind identifies one protocol event. The enumeration is closed:
// an event kind outside this set is a protocol violation, not something
// to skip over.
type EventKind string

const (
	EventResponseCreated    EventKind = "response.created"
	EventResponseInProgress EventKind = "response.in_progress"
	EventResponseCompleted  EventKind = "response.completed"

	EventOutputItemAdded EventKind = "response.output_item.added"
	EventOutputItemDone  EventKind = "response.output_item.done"

	EventContentPartAdded EventKind = "response.content_part.added"
	EventContentPartDone  EventKind = "response.content_part.done"

	EventOutputTextDelta EventKind = "response.output_text.delta"
	EventOutputTextDone  EventKind = "response.output_text.done"

	EventFunctionCallArgumentsDelta EventKind = "response.function_call_arguments.delta"
	EventFunctionCallArgumentsDone  EventKind = "response.function_call_arguments.done"

	EventReasoningSummaryPartAdded EventKind = "response.reasoning_summary_part.added"
	EventReasoningSummaryPartDone  EventKind = "response.reasoning_summary_part.done"

	EventReasoningSummaryTextDelta EventKind = "response.reasoning_summary_text.delta"
	EventReasoningSummaryTextDone  EventKind = "response.reasoning_summary_text.done"
)

// ItemKind identifies the shape of one output item.
type ItemKind string

const (
	ItemMessage      ItemKind = "message"
	ItemFunctionCall ItemKind = "function_call"
	ItemReasoning    ItemKind = "reasoning"
)

// PartType identifies one content or summary part.
type PartType string

const (
	PartOutputText    PartType = "output_text"
	PartSummaryText   PartType = "summary_text"
	PartReasoningText PartType = "reasoning_text"
)

// Part is one text fragment within an item.
type Part struct {
	Type PartType `json:"type"`
	Text string   `json:"text"`
}

// OutputItem is one element of a response's output. Which fields are
// populated depends on Kind: a message carries Content, a function_call
// carries CallID/Name/Arguments, a reasoning item carries Summary and
// ReasoningContent.
type OutputItem struct {
	Kind ItemKind `json:"kind"`
	ID   string   `json:"id"`

	Content []Part `json:"content,omitempty"`

	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	Summary          []Part `json:"summary,omitempty"`
	ReasoningContent []Part `json:"reasoning_content,omitempty"`
}

// Clone returns a deep copy of the item.
func (it *OutputItem) Clone() *OutputItem {
	if it == nil {
		return nil
	}
	clone := *it
	clone.Content = append([]Part(nil), it.Content...)
	clone.Summary = append([]Part(nil), it.Summary...)
	clone.ReasoningContent = append([]Part(nil), it.ReasoningContent...)
	return &clone
}

// Response is the tree an event sequence assembles.
type Response struct {
	ID     string        `json:"id"`
	Output []*OutputItem `json:"output"`
}

// Clone returns a deep copy of the response.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	clone := &Response{ID: r.ID}
	if r.Output != nil {
		clone.Output = make([]*OutputItem, len(r.Output))
		for i, it := range r.Output {
			clone.Output[i] = it.Clone()
		}
	}
	return clone
}

// Event is one protocol event. Response-level events carry Response;
// item events carry Item and OutputIndex; part events additionally carry
// Part and ContentIndex (or SummaryIndex for reasoning summaries); delta
// events carry Delta, and their matching done events carry the
// authoritative full Text or Arguments.
type Event struct {
	Kind EventKind `json:"kind"`

	Response *Response   `json:"response,omitempty"`
	Item     *OutputItem `json:"item,omitempty"`
	Part     *Part       `json:"part,omitempty"`

	OutputIndex  int `json:"output_index"`
	ContentIndex int `json:"content_index"`
	SummaryIndex int `json:"summary_index"`

	Delta     string `json:"delta,omitempty"`
	Text      string `json:"text,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}
