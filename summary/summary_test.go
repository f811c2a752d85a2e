package summary

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"node.town/triage/llm"
)

type fakeModel struct {
	reply string
	err   error
	reqs  []*llm.ChatCompletionRequest
}

func (f *fakeModel) ChatCompletion(_ context.Context, req *llm.ChatCompletionRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	return f.reply, f.err
}

type recorder struct {
	events  []Event
	failOn  int
	sendErr error
}

func (r *recorder) Send(v any) error {
	if r.sendErr != nil && len(r.events) == r.failOn {
		return r.sendErr
	}
	r.events = append(r.events, v.(Event))
	return nil
}

func (r *recorder) types() []string {
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func TestDispatchFollowupUsesFollowupTemplate(t *testing.T) {
	model := &fakeModel{reply: "Geachte collega,\n..."}
	d := NewDispatcher(model, log.New(io.Discard))
	rec := &recorder{}

	err := d.DispatchRequest(context.Background(), rec, "followup", "[10:00:00] Speaker 0: hallo")
	require.NoError(t, err)

	assert.Equal(t, []string{"conversation_summary_start", "conversation_summary_complete"}, rec.types())
	assert.Equal(t, "Geachte collega,\n...", rec.events[1].Summary)

	require.Len(t, model.reqs, 1)
	req := model.reqs[0]
	assert.Equal(t, "followup", req.Label)
	assert.Contains(t, req.SystemPrompt, "overdrachtsbericht")
	assert.NotContains(t, req.SystemPrompt, "SOAP")
	assert.Contains(t, req.UserMessages[0], "[10:00:00] Speaker 0: hallo")
	assert.NotContains(t, req.UserMessages[0], "REDEN VAN CONTACT")
}

func TestDispatchDefaultsToReport(t *testing.T) {
	model := &fakeModel{reply: "verslag"}
	d := NewDispatcher(model, log.New(io.Discard))
	rec := &recorder{}

	require.NoError(t, d.DispatchRequest(context.Background(), rec, "", "transcript"))
	assert.Contains(t, model.reqs[0].SystemPrompt, "SOAP")
	assert.Contains(t, model.reqs[0].UserMessages[0], "REDEN VAN CONTACT")
}

func TestDispatchGenerationFailure(t *testing.T) {
	model := &fakeModel{err: errors.New("rate limited")}
	d := NewDispatcher(model, log.New(io.Discard))
	rec := &recorder{}

	require.NoError(t, d.Dispatch(context.Background(), rec, KindReport, "t"))
	assert.Equal(t, []string{"conversation_summary_start", "conversation_summary_error"}, rec.types())
	assert.Contains(t, rec.events[1].Error, "rate limited")
}

func TestDispatchEmptyOutputIsError(t *testing.T) {
	d := NewDispatcher(&fakeModel{reply: "  \n"}, log.New(io.Discard))
	rec := &recorder{}

	require.NoError(t, d.Dispatch(context.Background(), rec, KindDossier, "dossier"))
	assert.Equal(t, []string{"ecd_summary_start", "ecd_summary_error"}, rec.types())
}

func TestDispatchUnknownType(t *testing.T) {
	model := &fakeModel{reply: "x"}
	d := NewDispatcher(model, log.New(io.Discard))
	rec := &recorder{}

	require.NoError(t, d.DispatchRequest(context.Background(), rec, "poem", "t"))
	assert.Equal(t, []string{"conversation_summary_start", "conversation_summary_error"}, rec.types())
	assert.Empty(t, model.reqs)
}

func TestDispatchReturnsDeliveryFailure(t *testing.T) {
	gone := errors.New("client gone")
	model := &fakeModel{reply: "x"}
	d := NewDispatcher(model, log.New(io.Discard))
	rec := &recorder{failOn: 0, sendErr: gone}

	err := d.Dispatch(context.Background(), rec, KindReport, "t")
	assert.ErrorIs(t, err, gone)
	assert.Empty(t, model.reqs, "no generation after a failed start event")
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" FollowUp ")
	require.NoError(t, err)
	assert.Equal(t, KindFollowup, k)

	_, err = ParseKind("ecd")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
