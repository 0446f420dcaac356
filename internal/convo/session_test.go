package convo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-agents/internal/schema"
)

// scriptedExtractor returns one canned result per call, in order.
type scriptedExtractor struct {
	results []schema.Record
	errs    []error
	calls   int
	turns   [][]Turn
}

func (e *scriptedExtractor) Extract(ctx context.Context, s schema.Schema, turns []Turn) (schema.Record, error) {
	idx := e.calls
	e.calls++
	e.turns = append(e.turns, turns)
	if idx < len(e.errs) && e.errs[idx] != nil {
		return nil, e.errs[idx]
	}
	if idx < len(e.results) {
		return e.results[idx], nil
	}
	return schema.Record{}, nil
}

func failingExtractor() Extractor {
	return ExtractorFunc(func(ctx context.Context, s schema.Schema, turns []Turn) (schema.Record, error) {
		return nil, errors.New("extraction unavailable")
	})
}

func TestBugReportTwoTurnFlow(t *testing.T) {
	ext := &scriptedExtractor{
		results: []schema.Record{
			{"project_affected": "Checkout", "error_message": "500 on submit"},
			{"steps_to_reproduce": []string{"open cart", "press submit"}},
		},
	}
	sess := NewSession(schema.BugReport(), ext, Options{})

	step, err := sess.Submit(context.Background(), "Checkout breaks with a 500 when I submit")
	require.NoError(t, err)
	assert.True(t, step.Active)
	assert.Contains(t, step.Prompt, "steps_to_reproduce")
	assert.Contains(t, step.Prompt, "project_affected", "follow-up acknowledges filled fields")
	assert.Equal(t, StateAwaitingInput, sess.State())

	step, err = sess.Submit(context.Background(), "Open the cart then press submit")
	require.NoError(t, err)
	assert.False(t, step.Active)
	require.NotNil(t, step.Record)
	assert.Equal(t, StateComplete, sess.State())
	assert.Equal(t, "Medium", step.Record.Text("severity"), "optional severity defaults at completion")
	assert.Equal(t, "Checkout", step.Record.Text("project_affected"))
}

func TestStandupSingleTurnCompletion(t *testing.T) {
	ext := &scriptedExtractor{
		results: []schema.Record{
			{"yesterday": []string{"Shipped login"}, "today": []string{"Code review"}},
		},
	}
	sess := NewSession(schema.DailyStatus(), ext, Options{})

	step, err := sess.Submit(context.Background(), "Yesterday I shipped login, today code review, no blockers")
	require.NoError(t, err)
	assert.False(t, step.Active)
	require.NotNil(t, step.Record)
	assert.Equal(t, []string{"No blockers"}, step.Record.List("blockers"))
}

func TestMergeMonotonicAcrossTurns(t *testing.T) {
	// Field set on turn 1 and omitted on turn 2 must survive.
	ext := &scriptedExtractor{
		results: []schema.Record{
			{"project_affected": "Checkout"},
			{"error_message": "500 on submit"},
		},
	}
	sess := NewSession(schema.BugReport(), ext, Options{})

	_, err := sess.Submit(context.Background(), "Checkout is broken")
	require.NoError(t, err)
	_, err = sess.Submit(context.Background(), "It returns a 500")
	require.NoError(t, err)

	assert.Equal(t, "Checkout", sess.Candidate().Text("project_affected"))
	assert.Equal(t, "500 on submit", sess.Candidate().Text("error_message"))
}

func TestExtractorSeesFullHistory(t *testing.T) {
	ext := &scriptedExtractor{}
	sess := NewSession(schema.BugReport(), ext, Options{})

	_, err := sess.Submit(context.Background(), "first")
	require.NoError(t, err)
	_, err = sess.Submit(context.Background(), "second")
	require.NoError(t, err)

	require.Len(t, ext.turns, 2)
	assert.Len(t, ext.turns[0], 1)
	// second call: user, system follow-up, user
	require.Len(t, ext.turns[1], 3)
	assert.Equal(t, RoleSystem, ext.turns[1][1].Role)
	assert.Equal(t, "second", ext.turns[1][2].Text)
}

func TestExtractionFailureIsRecovered(t *testing.T) {
	ext := &scriptedExtractor{
		errs: []error{errors.New("rate limited"), nil},
		results: []schema.Record{
			nil,
			{"yesterday": []string{"a"}, "today": []string{"b"}},
		},
	}
	sess := NewSession(schema.DailyStatus(), ext, Options{MaxFailures: 3})

	step, err := sess.Submit(context.Background(), "standup time")
	require.NoError(t, err)
	assert.True(t, step.Active)
	assert.Contains(t, step.Prompt, "rephrase")
	assert.Equal(t, StateAwaitingInput, sess.State())

	step, err = sess.Submit(context.Background(), "yesterday a, today b")
	require.NoError(t, err)
	assert.False(t, step.Active)
	assert.NotNil(t, step.Record)
}

func TestFailureBudgetAbortsExactlyAtLimit(t *testing.T) {
	sess := NewSession(schema.DailyStatus(), failingExtractor(), Options{MaxFailures: 3})

	for i := 0; i < 2; i++ {
		step, err := sess.Submit(context.Background(), "try again")
		require.NoError(t, err)
		assert.True(t, step.Active, "turn %d should still be active", i+1)
	}

	step, err := sess.Submit(context.Background(), "try again")
	require.NoError(t, err)
	assert.False(t, step.Active)
	assert.Equal(t, ReasonTurnBudget, step.Reason)
	assert.Equal(t, StateAborted, sess.State())

	_, err = sess.Submit(context.Background(), "one more")
	assert.ErrorIs(t, err, ErrSessionDone)
}

func TestTurnBudgetAborts(t *testing.T) {
	ext := &scriptedExtractor{}
	sess := NewSession(schema.BugReport(), ext, Options{MaxTurns: 2, MaxFailures: 10})

	for i := 0; i < 2; i++ {
		step, err := sess.Submit(context.Background(), "vague input")
		require.NoError(t, err)
		assert.True(t, step.Active)
	}

	step, err := sess.Submit(context.Background(), "still vague")
	require.NoError(t, err)
	assert.Equal(t, ReasonTurnBudget, step.Reason)
	assert.Equal(t, StateAborted, sess.State())
}

func TestCancelWord(t *testing.T) {
	sess := NewSession(schema.BugReport(), &scriptedExtractor{}, Options{})

	step, err := sess.Submit(context.Background(), "cancel")
	require.NoError(t, err)
	assert.False(t, step.Active)
	assert.Equal(t, ReasonCanceled, step.Reason)
	assert.Equal(t, StateAborted, sess.State())
}

func TestCancelMethod(t *testing.T) {
	sess := NewSession(schema.BugReport(), &scriptedExtractor{}, Options{})
	sess.Cancel()
	assert.Equal(t, StateAborted, sess.State())
	assert.Equal(t, ReasonCanceled, sess.Reason())

	_, err := sess.Submit(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrSessionDone)
}

func TestCancelDistinctFromBudget(t *testing.T) {
	canceled := NewSession(schema.BugReport(), failingExtractor(), Options{MaxFailures: 1})
	step, err := canceled.Submit(context.Background(), "whatever")
	require.NoError(t, err)
	assert.Equal(t, ReasonTurnBudget, step.Reason)

	abandoned := NewSession(schema.BugReport(), failingExtractor(), Options{MaxFailures: 1})
	abandoned.Cancel()
	assert.Equal(t, ReasonCanceled, abandoned.Reason())
	assert.NotEqual(t, step.Reason, abandoned.Reason())
}

func TestNeverCompletesIncomplete(t *testing.T) {
	// Extractor always returns a partial record; the session must keep
	// re-prompting rather than report success.
	ext := ExtractorFunc(func(ctx context.Context, s schema.Schema, turns []Turn) (schema.Record, error) {
		return schema.Record{"project_affected": "Checkout"}, nil
	})
	sess := NewSession(schema.BugReport(), ext, Options{MaxTurns: 5})

	for i := 0; i < 5; i++ {
		step, err := sess.Submit(context.Background(), "more text")
		require.NoError(t, err)
		assert.Nil(t, step.Record)
	}
}

func TestBlankListDoesNotComplete(t *testing.T) {
	// A required list extracted as a lone empty string must read as absent,
	// not satisfy the field and complete the session.
	ext := &scriptedExtractor{
		results: []schema.Record{
			{
				"project_affected":   "Checkout",
				"error_message":      "500 on submit",
				"steps_to_reproduce": []any{""},
			},
			{"steps_to_reproduce": []any{"open cart", "press submit"}},
		},
	}
	sess := NewSession(schema.BugReport(), ext, Options{})

	step, err := sess.Submit(context.Background(), "Checkout breaks with a 500")
	require.NoError(t, err)
	assert.True(t, step.Active)
	assert.Nil(t, step.Record)
	assert.Contains(t, step.Prompt, "steps_to_reproduce")
	assert.Equal(t, StateAwaitingInput, sess.State())

	step, err = sess.Submit(context.Background(), "Open the cart then press submit")
	require.NoError(t, err)
	require.NotNil(t, step.Record)
	assert.Equal(t, []string{"open cart", "press submit"}, step.Record.List("steps_to_reproduce"))
}

func TestEnumMalformedFollowUp(t *testing.T) {
	ext := &scriptedExtractor{
		results: []schema.Record{{
			"project_affected":   "Checkout",
			"error_message":      "500 on submit",
			"steps_to_reproduce": []string{"open cart"},
			"severity":           "Catastrophic",
		}},
	}
	sess := NewSession(schema.BugReport(), ext, Options{})

	step, err := sess.Submit(context.Background(), "catastrophic bug in checkout")
	require.NoError(t, err)
	assert.True(t, step.Active)
	assert.Contains(t, step.Prompt, "severity")
	assert.Contains(t, step.Prompt, "Low, Medium, High")
}
