// Package convo drives the multi-turn conversation that fills a structured
// record. The session owns the turn history and the running candidate; the
// language understanding itself lives behind the Extractor interface.
package convo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-agents/internal/schema"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleSystem Role = "system"
)

// Turn is one exchange unit: user-supplied text or a system follow-up.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Extractor maps the accumulated turn history to a partial candidate record.
// It is stateless from the session's perspective: it receives the full
// history on every call. A returned error counts as an extraction failure
// for that turn and is recoverable until the failure budget is exhausted.
type Extractor interface {
	Extract(ctx context.Context, s schema.Schema, turns []Turn) (schema.Record, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, s schema.Schema, turns []Turn) (schema.Record, error)

func (f ExtractorFunc) Extract(ctx context.Context, s schema.Schema, turns []Turn) (schema.Record, error) {
	return f(ctx, s, turns)
}

type State string

const (
	StateAwaitingInput State = "awaiting-input"
	StateExtracting    State = "extracting"
	StateValidating    State = "validating"
	StateComplete      State = "complete"
	StateAborted       State = "aborted"
)

type AbortReason string

const (
	ReasonNone       AbortReason = ""
	ReasonTurnBudget AbortReason = "turn-budget-exceeded"
	ReasonCanceled   AbortReason = "canceled"
)

// ErrSessionDone is returned by Submit once the session reached a terminal
// state; the caller should start a new session.
var ErrSessionDone = errors.New("session already finished")

const (
	DefaultMaxTurns    = 20
	DefaultMaxFailures = 3
)

type Options struct {
	MaxTurns    int           // total user turns before aborting
	MaxFailures int           // extraction failures before aborting
	Timeout     time.Duration // per-call extraction timeout, 0 means none
	CancelWords []string      // user inputs treated as explicit abandonment
}

func (o Options) withDefaults() Options {
	if o.MaxTurns <= 0 {
		o.MaxTurns = DefaultMaxTurns
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = DefaultMaxFailures
	}
	if o.CancelWords == nil {
		o.CancelWords = []string{"cancel", "quit", "abort"}
	}
	return o
}

// Step is what one Submit call yields to the caller: either the session is
// still active and carries a follow-up prompt, or it terminated with a
// finalized record or an abort reason.
type Step struct {
	Active bool
	Prompt string
	Record schema.Record // set only on completion
	Reason AbortReason   // set only on abort
}

// Session is a single conversation filling one record. It is owned by one
// caller and is not safe for concurrent use.
type Session struct {
	target    schema.Schema
	extractor Extractor
	opts      Options

	state     State
	turns     []Turn
	candidate schema.Record
	userTurns int
	failures  int
	reason    AbortReason
}

func NewSession(target schema.Schema, extractor Extractor, opts Options) *Session {
	return &Session{
		target:    target,
		extractor: extractor,
		opts:      opts.withDefaults(),
		state:     StateAwaitingInput,
		candidate: schema.Record{},
	}
}

func (s *Session) State() State        { return s.state }
func (s *Session) Reason() AbortReason { return s.reason }

// Turns returns a copy of the transcript so far.
func (s *Session) Turns() []Turn {
	return append([]Turn{}, s.turns...)
}

// Candidate returns the current candidate record, possibly incomplete.
func (s *Session) Candidate() schema.Record {
	return s.candidate
}

// Cancel abandons the session. Safe to call in any state; terminal states
// are left untouched.
func (s *Session) Cancel() {
	if s.terminal() {
		return
	}
	s.abort(ReasonCanceled)
}

// Submit feeds one user turn through extract -> merge -> validate and
// reports how the conversation should continue.
func (s *Session) Submit(ctx context.Context, text string) (Step, error) {
	if s.terminal() {
		return Step{}, ErrSessionDone
	}

	text = strings.TrimSpace(text)
	if s.isCancelWord(text) {
		s.abort(ReasonCanceled)
		return Step{Reason: ReasonCanceled, Prompt: "Session canceled."}, nil
	}

	s.turns = append(s.turns, Turn{Role: RoleUser, Text: text})
	s.userTurns++
	if s.userTurns > s.opts.MaxTurns {
		s.abort(ReasonTurnBudget)
		return Step{Reason: ReasonTurnBudget, Prompt: "Turn limit reached, giving up."}, nil
	}

	s.state = StateExtracting
	extracted, err := s.extract(ctx)
	if err != nil {
		s.failures++
		if s.failures >= s.opts.MaxFailures {
			s.abort(ReasonTurnBudget)
			return Step{Reason: ReasonTurnBudget, Prompt: "Too many failed attempts, giving up."}, nil
		}
		prompt := "Sorry, I couldn't make sense of that. Could you rephrase?"
		s.systemTurn(prompt)
		s.state = StateAwaitingInput
		return Step{Active: true, Prompt: prompt}, nil
	}

	s.candidate = s.target.Merge(s.candidate, extracted)

	s.state = StateValidating
	res := s.target.Validate(s.candidate)
	if !res.Valid() {
		prompt := s.followUp(res)
		s.systemTurn(prompt)
		s.state = StateAwaitingInput
		return Step{Active: true, Prompt: prompt}, nil
	}

	record := s.target.Finalize(s.candidate)
	s.state = StateComplete
	return Step{Record: record, Prompt: "All required information has been collected."}, nil
}

func (s *Session) extract(ctx context.Context) (schema.Record, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	return s.extractor.Extract(ctx, s.target, s.Turns())
}

// followUp names the exact gaps so the next user turn can address them.
func (s *Session) followUp(res schema.Result) string {
	var parts []string
	if filled := s.filledFields(); len(filled) > 0 {
		parts = append(parts, fmt.Sprintf("I have the following information: %s.", strings.Join(filled, ", ")))
	}
	if len(res.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("Please provide: %s.", strings.Join(res.Missing, ", ")))
	}
	for _, name := range res.Malformed {
		field, ok := s.target.Field(name)
		if ok && field.Type == schema.FieldEnum {
			parts = append(parts, fmt.Sprintf("The value for %s is not valid. Please specify one of: %s.",
				name, strings.Join(field.Values, ", ")))
		} else {
			parts = append(parts, fmt.Sprintf("The value for %s is not valid, please restate it.", name))
		}
	}
	return strings.Join(parts, " ")
}

func (s *Session) filledFields() []string {
	var filled []string
	res := s.target.Validate(s.candidate)
	for _, f := range s.target.Fields {
		if contains(res.Missing, f.Name) || contains(res.Malformed, f.Name) {
			continue
		}
		if _, ok := s.candidate[f.Name]; ok {
			filled = append(filled, f.Name)
		}
	}
	return filled
}

func (s *Session) systemTurn(text string) {
	s.turns = append(s.turns, Turn{Role: RoleSystem, Text: text})
}

func (s *Session) abort(reason AbortReason) {
	s.state = StateAborted
	s.reason = reason
}

func (s *Session) terminal() bool {
	return s.state == StateComplete || s.state == StateAborted
}

func (s *Session) isCancelWord(text string) bool {
	for _, w := range s.opts.CancelWords {
		if strings.EqualFold(text, w) {
			return true
		}
	}
	return false
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}
