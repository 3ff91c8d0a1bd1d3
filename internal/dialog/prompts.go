package dialog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"courierbot/internal/domain"
	"courierbot/internal/models"
)

// PromptHandler validates raw turn input in two phases: Parse is pure,
// Verify may perform I/O (a store lookup) before accepting. A rejection in
// either phase produces a corrective message and a reprompt, never an error
// that escapes the turn.
type PromptHandler interface {
	Parse(input string, pending *models.PendingPrompt) (interface{}, error)
	Verify(ctx context.Context, value interface{}) (interface{}, error)
	RetryMessage(err error) string
}

var (
	errEmptyInput      = errors.New("empty input")
	errNotANumber      = errors.New("not a number")
	errNoChoiceMatch   = errors.New("no matching choice")
	errNoTimeCandidate = errors.New("no time recognized")
	errTimeInPast      = errors.New("time is in the past")
	errCustomerNumber  = errors.New("Customer Number doesn't exist")
	errInvalidEmail    = errors.New("Invalid Email address")
)

// TextPrompt accepts any non-empty string.
type TextPrompt struct{}

func (TextPrompt) Parse(input string, _ *models.PendingPrompt) (interface{}, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errEmptyInput
	}
	return input, nil
}

func (TextPrompt) Verify(_ context.Context, value interface{}) (interface{}, error) {
	return value, nil
}

func (TextPrompt) RetryMessage(error) string {
	return "Please enter a value."
}

// NumberPrompt accepts a numeric literal.
type NumberPrompt struct{}

func (NumberPrompt) Parse(input string, _ *models.PendingPrompt) (interface{}, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return nil, errNotANumber
	}
	return n, nil
}

func (NumberPrompt) Verify(_ context.Context, value interface{}) (interface{}, error) {
	return value, nil
}

func (NumberPrompt) RetryMessage(error) string {
	return "Please enter a number."
}

// ChoicePrompt accepts one of the offered labels, case-insensitively, and
// yields the canonical label. Unmatched input reprompts instead of stalling
// the turn.
type ChoicePrompt struct{}

func (ChoicePrompt) Parse(input string, pending *models.PendingPrompt) (interface{}, error) {
	input = strings.TrimSpace(input)
	for _, choice := range pending.Choices {
		if strings.EqualFold(input, choice) {
			return choice, nil
		}
	}
	return nil, errNoChoiceMatch
}

func (ChoicePrompt) Verify(_ context.Context, value interface{}) (interface{}, error) {
	return value, nil
}

func (ChoicePrompt) RetryMessage(error) string {
	return "Sorry, I didn't understand that. Please pick one of the options."
}

// DateTimePrompt accepts a natural-language time phrase that resolves to at
// least one candidate whose earliest instant is strictly in the future. The
// accepted value is the full candidate list, ordered ascending; the waiting
// step decides which candidate to keep.
type DateTimePrompt struct {
	Resolver domain.TimeResolver
	Now      func() time.Time
}

func (p DateTimePrompt) Parse(input string, _ *models.PendingPrompt) (interface{}, error) {
	candidates := p.Resolver.Resolve(input, p.now())
	if len(candidates) == 0 {
		return nil, errNoTimeCandidate
	}
	return candidates, nil
}

func (p DateTimePrompt) Verify(_ context.Context, value interface{}) (interface{}, error) {
	candidates := value.([]models.TimeCandidate)
	if !candidates[0].When.After(p.now()) {
		return nil, errTimeInPast
	}
	return candidates, nil
}

func (DateTimePrompt) RetryMessage(error) string {
	return `Please enter a valid time in the future like "tomorrow at 9am".`
}

func (p DateTimePrompt) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// CustomerNumberPrompt accepts a numeric literal that resolves to an existing
// customer. Verify performs the store lookup; the accepted value is the
// customer record itself.
type CustomerNumberPrompt struct {
	Store domain.RecordStore
}

func (CustomerNumberPrompt) Parse(input string, _ *models.PendingPrompt) (interface{}, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil {
		return nil, errNotANumber
	}
	return id, nil
}

func (p CustomerNumberPrompt) Verify(ctx context.Context, value interface{}) (interface{}, error) {
	id := value.(int64)
	if id < models.MinCustomerNumber {
		return nil, errCustomerNumber
	}

	customer, err := p.Store.GetCustomerByID(ctx, id)
	if err != nil {
		// A store failure degrades to a retry rather than crashing the turn.
		return nil, fmt.Errorf("%w: %v", errCustomerNumber, err)
	}
	if customer == nil {
		return nil, errCustomerNumber
	}

	return customer, nil
}

func (CustomerNumberPrompt) RetryMessage(err error) string {
	return "Customer Number doesn't exist. Please provide a valid Customer Number."
}

// emailPattern is the RFC-5322-lite check: a local part without disallowed
// characters and a dotted domain.
var emailPattern = regexp.MustCompile(`^(([^<>()\[\]\\.,;:\s@"]+(\.[^<>()\[\]\\.,;:\s@"]+)*)|(".+"))@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\])|(([a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}))$`)

// EmailPrompt accepts a well-formed email address.
type EmailPrompt struct{}

func (EmailPrompt) Parse(input string, _ *models.PendingPrompt) (interface{}, error) {
	input = strings.TrimSpace(input)
	if !emailPattern.MatchString(input) {
		return nil, errInvalidEmail
	}
	return input, nil
}

func (EmailPrompt) Verify(_ context.Context, value interface{}) (interface{}, error) {
	return value, nil
}

func (EmailPrompt) RetryMessage(error) string {
	return "Invalid Email address. Please provide a valid email address."
}
