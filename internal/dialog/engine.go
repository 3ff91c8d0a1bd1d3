// Package dialog implements a stack-based dialog engine. A conversation owns
// a stack of frames; each frame is one activation of a named dialog with a
// step index and scratch data. Steps run until one of them suspends on a
// prompt, and the next turn's input resumes the waiting frame.
package dialog

import (
	"context"
	"errors"
	"fmt"

	"courierbot/internal/domain"
	"courierbot/internal/models"

	"github.com/rs/zerolog"
)

var (
	// ErrUnknownDialog and ErrUnknownPrompt are programming errors: a step
	// referenced a name that was never registered. They are not retried.
	ErrUnknownDialog = errors.New("unknown dialog")
	ErrUnknownPrompt = errors.New("unknown prompt")
)

type actionKind int

const (
	actionPrompt actionKind = iota
	actionNext
	actionBegin
	actionReplace
	actionEnd
)

// Action is what a step returns: suspend on a prompt, advance immediately,
// start a child dialog, replace the current dialog, or end it.
type Action struct {
	kind    actionKind
	prompt  string
	text    string
	choices []string
	dialog  string
	result  interface{}
}

// Prompt suspends the dialog until the next turn's input satisfies the named
// prompt. Always the last action a step takes before yielding.
func Prompt(prompt, text string, choices ...string) Action {
	return Action{kind: actionPrompt, prompt: prompt, text: text, choices: choices}
}

// Next advances to the following step in the same turn, carrying result.
// Used to skip a prompt after branching.
func Next(result interface{}) Action {
	return Action{kind: actionNext, result: result}
}

// Begin pushes a child dialog; the parent's next step receives the child's
// end result once the child completes.
func Begin(dialog string) Action {
	return Action{kind: actionBegin, dialog: dialog}
}

// Replace swaps the current frame for a fresh run of the named dialog,
// preserving no scratch.
func Replace(dialog string) Action {
	return Action{kind: actionReplace, dialog: dialog}
}

// End pops the current frame and hands result to the parent's next step.
func End(result interface{}) Action {
	return Action{kind: actionEnd, result: result}
}

// StepContext is the single-shot environment a step runs in.
type StepContext struct {
	Context context.Context
	Frame   *models.DialogFrame
	// Result carries the previous prompt's typed value, a child dialog's end
	// result, or whatever the previous step passed through Next.
	Result interface{}
	Out    domain.Responder
}

// StepFunc is one waterfall step.
type StepFunc func(*StepContext) (Action, error)

// Dialog is a named, ordered step sequence.
type Dialog struct {
	Name  string
	Steps []StepFunc
}

// Engine holds the registered dialogs and prompts and drives frame stacks.
// It is stateless across conversations; all durable state lives in the
// ConversationState passed to each call.
type Engine struct {
	dialogs map[string]*Dialog
	prompts map[string]PromptHandler
	logger  *zerolog.Logger

	// OnRetry is called whenever a prompt rejects input, with the prompt name.
	OnRetry func(prompt string)
}

func NewEngine(logger *zerolog.Logger) *Engine {
	return &Engine{
		dialogs: make(map[string]*Dialog),
		prompts: make(map[string]PromptHandler),
		logger:  logger,
	}
}

func (e *Engine) RegisterDialog(d *Dialog) {
	e.dialogs[d.Name] = d
}

func (e *Engine) RegisterPrompt(name string, handler PromptHandler) {
	e.prompts[name] = handler
}

// BeginDialog pushes a fresh frame for name at step 0 and runs it until it
// suspends or the stack empties.
func (e *Engine) BeginDialog(ctx context.Context, state *models.ConversationState, out domain.Responder, name string) error {
	if _, ok := e.dialogs[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDialog, name)
	}

	state.Frames = append(state.Frames, models.DialogFrame{
		Dialog:  name,
		Scratch: make(map[string]interface{}),
	})

	return e.run(ctx, state, out, nil)
}

// ContinueDialog resumes the active dialog with the turn's input. It reports
// handled=false (and no error) when nothing is active.
func (e *Engine) ContinueDialog(ctx context.Context, state *models.ConversationState, out domain.Responder, input string) (bool, error) {
	top := state.Top()
	if top == nil {
		return false, nil
	}

	if top.Pending == nil {
		// No suspension point recorded; run the current step directly.
		return true, e.run(ctx, state, out, input)
	}

	pending := top.Pending
	handler, ok := e.prompts[pending.Prompt]
	if !ok {
		return true, fmt.Errorf("%w: %s", ErrUnknownPrompt, pending.Prompt)
	}

	value, err := handler.Parse(input, pending)
	if err == nil {
		value, err = handler.Verify(ctx, value)
	}
	if err != nil {
		// Validation failure is recovered locally: corrective message plus
		// the original prompt, frame untouched.
		if e.OnRetry != nil {
			e.OnRetry(pending.Prompt)
		}
		if msg := handler.RetryMessage(err); msg != "" {
			if sendErr := out.SendText(ctx, msg); sendErr != nil {
				return true, sendErr
			}
		}
		return true, e.reissue(ctx, out, pending)
	}

	top.Pending = nil
	top.Step++
	return true, e.run(ctx, state, out, value)
}

// CancelAll empties the stack unconditionally, regardless of depth.
func (e *Engine) CancelAll(state *models.ConversationState) {
	state.Frames = state.Frames[:0]
}

// run executes steps until a suspension point or an empty stack.
func (e *Engine) run(ctx context.Context, state *models.ConversationState, out domain.Responder, result interface{}) error {
	for {
		top := state.Top()
		if top == nil {
			return nil
		}

		d, ok := e.dialogs[top.Dialog]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownDialog, top.Dialog)
		}

		if top.Step >= len(d.Steps) {
			// The waterfall ran off its end: treat as an implicit End.
			result = e.pop(state, result)
			continue
		}

		action, err := d.Steps[top.Step](&StepContext{
			Context: ctx,
			Frame:   top,
			Result:  result,
			Out:     out,
		})
		if err != nil {
			return fmt.Errorf("dialog %s step %d: %w", top.Dialog, top.Step, err)
		}

		switch action.kind {
		case actionPrompt:
			if _, ok := e.prompts[action.prompt]; !ok {
				return fmt.Errorf("%w: %s", ErrUnknownPrompt, action.prompt)
			}
			top.Pending = &models.PendingPrompt{
				Prompt:  action.prompt,
				Text:    action.text,
				Choices: action.choices,
			}
			return e.reissue(ctx, out, top.Pending)

		case actionNext:
			top.Step++
			result = action.result

		case actionBegin:
			if _, ok := e.dialogs[action.dialog]; !ok {
				return fmt.Errorf("%w: %s", ErrUnknownDialog, action.dialog)
			}
			state.Frames = append(state.Frames, models.DialogFrame{
				Dialog:  action.dialog,
				Scratch: make(map[string]interface{}),
			})
			result = nil

		case actionReplace:
			if _, ok := e.dialogs[action.dialog]; !ok {
				return fmt.Errorf("%w: %s", ErrUnknownDialog, action.dialog)
			}
			state.Frames[len(state.Frames)-1] = models.DialogFrame{
				Dialog:  action.dialog,
				Scratch: make(map[string]interface{}),
			}
			result = nil

		case actionEnd:
			result = e.pop(state, action.result)
		}
	}
}

// pop removes the top frame and positions the parent, if any, at its next
// step. Returns the result to deliver there.
func (e *Engine) pop(state *models.ConversationState, result interface{}) interface{} {
	state.Frames = state.Frames[:len(state.Frames)-1]
	if top := state.Top(); top != nil {
		top.Pending = nil
		top.Step++
	}
	return result
}

func (e *Engine) reissue(ctx context.Context, out domain.Responder, pending *models.PendingPrompt) error {
	if len(pending.Choices) > 0 {
		return out.SendChoices(ctx, pending.Text, pending.Choices)
	}
	return out.SendText(ctx, pending.Text)
}
