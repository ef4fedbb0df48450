package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"captionstudio/internal/pkg/errors"
	"captionstudio/internal/pkg/logger"
	"captionstudio/internal/retry"
)

// JobSubmitter starts a render. *Submitter implements it.
type JobSubmitter interface {
	Submit(ctx context.Context, compositionID string, inputProps any) (JobHandle, error)
}

// ProgressPoller queries a render once. *Poller implements it.
type ProgressPoller interface {
	Poll(ctx context.Context, h JobHandle) (Outcome, error)
}

// Machine drives one render session from submission to a terminal state.
//
//	init -> invoking -> rendering* -> done | error
//	invoking -> error
//	any -> init (Undo)
//
// Undo cancels the running loop; transitions it attempts afterwards are
// dropped. Render does not guard against being called while another render
// of the same Machine is running; the newer call wins.
type Machine struct {
	cfg       Config
	submitter JobSubmitter
	poller    ProgressPoller
	log       *logger.Logger
	sleep     func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	state     State
	gen       uint64
	cancel    context.CancelFunc
	observers []func(State)
}

func NewMachine(cfg Config, submitter JobSubmitter, poller ProgressPoller, log *logger.Logger) *Machine {
	return &Machine{
		cfg:       cfg,
		submitter: submitter,
		poller:    poller,
		log:       log.WithComponent("render.machine"),
		sleep:     retry.Sleep,
		state:     Init{},
	}
}

// WithSleep replaces the wait between polls.
func (m *Machine) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Machine {
	m.sleep = sleep
	return m
}

// OnChange registers fn to be called with every new state. Observers run
// under the machine lock, in transition order, and must not call back into
// the Machine.
func (m *Machine) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Undo resets the machine to Init and cancels any running render loop.
func (m *Machine) Undo() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.apply(Init{})
}

// Render submits the composition and polls it until it is done, fails,
// stalls, or is undone. It returns the state the machine is in when the loop
// exits.
func (m *Machine) Render(ctx context.Context, compositionID string, inputProps any) State {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	m.gen++
	gen := m.gen
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = cancel
	m.mu.Unlock()

	m.transition(gen, Invoking{})

	h, err := m.submitter.Submit(ctx, compositionID, inputProps)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Error("render submission failed", "error", err.Error())
			m.transition(gen, Failed{Err: err})
		}
		return m.State()
	}

	log := m.log.WithRenderID(h.RenderID, h.BucketName)
	renderID := h.RenderID
	m.transition(gen, Rendering{Handle: h})

	stall := NewStallDetector(m.cfg.StallPolls)
	shown := 0.0
	for ctx.Err() == nil {
		out, err := m.poller.Poll(ctx, h)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("progress query failed", "error", err.Error())
				m.transition(gen, Failed{RenderID: &renderID, Err: err})
			}
			break
		}

		switch o := out.(type) {
		case OutcomeError:
			m.transition(gen, Failed{RenderID: &renderID, Err: errors.FatalRender(o.Message)})
			return m.State()

		case OutcomeDone:
			log.Info("render done", "url", o.URL, "size_bytes", o.SizeBytes)
			m.transition(gen, Done{URL: o.URL, SizeBytes: o.SizeBytes})
			return m.State()

		case OutcomeProgress:
			if stall.Observe(o.Value) {
				log.Warn("render stalled", "progress", o.Value, "polls", stall.Count())
				m.transition(gen, Failed{RenderID: &renderID, Err: errors.Stalled(stalledMessage(o.Value))})
				return m.State()
			}
			if !m.cfg.ClampProgress || o.Value > shown {
				shown = o.Value
			}
			m.transition(gen, Rendering{Handle: h, Progress: shown})

			if err := m.sleep(ctx, m.cfg.PollInterval); err != nil {
				return m.State()
			}
		}
	}
	return m.State()
}

// transition applies s if gen is still the current run.
func (m *Machine) transition(gen uint64, s State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	m.apply(s)
	return true
}

// apply must be called with mu held.
func (m *Machine) apply(s State) {
	m.state = s
	for _, fn := range m.observers {
		fn(s)
	}
}

func stalledMessage(progress float64) string {
	return fmt.Sprintf("Rendering appears to be stuck at %.1f%% progress. "+
		"This may indicate a timeout or error. Please try again or check AWS CloudWatch logs.", progress*100)
}
