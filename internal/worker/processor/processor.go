package processor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"captionstudio/internal/captions"
	"captionstudio/internal/models"
	"captionstudio/internal/pkg/errors"
	"captionstudio/internal/pkg/logger"
	"captionstudio/internal/render"
)

// SessionStore is the persistence the processor needs.
// *repositories.SessionRepository implements it.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.RenderSession, error)
	UpdateState(ctx context.Context, id string, generation int64, snap render.Snapshot) (bool, error)
}

// StatePublisher fans state changes out to event subscribers.
type StatePublisher interface {
	PublishState(ctx context.Context, sessionID string, snap render.Snapshot) error
}

type Deps struct {
	Sessions  SessionStore
	Publisher StatePublisher
	Render    render.Config
	Provider  render.Provider
	Log       *logger.Logger

	// Sleep replaces the waits between polls and retries.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Processor renders queued sessions, one at a time, persisting and
// publishing every state transition.
type Processor struct {
	sessions  SessionStore
	publisher StatePublisher
	cfg       render.Config
	provider  render.Provider
	sleep     func(ctx context.Context, d time.Duration) error
	log       *logger.Logger

	mu      sync.Mutex
	running map[string]*render.Machine
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Processor{
		sessions:  d.Sessions,
		publisher: d.Publisher,
		cfg:       d.Render,
		provider:  d.Provider,
		sleep:     d.Sleep,
		log:       log.WithComponent("processor"),
		running:   make(map[string]*render.Machine),
	}
}

// ProcessJob renders the session named by job. Jobs whose generation was
// superseded by an undo are skipped. The returned state is the one the
// session ended in, or nil when the job was skipped.
func (p *Processor) ProcessJob(ctx context.Context, job models.RenderJob) (render.State, error) {
	ctx = logger.ContextWithSessionID(ctx, job.SessionID)
	log := p.log.WithSessionID(job.SessionID)

	s, err := p.sessions.Get(ctx, job.SessionID)
	if err != nil {
		return nil, errors.Wrap(err, "processor.fetch", "failed to fetch render session")
	}
	if s.Generation != job.Generation {
		log.Info("skipping superseded render job", "job_generation", job.Generation, "generation", s.Generation)
		return nil, nil
	}

	m := p.newMachine()
	m.OnChange(func(st render.State) {
		if p.record(ctx, log, s.ID, job.Generation, st) || st.Status() == render.StatusInit {
			return
		}
		// The session was reset without the cancel signal reaching us.
		// Observers run under the machine lock, so undo from outside it.
		log.Info("session reset elsewhere, stopping render", "generation", job.Generation)
		go m.Undo()
	})

	p.mu.Lock()
	p.running[s.ID] = m
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.running, s.ID)
		p.mu.Unlock()
	}()

	props, err := captions.PrepareProps(s.CompositionID, s.InputProps)
	if err != nil {
		failed := render.Failed{Err: errors.Validationf("invalid input props: %v", err)}
		p.record(ctx, log, s.ID, job.Generation, failed)
		return failed, nil
	}

	log.Info("starting render", "composition", s.CompositionID)
	start := time.Now()
	final := m.Render(ctx, s.CompositionID, json.RawMessage(props))
	log.Info("render loop finished",
		"status", string(final.Status()),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return final, nil
}

// Cancel undoes the session's render if this worker is running it.
func (p *Processor) Cancel(sessionID string) bool {
	p.mu.Lock()
	m, ok := p.running[sessionID]
	p.mu.Unlock()
	if !ok {
		return false
	}
	p.log.WithSessionID(sessionID).Info("undo received, cancelling render")
	m.Undo()
	return true
}

func (p *Processor) newMachine() *render.Machine {
	sub := render.NewSubmitter(p.cfg, p.provider, p.log)
	poll := render.NewPoller(p.cfg, p.provider, p.log)
	m := render.NewMachine(p.cfg, sub, poll, p.log)
	if p.sleep != nil {
		sub.WithSleep(p.sleep)
		m.WithSleep(p.sleep)
	}
	return m
}

// record persists st for the generation and publishes it when the write
// landed. Writes from an undone generation are dropped by the store, and
// record reports false for them.
func (p *Processor) record(ctx context.Context, log *logger.Logger, sessionID string, generation int64, st render.State) bool {
	snap := render.SnapshotOf(st)

	// persist even when the render context was canceled by shutdown
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	ok, err := p.sessions.UpdateState(wctx, sessionID, generation, snap)
	if err != nil {
		log.Error("failed to persist render state", "status", string(snap.Status), "error", err.Error())
		return true
	}
	if !ok {
		log.Debug("dropping state of superseded generation", "status", string(snap.Status))
		return false
	}
	if p.publisher != nil {
		if err := p.publisher.PublishState(wctx, sessionID, snap); err != nil {
			log.Warn("failed to publish render state", "error", err.Error())
		}
	}
	return true
}
