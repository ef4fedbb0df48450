package worker

import (
	"context"
	"time"

	"captionstudio/internal/pkg/logger"
	"captionstudio/internal/worker/processor"

	"golang.org/x/sync/errgroup"
)

const popTimeout = 5 * time.Second

// Run consumes render jobs until ctx is done, while listening for undo
// signals aimed at the session being rendered.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	p := processor.New(processor.Deps{
		Sessions:  d.Sessions,
		Publisher: d.Queue,
		Render:    d.Render,
		Provider:  d.Provider,
		Log:       log,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			err := d.Queue.SubscribeCancel(ctx, func(sessionID string) { p.Cancel(sessionID) })
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("cancel subscription dropped, resubscribing", "error", errString(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				log.Info("worker context canceled, stopping")
				return nil
			default:
			}

			job, ok, err := d.Queue.Pop(ctx, popTimeout)
			if err != nil {
				if ctx.Err() != nil {
					log.Info("worker stopping due to context cancellation")
					return nil
				}
				log.Warn("queue pop error, retrying", "error", err.Error())
				time.Sleep(1 * time.Second)
				continue
			}
			if !ok {
				continue
			}

			jobLog := log.WithSessionID(job.SessionID)
			jobLog.Info("processing render job", "generation", job.Generation)
			startTime := time.Now()

			final, err := p.ProcessJob(ctx, job)
			switch {
			case err != nil:
				jobLog.Error("render job failed",
					"error", err.Error(),
					"duration_ms", time.Since(startTime).Milliseconds(),
				)
			case final != nil:
				jobLog.Info("render job completed",
					"status", string(final.Status()),
					"duration_ms", time.Since(startTime).Milliseconds(),
				)
			}
		}
	})

	return g.Wait()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
