package viewer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"nvsview/internal/logging"
	"nvsview/internal/types"
)

// FetchRange loads one ordinal range: the line request and the note
// request run together and both must finish before anything is merged.
func FetchRange(ctx context.Context, src Source, r Range) ([]*types.Line, []*types.Note, error) {
	if src == nil {
		return nil, nil, fmt.Errorf("no line source configured")
	}
	var (
		lines []*types.Line
		notes []*types.Note
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lines, err = src.Lines(gctx, r.Start, r.End)
		return err
	})
	g.Go(func() error {
		var err error
		notes, err = src.Notes(gctx, r.Start, r.End)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return lines, notes, nil
}

// fetchRange runs FetchRange off the loop and merges the result on it.
// Failures are logged and leave the range unregistered.
func (v *Viewer) fetchRange(r Range, place bool, done func(error)) {
	v.inFlight++
	v.logger.Debug("fetching lines", logging.F("start", r.Start), logging.F("end", r.End))
	v.spawn(func() {
		ctx, cancel := context.WithTimeout(v.ctx, v.fetchTimeout)
		defer cancel()
		lines, notes, err := FetchRange(ctx, v.source, r)
		v.poster.Post(func() {
			v.inFlight--
			if err != nil {
				v.logger.Warn("line fetch failed",
					logging.F("start", r.Start),
					logging.F("end", r.End),
					logging.F("err", err),
				)
			} else {
				v.RegisterLines(lines, notes, place)
			}
			if done != nil {
				done(err)
			}
		})
	})
}
