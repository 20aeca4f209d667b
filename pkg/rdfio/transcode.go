package rdfio

import (
	"context"
	"io"

	"github.com/aleksaelezovic/rdfio/pkg/rdf"
)

// Transcode parses r as format from into sink. The parse is cancelled as
// soon as the sink reports a write error, and that error is returned in
// preference to the cancellation. Transcode does not close the sink, so
// several inputs can be merged into one output.
func Transcode(ctx context.Context, r io.Reader, from Format, sink rdf.Sink, opts ReadOptions) (Stats, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	stats, err := Parse(ctx, r, from, &watchdog{Sink: sink, cancel: cancel}, opts)
	if serr := sink.Err(); serr != nil {
		return stats, serr
	}
	return stats, err
}

// TranscodeFile is Transcode over Open(name). An empty format is guessed
// from the name.
func TranscodeFile(ctx context.Context, name string, from Format, sink rdf.Sink, opts ReadOptions) (Stats, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	stats, err := ReadFile(ctx, name, from, &watchdog{Sink: sink, cancel: cancel}, opts)
	if serr := sink.Err(); serr != nil {
		return stats, serr
	}
	return stats, err
}

// watchdog cancels the parse once the sink has failed.
type watchdog struct {
	rdf.Sink
	cancel context.CancelCauseFunc
}

func (w *watchdog) VisitQuad(q *rdf.Quad) {
	w.Sink.VisitQuad(q)
	if err := w.Sink.Err(); err != nil {
		w.cancel(err)
	}
}
