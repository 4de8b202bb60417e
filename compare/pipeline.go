package compare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/docdiff/aggregate"
	"github.com/hazyhaar/docdiff/docmodel"
	"github.com/hazyhaar/docdiff/fmtdiff"
	"github.com/hazyhaar/docdiff/metrics"
	"github.com/hazyhaar/docdiff/textdiff"
)

type jobInput struct {
	docs [2]*docmodel.Document
	srcs [2]*Source
}

var sideLabel = [2]string{"original", "modified"}

// execute runs the pipeline for one job and records the terminal state.
func (s *Service) execute(ctx context.Context, id string, in jobInput) {
	start := time.Now()
	metrics.JobStarted()
	log := s.cfg.Logger.With("job_id", id)

	res, err := s.safeRun(ctx, id, in)
	if err == nil {
		err = s.reg.complete(id, res)
	}
	if err != nil {
		msg := "Error during comparison: " + err.Error()
		if errors.Is(err, ErrMissingDocument) {
			msg = "One or both documents not found"
		}
		if ferr := s.reg.fail(id, msg); ferr != nil {
			log.Error("cannot mark job failed", "error", ferr)
		}
		s.notify(id)
		metrics.JobFinished(string(docmodel.StatusFailed))
		log.Warn("comparison failed", "error", err, "duration", time.Since(start))
		return
	}
	s.notify(id)
	metrics.JobFinished(string(docmodel.StatusCompleted))
	log.Info("comparison completed",
		"differences", res.Counts.Total,
		"similarity", res.SimilarityScore,
		"duration", time.Since(start))
}

func (s *Service) safeRun(ctx context.Context, id string, in jobInput) (res *docmodel.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return s.pipeline(ctx, id, in)
}

func (s *Service) pipeline(ctx context.Context, id string, in jobInput) (*docmodel.Result, error) {
	s.step(id, 0.1, "Starting document processing")
	for i := range 2 {
		if in.docs[i] == nil && in.srcs[i] == nil {
			return nil, ErrMissingDocument
		}
	}

	extraction := docmodel.NewOutcome("extraction")
	var docs [2]*docmodel.Document
	for i, msg := range []string{"Processing original document", "Processing modified document"} {
		s.step(id, 0.2*float64(i+1), msg)
		doc, err := s.document(ctx, in, i)
		if err != nil {
			return nil, err
		}
		for _, d := range doc.Diagnostics {
			extraction.Notef("%s: %s", sideLabel[i], d)
		}
		docs[i] = doc
	}
	a, b := docs[0], docs[1]

	s.step(id, 0.6, "Comparing documents")
	var (
		text   textdiff.Report
		sem    docmodel.SemanticReport
		format docmodel.FormattingReport
		visual docmodel.VisualReport
		dates  docmodel.DateReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.stage("text", func() docmodel.OutcomeState {
		text = s.text.Compare(a.Text, b.Text)
		return docmodel.OutcomeOK
	}))
	g.Go(s.stage("semantic", func() docmodel.OutcomeState {
		sem = s.sem.Compare(gctx, a.Text, b.Text)
		return sem.Outcome.State
	}))
	g.Go(s.stage("formatting", func() docmodel.OutcomeState {
		format = s.format.CompareDocuments(gctx, a, b)
		return format.Outcome.State
	}))
	g.Go(s.stage("visual", func() docmodel.OutcomeState {
		visual = s.visual.Compare(gctx, a, b)
		return visual.Outcome.State
	}))
	g.Go(s.stage("dates", func() docmodel.OutcomeState {
		dates = s.dates.Compare(gctx, a.Text, b.Text)
		return dates.Outcome.State
	}))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.step(id, 0.8, "Analyzing differences with AI")
	scoring := docmodel.NewOutcome("scorer")
	var scored []docmodel.Difference
	err := s.stage("scorer", func() docmodel.OutcomeState {
		scored = s.scorer.Score(ctx, text.Differences(), &scoring)
		return scoring.State
	})()
	if err != nil {
		return nil, err
	}

	diffs := append(scored, fmtdiff.Differences(format)...)
	diffs = append(diffs, s.visual.Differences(visual)...)

	return aggregate.Build(aggregate.Input{
		ComparisonID: id,
		OriginalID:   a.ID,
		ModifiedID:   b.ID,
		Differences:  diffs,
		Similarity:   text.Similarity,
		Text:         text.Structured(),
		Semantic:     sem,
		Formatting:   format,
		Visual:       visual,
		Dates:        dates,
		Extra:        []docmodel.Outcome{extraction, scoring},
	}, s.now()), nil
}

// document returns side i, extracting it first when a source was given.
func (s *Service) document(ctx context.Context, in jobInput, i int) (*docmodel.Document, error) {
	doc := in.docs[i]
	if doc == nil {
		src := in.srcs[i]
		var err error
		doc, err = s.extractor.Extract(ctx, src.Name, src.Data)
		if err != nil {
			return nil, fmt.Errorf("extract %s document %q: %w", sideLabel[i], src.Name, err)
		}
		if doc == nil {
			return nil, ErrMissingDocument
		}
	}
	if doc.ID == "" {
		cp := *doc
		cp.ID = s.newID()
		doc = &cp
	}
	return doc, nil
}

// stage wraps an engine call with panic recovery and timing. A panic is
// the only way an engine fails the job.
func (s *Service) stage(name string, fn func() docmodel.OutcomeState) func() error {
	return func() (err error) {
		start := time.Now()
		state := docmodel.OutcomeFatal
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("%s engine: panic: %v", name, p)
				state = docmodel.OutcomeFatal
			}
			metrics.ObserveStage(name, string(state), time.Since(start))
		}()
		state = fn()
		return nil
	}
}
