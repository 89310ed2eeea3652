// Package voiceauth runs the enrollment and verification pipelines on top
// of a voiceprint.Model and a templatestore.Store, and exposes them over
// HTTP.
//
// Enrollment extracts one embedding per recording on a bounded worker
// pool. A recording that fails to decode, prepare or extract is recorded
// in EnrollResult.Failures and skipped; the template is the aggregate of
// whatever succeeded. Verification extracts a single embedding and
// compares it against the stored template.
package voiceauth

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/haivivi/voxkey/pkg/templatestore"
	"github.com/haivivi/voxkey/pkg/voiceprint"
)

// Options configures a Service.
type Options struct {
	// Threshold is the similarity a candidate must exceed.
	Threshold float64

	// TargetCount is the aggregation replication target.
	// Zero disables replication.
	TargetCount int

	// Workers bounds concurrent extractions during enrollment.
	// Zero or negative uses runtime.NumCPU().
	Workers int

	// ExtractTimeout bounds each model call. Zero means no timeout.
	ExtractTimeout time.Duration

	// MinRecordings is the number of usable recordings an enrollment
	// needs. Values below 1 are treated as 1.
	MinRecordings int

	// Denoiser is applied to every waveform before extraction.
	// Nil uses voiceprint.Passthrough.
	Denoiser voiceprint.Denoiser

	// Metrics receives pipeline metrics. Nil disables them.
	Metrics *Metrics
}

// DefaultOptions returns the default pipeline options.
func DefaultOptions() Options {
	return Options{
		Threshold:      voiceprint.DefaultThreshold,
		TargetCount:    voiceprint.DefaultTargetCount,
		ExtractTimeout: 30 * time.Second,
		MinRecordings:  1,
	}
}

// Service runs the enrollment and verification pipelines.
// It is safe for concurrent use.
type Service struct {
	model    voiceprint.Model
	store    templatestore.Store
	agg      *voiceprint.Aggregator
	verifier *voiceprint.Verifier
	denoiser voiceprint.Denoiser
	metrics  *Metrics

	workers        int
	extractTimeout time.Duration
	minRecordings  int
}

// NewService creates a Service. The Service does not take ownership of
// model or store; the caller closes them.
func NewService(model voiceprint.Model, store templatestore.Store, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MinRecordings < 1 {
		opts.MinRecordings = 1
	}
	if opts.Denoiser == nil {
		opts.Denoiser = voiceprint.Passthrough{}
	}
	return &Service{
		model:          model,
		store:          store,
		agg:            &voiceprint.Aggregator{TargetCount: opts.TargetCount},
		verifier:       voiceprint.NewVerifier(opts.Threshold),
		denoiser:       opts.Denoiser,
		metrics:        opts.Metrics,
		workers:        opts.Workers,
		extractTimeout: opts.ExtractTimeout,
		minRecordings:  opts.MinRecordings,
	}
}

// Model returns the extractor used by the service.
func (s *Service) Model() voiceprint.Model { return s.model }

// Metrics returns the service metrics, or nil.
func (s *Service) Metrics() *Metrics { return s.metrics }

// Threshold returns the verification threshold.
func (s *Service) Threshold() float64 { return s.verifier.Threshold }

// RecordingError reports the failure of one enrollment recording.
type RecordingError struct {
	Index int
	Err   error
}

func (e *RecordingError) Error() string {
	return fmt.Sprintf("recording %d: %v", e.Index, e.Err)
}

func (e *RecordingError) Unwrap() error { return e.Err }

// EnrollResult describes a completed or failed enrollment.
type EnrollResult struct {
	// Template is the stored template; nil when enrollment failed.
	Template *voiceprint.Template

	// Used is the number of recordings that contributed.
	Used int

	// Failures lists the recordings that were skipped, by index.
	Failures []RecordingError

	// Drift is the Hamming distance between the fingerprints of the
	// replaced and the new template, or -1 when no readable template
	// existed before.
	Drift int
}

// Enroll builds and stores a template for ownerID from decoded sample
// buffers. The returned EnrollResult is non-nil even on error once
// extraction has run, so callers can report partial failures.
func (s *Service) Enroll(ctx context.Context, ownerID string, recordings [][]float32) (*EnrollResult, error) {
	return s.enroll(ctx, ownerID, len(recordings), func(i int) ([]float32, error) {
		return recordings[i], nil
	})
}

// EnrollBuffers is like Enroll but takes little-endian float32 buffers.
// A buffer that cannot be decoded counts as a failed recording.
func (s *Service) EnrollBuffers(ctx context.Context, ownerID string, buffers [][]byte) (*EnrollResult, error) {
	return s.enroll(ctx, ownerID, len(buffers), func(i int) ([]float32, error) {
		return voiceprint.DecodeFloat32LE(buffers[i])
	})
}

func (s *Service) enroll(ctx context.Context, ownerID string, n int, load func(int) ([]float32, error)) (res *EnrollResult, err error) {
	start := time.Now()
	defer func() { s.metrics.observeEnroll(err, time.Since(start)) }()

	if err := templatestore.ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: no recordings", voiceprint.ErrNoValidEmbeddings)
	}

	embs := make([]voiceprint.Embedding, n)
	errs := make([]error, n)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range n {
		g.Go(func() error {
			embs[i], errs[i] = s.embed(ctx, load, i)
			return nil
		})
	}
	g.Wait()

	res = &EnrollResult{}
	used := make([]voiceprint.Embedding, 0, n)
	for i := range n {
		if errs[i] != nil {
			res.Failures = append(res.Failures, RecordingError{Index: i, Err: errs[i]})
			s.metrics.recordingFailed(errs[i])
			slog.Warn("voiceauth: recording skipped", "owner", ownerID, "index", i, "error", errs[i])
			continue
		}
		used = append(used, embs[i])
	}
	res.Used = len(used)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if len(used) < s.minRecordings {
		if len(used) == 0 {
			return res, fmt.Errorf("%w: all %d recordings failed", voiceprint.ErrNoValidEmbeddings, n)
		}
		return res, fmt.Errorf("%w: %d of %d recordings usable, need %d",
			voiceprint.ErrNoValidEmbeddings, len(used), n, s.minRecordings)
	}

	mean, err := s.agg.Aggregate(used)
	if err != nil {
		return res, err
	}
	t := voiceprint.NewTemplate(ownerID, mean, s.model.Name(), len(used))
	t.EnrollmentID = uuid.NewString()
	fp := voiceprint.TemplateFingerprint(t)
	res.Drift = -1
	if prev, err := s.store.Load(ctx, ownerID); err == nil {
		if pfp := voiceprint.TemplateFingerprint(prev); pfp != "" {
			res.Drift = voiceprint.HammingDistance(pfp, fp)
		}
	}
	if err := s.store.Save(ctx, t); err != nil {
		return res, err
	}
	res.Template = t

	slog.Info("voiceauth: enrolled",
		"owner", ownerID,
		"enrollment_id", t.EnrollmentID,
		"used", res.Used,
		"failed", len(res.Failures),
		"dim", t.Dim,
		"fingerprint", fp,
		"drift", res.Drift,
		"replication", s.agg.Replication(len(used)),
		"elapsed", time.Since(start),
	)
	return res, nil
}

// embed runs load, Prepare, the denoiser and the model for recording i.
func (s *Service) embed(ctx context.Context, load func(int) ([]float32, error), i int) (voiceprint.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := load(i)
	if err != nil {
		return nil, err
	}
	w, err := voiceprint.Prepare(raw)
	if err != nil {
		return nil, err
	}
	return s.extract(ctx, w)
}

// extract denoises w and runs the model on it under the extract timeout.
func (s *Service) extract(ctx context.Context, w voiceprint.Waveform) (voiceprint.Embedding, error) {
	w, err := s.denoiser.Denoise(w)
	if err != nil {
		return nil, fmt.Errorf("denoise: %w", err)
	}
	start := time.Now()
	emb, err := voiceprint.Extract(ctx, s.model, w, s.extractTimeout)
	s.metrics.observeExtract(time.Since(start))
	if err != nil {
		return nil, err
	}
	slog.Debug("voiceauth: embedding extracted", "samples", len(w), "duration", w.Duration(), "elapsed", time.Since(start))
	return emb, nil
}

// Verify compares one recording against the template stored for ownerID.
//
// A missing template fails with templatestore.ErrTemplateNotFound; it is
// never reported as a rejected candidate.
func (s *Service) Verify(ctx context.Context, ownerID string, samples []float32) (res voiceprint.Result, err error) {
	start := time.Now()
	defer func() { s.metrics.observeVerify(res, err, time.Since(start)) }()

	if err := templatestore.ValidateOwnerID(ownerID); err != nil {
		return voiceprint.Result{Threshold: s.Threshold()}, err
	}
	w, err := voiceprint.Prepare(samples)
	if err != nil {
		return voiceprint.Result{Threshold: s.Threshold()}, err
	}
	t, err := s.store.Load(ctx, ownerID)
	if err != nil {
		return voiceprint.Result{Threshold: s.Threshold()}, err
	}
	emb, err := s.extract(ctx, w)
	if err != nil {
		return voiceprint.Result{Threshold: s.Threshold()}, err
	}
	res, err = s.verifier.Verify(t, emb)
	if err != nil {
		return res, err
	}

	slog.Info("voiceauth: verified",
		"owner", ownerID,
		"accepted", res.Accepted,
		"similarity", res.Similarity,
		"threshold", res.Threshold,
		"elapsed", time.Since(start),
	)
	return res, nil
}

// VerifyBuffer is like Verify but takes a little-endian float32 buffer.
func (s *Service) VerifyBuffer(ctx context.Context, ownerID string, buf []byte) (voiceprint.Result, error) {
	samples, err := voiceprint.DecodeFloat32LE(buf)
	if err != nil {
		s.metrics.observeVerify(voiceprint.Result{}, err, 0)
		return voiceprint.Result{Threshold: s.Threshold()}, err
	}
	return s.Verify(ctx, ownerID, samples)
}

// Remove deletes the template for ownerID. Removing an owner that is not
// enrolled succeeds.
func (s *Service) Remove(ctx context.Context, ownerID string) error {
	if err := s.store.Delete(ctx, ownerID); err != nil {
		return err
	}
	slog.Info("voiceauth: template removed", "owner", ownerID)
	return nil
}

// Template returns the stored template for ownerID.
func (s *Service) Template(ctx context.Context, ownerID string) (*voiceprint.Template, error) {
	return s.store.Load(ctx, ownerID)
}

// Owners returns the enrolled owner IDs.
func (s *Service) Owners(ctx context.Context) ([]string, error) {
	return s.store.List(ctx)
}
