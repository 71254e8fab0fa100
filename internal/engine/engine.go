// Package engine runs the recognition loop: frames in, presence state and
// real-time events out.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/facewatch/internal/broadcast"
	"github.com/kozaktomas/facewatch/internal/capture"
	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/logger"
	"github.com/kozaktomas/facewatch/internal/matcher"
	"github.com/kozaktomas/facewatch/internal/metrics"
	"github.com/kozaktomas/facewatch/internal/notify"
	"github.com/kozaktomas/facewatch/internal/presence"
	"github.com/kozaktomas/facewatch/internal/snapshot"
)

// Broadcaster fans events out to live subscribers
type Broadcaster interface {
	Broadcast(ev broadcast.Event) int
}

// Notifier dispatches flagged-person alerts without blocking
type Notifier interface {
	Notify(alert notify.Alert) bool
}

// SourceOpener opens the camera. It is retried until it succeeds; a source
// returned together with an error is closed and discarded.
type SourceOpener func() (capture.Source, error)

// Options tunes the loop.
type Options struct {
	Threshold        float64
	ResizeWidth      int
	AbsenceTimeout   time.Duration
	EmbeddingDim     int
	InferenceWorkers int
	FrameInterval    time.Duration
	RetryInterval    time.Duration
	UseIndex         bool
}

// OptionsFromConfig maps configuration onto loop options.
func OptionsFromConfig(e config.EngineConfig, c config.CameraConfig) Options {
	return Options{
		Threshold:        e.Threshold,
		ResizeWidth:      e.ResizeWidth,
		AbsenceTimeout:   e.AbsenceTimeout,
		EmbeddingDim:     e.EmbeddingDim,
		InferenceWorkers: e.InferenceWorkers,
		FrameInterval:    e.FrameInterval,
		RetryInterval:    c.RetryInterval,
		UseIndex:         e.MatchIndex == "hnsw",
	}
}

// Deps are the engine's collaborators. Snapshots, Notifier and Metrics may be nil.
type Deps struct {
	Store     database.Store
	Detector  Detector
	Source    SourceOpener
	Snapshots snapshot.Store
	Notifier  Notifier
	Hub       Broadcaster
	Metrics   *metrics.Metrics
}

// Engine is the recognition loop
type Engine struct {
	opts  Options
	deps  Deps
	state *State

	reloadMu sync.Mutex
}

// New creates an engine with empty catalogs. Call ReloadCatalogs before Run.
func New(opts Options, deps Deps) *Engine {
	return &Engine{
		opts:  opts,
		deps:  deps,
		state: NewState(opts.AbsenceTimeout),
	}
}

// State exposes the published views for the API.
func (e *Engine) State() *State {
	return e.state
}

// Run processes frames until ctx is cancelled. Camera and inference failures
// are logged and retried; Run only returns when ctx is done. On return every
// open presence window is closed.
func (e *Engine) Run(ctx context.Context) error {
	pool := NewPool(e.deps.Detector, e.opts.InferenceWorkers)
	defer pool.Close()
	defer e.closeAll()

	var src capture.Source
	defer func() {
		if src != nil {
			if err := src.Close(); err != nil {
				logger.Warn("failed to release camera", "error", err)
			}
		}
	}()

	logger.Info("recognition loop started",
		"threshold", e.opts.Threshold,
		"absence_timeout", e.opts.AbsenceTimeout,
		"resize_width", e.opts.ResizeWidth)

	for ctx.Err() == nil {
		if src == nil {
			s, err := e.deps.Source()
			if err != nil {
				if s != nil {
					_ = s.Close()
				}
				e.deps.Metrics.FrameError("open")
				logger.Warn("camera unavailable, retrying", "error", err, "retry_in", e.opts.RetryInterval)
				sleep(ctx, e.opts.RetryInterval)
				continue
			}
			src = s
			logger.Info("camera opened")
		}

		img, err := src.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			e.deps.Metrics.FrameError("capture")
			if !errors.Is(err, capture.ErrNoFrame) {
				logger.Warn("frame read failed", "error", err)
			}
			sleep(ctx, e.opts.RetryInterval)
			continue
		}

		e.processFrame(ctx, pool, img, time.Now())
		sleep(ctx, e.opts.FrameInterval)
	}

	logger.Info("recognition loop stopped")
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// processFrame runs one cycle: inference, per-face classification, sweep,
// then publishes the presence view and annotated frame.
func (e *Engine) processFrame(ctx context.Context, pool *Pool, img image.Image, now time.Time) {
	img = capture.ResizeToWidth(img, e.opts.ResizeWidth)
	frame, err := capture.EncodeJPEG(img, constants.JPEGQuality)
	if err != nil {
		e.deps.Metrics.FrameError("encode")
		logger.Warn("failed to encode frame", "error", err)
		return
	}

	res := pool.Infer(ctx, frame)
	if res.Err != nil {
		if ctx.Err() != nil {
			return
		}
		e.deps.Metrics.FrameError("inference")
		logger.Warn("inference failed, treating frame as empty", "error", res.Err)
		res.Faces = nil
	} else {
		e.deps.Metrics.ObserveInference(res.Took)
	}

	cats := e.state.Catalogs()
	tracker := e.state.tracker
	tracker.BeginFrame()

	labels := make([]capture.Label, 0, len(res.Faces))
	for _, face := range res.Faces {
		emb := matcher.ToFloat64(face.Embedding)
		label := e.processFace(ctx, cats, emb, face.Embedding, frame, now)
		label.Box = capture.BoxFromBBox(face.BBox)
		labels = append(labels, label)
	}

	for _, expired := range tracker.Sweep(now) {
		e.endPresence(expired)
	}

	e.deps.Metrics.SetActivePresence(e.state.publishActive())
	e.deps.Metrics.FrameProcessed()

	annotated, err := capture.EncodeJPEG(capture.Annotate(img, labels), constants.JPEGQuality)
	if err != nil {
		logger.Debug("failed to encode annotated frame", "error", err)
		return
	}
	e.state.publishFrame(&Frame{JPEG: annotated, CapturedAt: now, Faces: len(labels)})
}

// processFace classifies one face and applies the matching state transition.
func (e *Engine) processFace(ctx context.Context, cats *Catalogs, emb []float64, raw []float32, frame []byte, now time.Time) capture.Label {
	c := presence.Classify(emb, cats.Flagged, cats.Known, e.opts.Threshold)
	e.deps.Metrics.FaceClassified(c.Kind.String())

	switch c.Kind {
	case presence.Flagged:
		return e.sawFlagged(ctx, c.Match.Entry, frame, now)
	case presence.Known:
		return e.sawKnown(ctx, c.Match.Entry, frame, now)
	default:
		return e.sawUnknown(ctx, emb, raw, frame, now)
	}
}

func (e *Engine) sawKnown(ctx context.Context, m *matcher.Entry, frame []byte, now time.Time) capture.Label {
	label := capture.Label{Kind: presence.Known.String(), Title: m.Name, Note: m.Note}

	entry, created := e.state.tracker.Open(presence.Key{Kind: presence.Known, ID: m.ID}, now)
	if !created {
		e.broadcast(broadcast.KnownUpdate(m.ID, m.Name, m.Note, now))
		return label
	}

	entry.Name, entry.Note = m.Name, m.Note
	ref := e.saveSnapshot(ctx, frame)

	pctx, cancel := context.WithTimeout(ctx, constants.PersistTimeout)
	defer cancel()
	id, err := e.deps.Store.OpenPresenceEvent(pctx, database.PresenceEvent{
		IdentityID:  m.ID,
		Kind:        database.KindKnown,
		EntryTime:   now,
		SnapshotRef: ref,
	})
	if err != nil {
		e.deps.Metrics.FrameError("persist")
		logger.Warn("failed to open presence event", "identity", m.ID, "error", err)
	} else {
		entry.EventID = id
	}

	logger.Info("known person arrived", "identity", m.ID, "name", m.Name)
	e.broadcast(broadcast.KnownFirstSeen(m.ID, m.Name, m.Note, ref, now))
	return label
}

func (e *Engine) sawFlagged(ctx context.Context, m *matcher.Entry, frame []byte, now time.Time) capture.Label {
	label := capture.Label{Kind: presence.Flagged.String(), Title: "ALERT: " + m.Name, Note: m.Note}

	entry, created := e.state.tracker.Open(presence.Key{Kind: presence.Flagged, ID: m.ID}, now)
	if !created {
		e.broadcast(broadcast.AlertBadUpdate(m.ID, m.Name, m.Note, now))
		return label
	}

	entry.Name, entry.Note = m.Name, m.Note
	ref := e.saveSnapshot(ctx, frame)

	pctx, cancel := context.WithTimeout(ctx, constants.PersistTimeout)
	defer cancel()
	if _, err := e.deps.Store.RecordAlert(pctx, database.AlertEvent{
		IdentityID:  m.ID,
		Name:        m.Name,
		Reason:      m.Note,
		SnapshotRef: ref,
		DetectedAt:  now,
	}); err != nil {
		e.deps.Metrics.FrameError("persist")
		logger.Warn("failed to record alert", "identity", m.ID, "error", err)
	}

	logger.Warn("flagged person detected", "identity", m.ID, "name", m.Name, "reason", m.Note)
	e.broadcast(broadcast.AlertBad(m.ID, m.Name, m.Note, ref, now))

	if e.deps.Notifier != nil {
		e.deps.Notifier.Notify(notify.Alert{
			IdentityID:  m.ID,
			Name:        m.Name,
			Reason:      m.Note,
			SnapshotRef: ref,
			DetectedAt:  now,
		})
	}
	return label
}

func (e *Engine) sawUnknown(ctx context.Context, emb []float64, raw []float32, frame []byte, now time.Time) capture.Label {
	tracker := e.state.tracker
	if entry := tracker.ContinueUnknown(emb, e.opts.Threshold, now); entry != nil {
		e.broadcast(broadcast.UnknownUpdate(entry.Key.ID, now))
		return capture.Label{Kind: presence.Unknown.String(), Title: "Unknown"}
	}

	ref := e.saveSnapshot(ctx, frame)

	pctx, cancel := context.WithTimeout(ctx, constants.PersistTimeout)
	defer cancel()
	id, err := e.deps.Store.CreateUnknown(pctx, database.UnknownRecord{
		ImagePath: ref,
		Embedding: raw,
		FirstSeen: now,
		LastSeen:  now,
	})
	if err != nil {
		e.deps.Metrics.FrameError("persist")
		id = uuid.NewString()
		logger.Warn("failed to persist unknown face, tracking locally", "id", id, "error", err)
	}

	tracker.OpenUnknown(id, emb, now)
	logger.Info("new unknown face", "id", id)
	e.broadcast(broadcast.UnknownFirstSeen(id, ref, now))
	return capture.Label{Kind: presence.Unknown.String(), Title: "Unknown"}
}

// endPresence closes the persisted window of an expired entry and announces it.
// Exit time is the last sighting, never the sweep time.
func (e *Engine) endPresence(entry presence.Entry) {
	duration := entry.Duration()

	ctx, cancel := context.WithTimeout(context.Background(), constants.PersistTimeout)
	defer cancel()

	if entry.EventID != 0 {
		err := e.deps.Store.ClosePresenceEvent(ctx, entry.EventID, entry.LastSeen, duration.Seconds())
		switch {
		case errors.Is(err, database.ErrNotFound):
			logger.Debug("presence event already gone", "event", entry.EventID)
		case err != nil:
			e.deps.Metrics.FrameError("persist")
			logger.Warn("failed to close presence event", "event", entry.EventID, "error", err)
		}
	}
	if entry.Key.Kind == presence.Unknown {
		err := e.deps.Store.TouchUnknown(ctx, entry.Key.ID, entry.LastSeen)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			logger.Warn("failed to update unknown last_seen", "id", entry.Key.ID, "error", err)
		}
	}

	logger.Info("presence ended", "key", entry.Key.String(), "duration", duration.Round(time.Second))
	e.broadcast(broadcast.PresenceEnd(entry.Key.ID, entry.Key.Kind.String(), duration, entry.LastSeen))
}

// closeAll ends every tracked window, used when the loop stops.
func (e *Engine) closeAll() {
	for _, entry := range e.state.tracker.Drain() {
		e.endPresence(entry)
	}
	e.deps.Metrics.SetActivePresence(e.state.publishActive())
}

func (e *Engine) saveSnapshot(ctx context.Context, frame []byte) string {
	if e.deps.Snapshots == nil {
		return ""
	}
	ref, err := e.deps.Snapshots.Save(ctx, frame)
	if err != nil {
		e.deps.Metrics.FrameError("snapshot")
		logger.Warn("failed to save snapshot", "error", err)
		return ""
	}
	return ref
}

func (e *Engine) broadcast(ev broadcast.Event) {
	if e.deps.Hub != nil {
		e.deps.Hub.Broadcast(ev)
	}
}

// ReloadCatalogs rebuilds both catalogs from storage and swaps them in at
// once. On error the previous generation stays active.
func (e *Engine) ReloadCatalogs(ctx context.Context) (ReloadResult, error) {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	flagged, fStats, err := e.loadCatalog(ctx, database.CatalogFlagged)
	if err != nil {
		return ReloadResult{}, err
	}
	known, kStats, err := e.loadCatalog(ctx, database.CatalogKnown)
	if err != nil {
		return ReloadResult{}, err
	}

	e.state.SwapCatalogs(&Catalogs{Flagged: flagged, Known: known, LoadedAt: time.Now()})

	res := ReloadResult{
		Known:          kStats.Loaded,
		Flagged:        fStats.Loaded,
		KnownSkipped:   kStats.Skipped(),
		FlaggedSkipped: fStats.Skipped(),
	}
	logger.Info("catalogs reloaded",
		"known", res.Known, "known_skipped", res.KnownSkipped,
		"flagged", res.Flagged, "flagged_skipped", res.FlaggedSkipped)
	return res, nil
}

// ReloadResult reports catalog sizes after a reload
type ReloadResult struct {
	Known          int `json:"known"`
	Flagged        int `json:"flagged"`
	KnownSkipped   int `json:"known_skipped"`
	FlaggedSkipped int `json:"flagged_skipped"`
}

func (e *Engine) loadCatalog(ctx context.Context, name database.Catalog) (*matcher.Catalog, matcher.LoadStats, error) {
	idents, err := e.deps.Store.ListIdentities(ctx, name)
	if err != nil {
		return nil, matcher.LoadStats{}, fmt.Errorf("failed to load %s catalog: %w", name, err)
	}
	cat, stats := matcher.NewCatalog(idents, e.opts.EmbeddingDim)
	if stats.Skipped() > 0 {
		logger.Warn("skipped catalog entries with unusable embeddings",
			"catalog", string(name),
			"no_embedding", stats.NoEmbedding,
			"wrong_dimension", stats.WrongDimension,
			"non_finite", stats.NonFinite)
	}
	if e.opts.UseIndex {
		cat = cat.WithIndex()
	}
	e.deps.Metrics.CatalogLoaded(string(name), stats.Loaded, stats.Skipped())
	return cat, stats, nil
}

// WatchCatalogs reloads on every change notification until ctx is done or
// the watcher closes its channel.
func (e *Engine) WatchCatalogs(ctx context.Context, w database.CatalogWatcher) error {
	changes, err := w.WatchCatalogs(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch catalogs: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if _, err := e.ReloadCatalogs(ctx); err != nil {
				logger.Warn("catalog reload after change failed", "error", err)
			}
		}
	}
}
