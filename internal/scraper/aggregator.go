package scraper

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/The-culture-connection/businessesgrabber/helpers"
	"github.com/The-culture-connection/businessesgrabber/logger"
	scraperrors "github.com/The-culture-connection/businessesgrabber/pkg/errors"
	"github.com/The-culture-connection/businessesgrabber/services/publisher"
)

// RecordWriter persists a record set. Implemented by the exporter
// service; only the JSON form is used for checkpoints.
type RecordWriter interface {
	WriteJSON(path string, records []BusinessRecord) error
}

// Aggregator drives the extractor over the discovered identifiers,
// collecting records and checkpointing progress. Strictly sequential:
// the fixed inter-request delay is what bounds outbound request rate.
type Aggregator struct {
	Extractor          *Extractor
	Writer             RecordWriter
	Publisher          publisher.Publisher
	CheckpointInterval int
	CheckpointPath     string
	Delay              time.Duration
}

// NewAggregator creates an aggregator. A non-positive interval means
// checkpointing after every success.
func NewAggregator(extractor *Extractor, writer RecordWriter, pub publisher.Publisher, interval int, checkpointPath string, delay time.Duration) *Aggregator {
	if interval < 1 {
		interval = 1
	}
	return &Aggregator{
		Extractor:          extractor,
		Writer:             writer,
		Publisher:          pub,
		CheckpointInterval: interval,
		CheckpointPath:     checkpointPath,
		Delay:              delay,
	}
}

// Run processes identifiers in sorted order, extracting each at most
// once and checkpointing after every CheckpointInterval successes. On
// cancellation the collected records are flushed to a partial output
// before returning.
func (a *Aggregator) Run(ctx context.Context, ids []string, state *State) (*State, error) {
	log := logger.ForStage("aggregate")
	if state == nil {
		state = NewState()
	}

	// Sorted order keeps runs reproducible
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	total := len(sorted)
	successes := 0

	for i, id := range sorted {
		select {
		case <-ctx.Done():
			log.Warn().Int("collected", len(state.Records)).Msg("Run interrupted, flushing partial results")
			a.flushPartial(state, log)
			return state, ctx.Err()
		default:
		}

		if state.Processed[id] {
			log.Debug().Str("url", id).Msg("Already processed, skipping")
			continue
		}

		record, err := a.Extractor.Extract(ctx, id, state.Processed)
		if err != nil {
			a.logExtractError(log, err)
		} else if record != nil {
			state.Records = append(state.Records, *record)
			a.publish(record, log)
			successes++

			log.Info().
				Int("progress", i+1).
				Int("total", total).
				Str("name", record.Name).
				Msg("Extracted business")

			if successes%a.CheckpointInterval == 0 {
				a.checkpoint(state, log)
			}
		}

		if !sleepCtx(ctx, a.Delay) {
			log.Warn().Int("collected", len(state.Records)).Msg("Run interrupted, flushing partial results")
			a.flushPartial(state, log)
			return state, ctx.Err()
		}
	}

	state.Records = DeduplicateByName(state.Records)
	a.checkpoint(state, log)

	log.Info().
		Int("records", len(state.Records)).
		Int("attempted", len(state.Processed)).
		Msg("Aggregation complete")
	return state, nil
}

// checkpoint persists the deduplicated record set. Persistence failures
// are logged, never fatal; a later checkpoint may succeed.
func (a *Aggregator) checkpoint(state *State, log *logger.Logger) {
	records := DeduplicateByName(state.Records)
	if err := a.Writer.WriteJSON(a.CheckpointPath, records); err != nil {
		perr := scraperrors.NewPersistence(a.CheckpointPath, "checkpoint write failed", err)
		log.Error().Err(perr).Msg("Checkpoint failed")
		return
	}
	log.Debug().Int("records", len(records)).Str("path", a.CheckpointPath).Msg("Checkpoint written")
}

// flushPartial writes whatever has been collected to a distinctly named
// partial output
func (a *Aggregator) flushPartial(state *State, log *logger.Logger) {
	path := PartialPath(a.CheckpointPath)
	records := DeduplicateByName(state.Records)
	if err := a.Writer.WriteJSON(path, records); err != nil {
		perr := scraperrors.NewPersistence(path, "partial flush failed", err)
		log.Error().Err(perr).Msg("Partial flush failed")
		return
	}
	log.Info().Int("records", len(records)).Str("path", path).Msg("Partial results saved")
}

func (a *Aggregator) publish(record *BusinessRecord, log *logger.Logger) {
	if a.Publisher == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode record for publishing")
		return
	}
	if err := a.Publisher.Publish(helpers.ListingSlug(record.SourceURL), payload); err != nil {
		log.Error().Err(err).Msg("Failed to publish record")
	}
}

func (a *Aggregator) logExtractError(log *logger.Logger, err error) {
	var serr *scraperrors.ScrapeError
	if stderrors.As(err, &serr) {
		log.Warn().
			Str("type", string(serr.Type)).
			Str("url", serr.Source).
			Err(serr.Err).
			Msg("Listing skipped")
		return
	}
	log.Warn().Err(err).Msg("Listing skipped")
}

// PartialPath derives the partial-output name from a checkpoint path
// (businesses_checkpoint.json -> businesses_checkpoint_partial.json)
func PartialPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_partial" + ext
}
