package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/remote"
	"github.com/asavelyev/notesync/internal/store"
	"github.com/asavelyev/notesync/models"
)

// ConflictDetector examines same-generation divergent pairs left over from
// planning. Pairs whose disagreement is confined to set-valued fields are
// merged automatically; anything touching a scalar field becomes a pending
// report awaiting a human decision.
type ConflictDetector struct {
	localStore store.LocalStorage
	objects    remote.ObjectStore
	deviceID   string
	logger     *logger.Logger
	notify     func(models.SyncEvent)
}

func NewConflictDetector(
	localStore store.LocalStorage,
	objects remote.ObjectStore,
	deviceID string,
	log *logger.Logger,
	notify func(models.SyncEvent),
) *ConflictDetector {
	if notify == nil {
		notify = func(models.SyncEvent) {}
	}
	return &ConflictDetector{
		localStore: localStore,
		objects:    objects,
		deviceID:   deviceID,
		logger:     log,
		notify:     notify,
	}
}

// Process classifies every pair and emits one conflicts-detected event for
// the pairs that could not be auto-merged. Per-pair failures are logged and
// the rest of the batch still processes.
func (d *ConflictDetector) Process(ctx context.Context, pairs []models.ConflictPair) error {
	var firstErr error
	reported := 0

	for _, pair := range pairs {
		pending, err := d.processPair(ctx, pair)
		if err != nil {
			d.logger.Err(err).Str("item_id", pair.Local.ID).Msg("failed to process conflict pair")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if pending {
			reported++
		}
	}

	if reported > 0 {
		d.notify(models.SyncEvent{Kind: models.EventConflictsDetected, ConflictCount: reported})
	}
	return firstErr
}

// processPair handles one divergent pair. Returns true when a pending
// report was produced.
func (d *ConflictDetector) processPair(ctx context.Context, pair models.ConflictPair) (bool, error) {
	mergeable, conflicting := pair.Local.Payload.DiffFields(pair.Remote.Payload)

	// Hashes can diverge over payloads that agree on every field, e.g. two
	// devices holding the same tag set in different order. No field
	// disagrees, so there is nothing to merge and nothing to report.
	if len(conflicting) == 0 && len(mergeable) == 0 {
		d.logger.Debug().Str("item_id", pair.Local.ID).Msg("divergent hashes but equivalent payloads, skipping")
		return false, nil
	}

	if len(conflicting) == 0 {
		return false, d.autoMerge(ctx, pair)
	}

	// A conflict that survives across passes is reported once, not per pass.
	if exists, err := d.hasPendingReport(ctx, pair.Local.ID); err != nil {
		return false, err
	} else if exists {
		return false, nil
	}

	report := models.ConflictReport{
		ItemID:            pair.Local.ID,
		Type:              pair.Local.Type,
		DetectedAt:        time.Now().UnixMilli(),
		GenerationA:       pair.Local.Generation,
		PayloadA:          pair.Local.Payload,
		OriginA:           pair.Local.OriginDevice,
		GenerationB:       pair.Remote.Generation,
		PayloadB:          pair.Remote.Payload,
		OriginB:           pair.Remote.OriginDevice,
		ConflictingFields: conflicting,
		Status:            models.ConflictPending,
	}

	content, err := remote.EncodeReport(report)
	if err != nil {
		return false, fmt.Errorf("encode conflict report: %w", err)
	}
	if _, err = d.objects.Put(ctx, report.RemotePath(), content, ""); err != nil {
		if errors.Is(err, remote.ErrTokenMismatch) {
			// Another device detected the same divergence in the same
			// millisecond. One report is enough.
			return true, nil
		}
		return false, fmt.Errorf("persist conflict report: %w", err)
	}

	d.logger.Warn().
		Str("item_id", report.ItemID).
		Strs("fields", conflicting).
		Msg("conflict detected, awaiting resolution")
	return true, nil
}

// autoMerge unions the set-valued fields of both sides into a new item one
// generation above the divergent pair and writes it both locally and
// remotely. The merged item carries this device as origin; the other
// device adopts it on its next pass as a normal generation advance.
func (d *ConflictDetector) autoMerge(ctx context.Context, pair models.ConflictPair) error {
	merged := pair.Local
	merged.Payload = pair.Local.Payload.MergeSets(pair.Remote.Payload)
	merged.Generation = maxGeneration(pair.Local.Generation, pair.Remote.Generation) + 1
	merged.MutatedAt = time.Now().UnixMilli()
	merged.OriginDevice = d.deviceID

	content, err := remote.EncodeItem(merged)
	if err != nil {
		return fmt.Errorf("encode merged item: %w", err)
	}
	path := remote.ItemPath(merged.Type, merged.ID)
	if _, err = d.objects.Put(ctx, path, content, pair.RemoteToken); err != nil {
		if errors.Is(err, remote.ErrTokenMismatch) {
			// The remote moved again under us; the next pass will replan
			// against the fresh copy.
			d.logger.Info().Str("item_id", merged.ID).Msg("auto-merge lost write race, deferring to next pass")
			return nil
		}
		return fmt.Errorf("write merged item: %w", err)
	}

	if err = d.localStore.Save(ctx, merged); err != nil {
		return fmt.Errorf("save merged item locally: %w", err)
	}

	d.logger.Info().
		Str("item_id", merged.ID).
		Int64("generation", merged.Generation).
		Msg("auto-merged divergent set fields")
	return nil
}

// hasPendingReport reports whether a pending report for itemID already
// exists remotely.
func (d *ConflictDetector) hasPendingReport(ctx context.Context, itemID string) (bool, error) {
	reports, err := d.ListPending(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range reports {
		if r.ItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

// ListPending returns every unresolved report stored under the conflicts
// directory, oldest first.
func (d *ConflictDetector) ListPending(ctx context.Context) ([]models.ConflictReport, error) {
	entries, err := d.objects.List(ctx, remote.ConflictsDir)
	if err != nil {
		return nil, fmt.Errorf("list conflict reports: %w", err)
	}

	var reports []models.ConflictReport
	for _, entry := range entries {
		content, _, err := d.objects.Get(ctx, entry.Path)
		if err != nil {
			if errors.Is(err, remote.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("read conflict report %s: %w", entry.Path, err)
		}
		report, err := remote.DecodeReport(content)
		if err != nil {
			d.logger.Warn().Err(err).Str("path", entry.Path).Msg("skipping malformed conflict report")
			continue
		}
		if report.Status != models.ConflictPending {
			continue
		}
		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].DetectedAt < reports[j].DetectedAt
	})
	return reports, nil
}

func maxGeneration(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
