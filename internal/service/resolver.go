package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asavelyev/notesync/internal/config"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/remote"
	"github.com/asavelyev/notesync/internal/store"
	"github.com/asavelyev/notesync/models"
	"github.com/sethvargo/go-retry"
)

// conflictResolver applies a human's choice to a pending report. There is
// deliberately no automatic path here: every resolution is an explicit
// decision that produces a new generation strictly above both sides.
type conflictResolver struct {
	localStore store.LocalStorage
	objects    remote.ObjectStore
	deviceID   string
	attempts   int
	logger     *logger.Logger
}

func NewConflictResolver(
	localStore store.LocalStorage,
	objects remote.ObjectStore,
	cfg config.Sync,
	deviceID string,
	log *logger.Logger,
) Resolver {
	attempts := cfg.MaxPushAttempts
	if attempts <= 0 {
		attempts = config.DefaultMaxPushAttempts
	}
	return &conflictResolver{
		localStore: localStore,
		objects:    objects,
		deviceID:   deviceID,
		attempts:   attempts,
		logger:     log,
	}
}

// Resolve writes the chosen payload as generation max(A,B)+1, updates the
// local store, and retires the remote report object. The item write is
// conditional and retried with a re-read on contention, so a resolution
// can never clobber a generation it has not seen.
func (r *conflictResolver) Resolve(
	ctx context.Context,
	report models.ConflictReport,
	choice models.ConflictChoice,
	merged *models.Payload,
) (models.Item, error) {
	var payload models.Payload
	switch choice {
	case models.ChooseA:
		payload = report.PayloadA
	case models.ChooseB:
		payload = report.PayloadB
	case models.ChooseMerged:
		if merged == nil {
			return models.Item{}, ErrMergedPayloadRequired
		}
		payload = *merged
	default:
		return models.Item{}, fmt.Errorf("%w: %q", ErrUnknownConflictChoice, choice)
	}

	winner := models.Item{
		ID:           report.ItemID,
		Type:         report.Type,
		Generation:   maxGeneration(report.GenerationA, report.GenerationB) + 1,
		MutatedAt:    time.Now().UnixMilli(),
		OriginDevice: r.deviceID,
		Payload:      payload,
	}

	if err := r.writeWinner(ctx, &winner); err != nil {
		return models.Item{}, err
	}

	if err := r.localStore.Save(ctx, winner); err != nil {
		return models.Item{}, fmt.Errorf("save resolved item locally: %w", err)
	}

	if err := r.objects.Delete(ctx, report.RemotePath(), ""); err != nil && !errors.Is(err, remote.ErrNotFound) {
		// The resolution itself succeeded; a stale report is cosmetic and
		// will be filtered out as soon as this delete goes through.
		r.logger.Warn().Err(err).Str("item_id", report.ItemID).Msg("failed to retire conflict report")
	}

	r.logger.Info().
		Str("item_id", winner.ID).
		Str("choice", string(choice)).
		Int64("generation", winner.Generation).
		Msg("conflict resolved")
	return winner, nil
}

// writeWinner performs the conditional remote write, re-reading on token
// mismatch. Should the remote advance past the winner's generation while
// we retry, the winner is re-based one generation above it: the human's
// decision stays, the generation invariant holds.
func (r *conflictResolver) writeWinner(ctx context.Context, winner *models.Item) error {
	backoff := retry.WithMaxRetries(uint64(r.attempts-1), retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		path := remote.ItemPath(winner.Type, winner.ID)

		var token string
		content, curToken, err := r.objects.Get(ctx, path)
		switch {
		case errors.Is(err, remote.ErrNotFound):
			token = ""
		case err != nil:
			return err
		default:
			token = curToken
			if current, decErr := remote.DecodeItem(content); decErr == nil && current.Generation >= winner.Generation {
				winner.Generation = current.Generation + 1
				winner.MutatedAt = time.Now().UnixMilli()
			}
		}

		encoded, err := remote.EncodeItem(*winner)
		if err != nil {
			return err
		}
		if _, err = r.objects.Put(ctx, path, encoded, token); err != nil {
			if errors.Is(err, remote.ErrTokenMismatch) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write resolved item %s: %w", winner.ID, err)
	}
	return nil
}
