package remote

import (
	"encoding/json"
	"fmt"

	"github.com/asavelyev/notesync/models"
)

// The codec pins the serialized form of every object the engine stores
// remotely. Decoding failures wrap [ErrMalformedContent] so callers can
// isolate a single bad object without aborting a pass.

func EncodeItem(item models.Item) ([]byte, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode item %s: %w", item.ID, err)
	}
	return raw, nil
}

func DecodeItem(content []byte) (models.Item, error) {
	var item models.Item
	if err := json.Unmarshal(content, &item); err != nil {
		return models.Item{}, fmt.Errorf("%w: item: %v", ErrMalformedContent, err)
	}
	if item.ID == "" || !item.Type.Valid() {
		return models.Item{}, fmt.Errorf("%w: item missing id or type", ErrMalformedContent)
	}
	return item, nil
}

func EncodeTombstones(set models.TombstoneSet) ([]byte, error) {
	raw, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("encode tombstones: %w", err)
	}
	return raw, nil
}

func DecodeTombstones(content []byte) (models.TombstoneSet, error) {
	set := make(models.TombstoneSet)
	if err := json.Unmarshal(content, &set); err != nil {
		return nil, fmt.Errorf("%w: tombstones: %v", ErrMalformedContent, err)
	}
	return set, nil
}

func EncodeStatus(marker models.StatusMarker) ([]byte, error) {
	raw, err := json.Marshal(marker)
	if err != nil {
		return nil, fmt.Errorf("encode status marker: %w", err)
	}
	return raw, nil
}

func DecodeStatus(content []byte) (models.StatusMarker, error) {
	var marker models.StatusMarker
	if err := json.Unmarshal(content, &marker); err != nil {
		return models.StatusMarker{}, fmt.Errorf("%w: status marker: %v", ErrMalformedContent, err)
	}
	return marker, nil
}

func EncodeReport(report models.ConflictReport) ([]byte, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode conflict report %s: %w", report.ItemID, err)
	}
	return raw, nil
}

func DecodeReport(content []byte) (models.ConflictReport, error) {
	var report models.ConflictReport
	if err := json.Unmarshal(content, &report); err != nil {
		return models.ConflictReport{}, fmt.Errorf("%w: conflict report: %v", ErrMalformedContent, err)
	}
	return report, nil
}
