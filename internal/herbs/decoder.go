package herbs

import (
	"encoding/json"
	"strings"

	"github.com/osanyin/herbal/internal/models"
)

// payloadEnvelope matches the expected top-level payload shape.
type payloadEnvelope struct {
	Herbs []models.Herb `json:"herbs"`
}

// Decode parses a raw dataset payload into herb records. The decode is
// all-or-nothing: any structural problem, missing required field or
// duplicate identifier rejects the whole payload with a DecodeError.
func Decode(payload []byte) ([]models.Herb, error) {
	var envelope payloadEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, newDecodeError("malformed JSON: %v", err)
	}

	if envelope.Herbs == nil {
		return nil, newDecodeError(`missing top-level "herbs" array`)
	}

	seen := make(map[string]struct{}, len(envelope.Herbs))
	for i := range envelope.Herbs {
		record := &envelope.Herbs[i]

		if strings.TrimSpace(record.ID) == "" {
			return nil, newDecodeError("record %d: missing id", i)
		}
		if strings.TrimSpace(record.EnglishName) == "" {
			return nil, newDecodeError("record %q: missing english_name", record.ID)
		}
		if strings.TrimSpace(record.ScientificName) == "" {
			return nil, newDecodeError("record %q: missing scientific_name", record.ID)
		}

		if _, dup := seen[record.ID]; dup {
			return nil, newDecodeError("duplicate id %q", record.ID)
		}
		seen[record.ID] = struct{}{}
	}

	return envelope.Herbs, nil
}

// Encode serialises herb records back into the payload shape accepted by
// Decode.
func Encode(records []models.Herb) ([]byte, error) {
	if records == nil {
		records = []models.Herb{}
	}
	return json.Marshal(payloadEnvelope{Herbs: records})
}
