package service

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/fms-tracker-api/internal/models"
)

// maxStringDepth bounds how many times a value that decodes to yet another
// JSON string is decoded again.
const maxStringDepth = 3

var unescaper = strings.NewReplacer(`\"`, `"`, `\\`, `\`)

// TrackerNormalizer turns persisted tracker payloads of any historical shape
// into a year partition.
type TrackerNormalizer struct {
	logger *zap.Logger
}

// NewTrackerNormalizer constructs a normalizer.
func NewTrackerNormalizer(logger *zap.Logger) *TrackerNormalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackerNormalizer{logger: logger}
}

// NormalizeYearPartition normalizes raw without logging.
func NormalizeYearPartition(raw interface{}, fallbackYear string) models.YearPartition {
	return NewTrackerNormalizer(nil).Normalize(raw, fallbackYear)
}

// Normalize accepts nil, JSON text (possibly double encoded), a flat legacy
// section list or a year keyed object. Flat lists belong to fallbackYear only,
// whatever month keys their documents mention. Unreadable input yields an
// empty partition.
func (n *TrackerNormalizer) Normalize(raw interface{}, fallbackYear string) models.YearPartition {
	switch v := raw.(type) {
	case nil:
		return models.YearPartition{}
	case models.YearPartition:
		return n.fromValue(reencode(v), fallbackYear, 0)
	case []models.Section:
		return n.fromValue(reencode(v), fallbackYear, 0)
	case json.RawMessage:
		return n.fromValue(string(v), fallbackYear, 0)
	case []byte:
		return n.fromValue(string(v), fallbackYear, 0)
	default:
		return n.fromValue(v, fallbackYear, 0)
	}
}

func (n *TrackerNormalizer) fromValue(v interface{}, fallbackYear string, depth int) models.YearPartition {
	switch val := v.(type) {
	case nil:
		return models.YearPartition{}
	case string:
		if depth >= maxStringDepth {
			n.logger.Debug("tracker payload nested too deeply", zap.Int("depth", depth))
			return models.YearPartition{}
		}
		decoded, ok := n.decodeString(val)
		if !ok {
			return models.YearPartition{}
		}
		return n.fromValue(decoded, fallbackYear, depth+1)
	case []interface{}:
		if len(val) == 0 || fallbackYear == "" {
			return models.YearPartition{}
		}
		return models.YearPartition{fallbackYear: n.sectionsFrom(val)}
	case map[string]interface{}:
		out := models.YearPartition{}
		for key, sub := range val {
			if !models.IsYearKey(key) {
				continue
			}
			out[key] = n.sectionsFromAny(sub, depth)
		}
		return out
	default:
		return models.YearPartition{}
	}
}

// sectionsFromAny coerces one year's value, decoding it when still a string.
func (n *TrackerNormalizer) sectionsFromAny(v interface{}, depth int) []models.Section {
	for i := depth; i < maxStringDepth; i++ {
		s, ok := v.(string)
		if !ok {
			break
		}
		decoded, ok := n.decodeString(s)
		if !ok {
			return []models.Section{}
		}
		v = decoded
	}
	list, ok := v.([]interface{})
	if !ok {
		return []models.Section{}
	}
	return n.sectionsFrom(list)
}

// decodeString parses once, then retries once after stripping surrounding
// quotes and escapes.
func (n *TrackerNormalizer) decodeString(raw string) (interface{}, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, true
	}
	var out interface{}
	if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
		return out, true
	}

	cleaned := trimmed
	if len(cleaned) >= 2 && strings.HasPrefix(cleaned, `"`) && strings.HasSuffix(cleaned, `"`) {
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	cleaned = unescaper.Replace(cleaned)
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		n.logger.Debug("discarding unreadable tracker payload", zap.Int("length", len(raw)), zap.Error(err))
		return nil, false
	}
	return out, true
}

func (n *TrackerNormalizer) sectionsFrom(list []interface{}) []models.Section {
	sections := make([]models.Section, 0, len(list))
	for _, item := range list {
		if _, ok := item.(map[string]interface{}); !ok {
			continue
		}
		encoded, err := json.Marshal(item)
		if err != nil {
			continue
		}
		var section models.Section
		if err := json.Unmarshal(encoded, &section); err != nil {
			n.logger.Debug("skipping unreadable section", zap.Error(err))
			continue
		}
		sections = append(sections, canonicalSection(section))
	}
	return sections
}

// canonicalSection fills missing ids, guarantees a non-nil document list and
// drops unset statuses so that absence is the only representation of unset.
func canonicalSection(s models.Section) models.Section {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Documents == nil {
		s.Documents = []models.Document{}
	}
	for i := range s.Documents {
		doc := &s.Documents[i]
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		for month, status := range doc.CollectionStatus {
			if status == models.StatusUnset {
				delete(doc.CollectionStatus, month)
			}
		}
		if len(doc.CollectionStatus) == 0 {
			doc.CollectionStatus = nil
		}
		for month, comments := range doc.Comments {
			if len(comments) == 0 {
				delete(doc.Comments, month)
			}
		}
		if len(doc.Comments) == 0 {
			doc.Comments = nil
		}
	}
	return s
}

// reencode turns typed values into the generic shape the decoder walks.
func reencode(v interface{}) interface{} {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out interface{}
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil
	}
	return out
}

// SerializePartition renders the canonical JSON payload of a partition.
// encoding/json sorts map keys, so equal partitions serialize byte for byte.
func SerializePartition(p models.YearPartition) (string, error) {
	if p == nil {
		p = models.YearPartition{}
	}
	encoded, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
