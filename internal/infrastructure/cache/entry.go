package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/labelpadega/backend/internal/domain"
)

// entry is the persisted envelope shared by every backend
type entry struct {
	Data      json.RawMessage `json:"data"`
	CacheTime float64         `json:"cache_time"`
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func encodeEntry(value interface{}, now time.Time) ([]byte, error) {
	var data json.RawMessage
	switch v := value.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, fmt.Errorf("cache value is not valid JSON")
		}
		data = v
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cache value: %w", err)
		}
		data = b
	}

	return json.Marshal(entry{Data: data, CacheTime: epochSeconds(now)})
}

// decodeEntry returns the payload when the envelope is fresh.
// An entry aged exactly maxAge is still a hit.
func decodeEntry(raw []byte, now time.Time, maxAge time.Duration) (json.RawMessage, error) {
	if maxAge < 0 {
		return nil, domain.ErrCacheMiss
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, domain.ErrCacheMiss
	}
	if len(e.Data) == 0 {
		return nil, domain.ErrCacheMiss
	}
	if epochSeconds(now)-e.CacheTime > maxAge.Seconds() {
		return nil, domain.ErrCacheMiss
	}
	return e.Data, nil
}

func cacheTime(raw []byte) (time.Time, bool) {
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, int64(e.CacheTime*float64(time.Second))), true
}
