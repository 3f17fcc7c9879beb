package gopro

import (
	"encoding/json"
	"errors"
	"strconv"
)

// MediaRecord is one API-returned description of a media item. The
// listing's record shape is not fully fixed, so the record is kept as a
// raw key/value mapping and probed defensively.
type MediaRecord map[string]interface{}

// ID returns the record identifier, tolerating string and numeric forms
func (r MediaRecord) ID() string {
	switch v := r["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}

// DownloadCandidate is a resolved (URL, filename) pair derived from a
// MediaRecord
type DownloadCandidate struct {
	URL      string
	Filename string
}

// ErrUnrecognizedShape reports a listing body that parsed as JSON but
// matched none of the known record-list shapes. Distinct from an empty
// page, which is a recognized list with no entries.
var ErrUnrecognizedShape = errors.New("response shape not recognized")

// recordListKeys are the top-level keys that may hold the record list,
// probed in priority order
var recordListKeys = []string{"media", "data", "results", "items"}

// wrapperKey is the optional envelope the record list may sit under,
// one level deep
const wrapperKey = "response"

// shapeMatcher probes one known response shape and returns the record
// list if the body matches it
type shapeMatcher func(body map[string]interface{}) ([]MediaRecord, bool)

// shapeMatchers is the explicit ordered list of known shapes; the first
// match wins
var shapeMatchers = buildShapeMatchers()

func buildShapeMatchers() []shapeMatcher {
	var matchers []shapeMatcher
	for _, key := range recordListKeys {
		matchers = append(matchers, wrapped(key))
	}
	for _, key := range recordListKeys {
		matchers = append(matchers, doubleWrapped(wrapperKey, key))
	}
	return matchers
}

// wrapped matches {<key>: [...]}
func wrapped(key string) shapeMatcher {
	return func(body map[string]interface{}) ([]MediaRecord, bool) {
		return recordList(body[key])
	}
}

// doubleWrapped matches {<outer>: {<inner>: [...]}}
func doubleWrapped(outer, inner string) shapeMatcher {
	return func(body map[string]interface{}) ([]MediaRecord, bool) {
		wrapper, ok := body[outer].(map[string]interface{})
		if !ok {
			return nil, false
		}
		return recordList(wrapper[inner])
	}
}

func recordList(raw interface{}) ([]MediaRecord, bool) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}

	records := make([]MediaRecord, 0, len(list))
	for _, entry := range list {
		if m, ok := entry.(map[string]interface{}); ok {
			records = append(records, MediaRecord(m))
		}
	}
	return records, true
}

// ParseMediaPage decodes a listing response body and probes the known
// shapes in priority order. A recognized empty list is returned as an
// empty slice with a nil error; a body matching no shape returns
// ErrUnrecognizedShape. JSON that does not decode at all is a parse
// error, never silently treated as end-of-stream.
func ParseMediaPage(data []byte) ([]MediaRecord, error) {
	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}

	for _, match := range shapeMatchers {
		if records, ok := match(body); ok {
			return records, nil
		}
	}

	return nil, ErrUnrecognizedShape
}
