package gopro

import (
	"net/url"
	"path"

	"github.com/google/uuid"
)

// Key probe orders follow the API's observed variants: direct fields on
// the record, entries of a file list, then the variant/versions mapping.
var (
	directURLKeys  = []string{"download_url", "downloadUrl", "url"}
	entryURLKeys   = []string{"url", "download_url", "downloadUrl"}
	fileListKeys   = []string{"files", "media_files"}
	variantMapKeys = []string{"versions", "derived_media"}
)

// ExtractCandidates derives the deduplicated ordered list of download
// candidates for one media record. Pure: no I/O, deterministic for a
// given record (modulo the uuid fallback for records with neither a URL
// path segment nor an id).
//
// Candidates are collected from three tiers in fixed priority order,
// each tier appending: direct URL fields, file-list entries, variant
// mapping values. Absent or wrong-shaped fields contribute nothing;
// malformed nesting never errors. Duplicate URLs keep their first-seen
// position.
func ExtractCandidates(record MediaRecord) []DownloadCandidate {
	var candidates []DownloadCandidate
	seen := make(map[string]bool)

	add := func(raw interface{}) {
		u, ok := raw.(string)
		if !ok || u == "" || seen[u] {
			return
		}
		seen[u] = true
		candidates = append(candidates, DownloadCandidate{
			URL:      u,
			Filename: pickFilename(u, record),
		})
	}

	// Tier 1: direct fields on the record
	for _, key := range directURLKeys {
		add(record[key])
	}

	// Tier 2: file list entries
	for _, entry := range firstList(record, fileListKeys) {
		if m, ok := entry.(map[string]interface{}); ok {
			add(firstEntryURL(m))
		}
	}

	// Tier 3: variant mapping, each value a variant object or a list of them
	for _, variant := range firstMap(record, variantMapKeys) {
		switch v := variant.(type) {
		case map[string]interface{}:
			add(firstEntryURL(v))
		case []interface{}:
			for _, entry := range v {
				if m, ok := entry.(map[string]interface{}); ok {
					add(firstEntryURL(m))
				}
			}
		}
	}

	return candidates
}

// FirstCandidate returns the preferred candidate for a record, or false
// when the record yields none. One file per record by policy: additional
// variants are resolved but never scheduled.
func FirstCandidate(record MediaRecord) (DownloadCandidate, bool) {
	candidates := ExtractCandidates(record)
	if len(candidates) == 0 {
		return DownloadCandidate{}, false
	}
	return candidates[0], true
}

func firstEntryURL(entry map[string]interface{}) interface{} {
	for _, key := range entryURLKeys {
		if u, ok := entry[key].(string); ok && u != "" {
			return u
		}
	}
	return nil
}

// firstList returns the first non-empty list among the given keys
func firstList(record MediaRecord, keys []string) []interface{} {
	for _, key := range keys {
		if list, ok := record[key].([]interface{}); ok && len(list) > 0 {
			return list
		}
	}
	return nil
}

// firstMap returns the first non-empty mapping among the given keys
func firstMap(record MediaRecord, keys []string) map[string]interface{} {
	for _, key := range keys {
		if m, ok := record[key].(map[string]interface{}); ok && len(m) > 0 {
			return m
		}
	}
	return nil
}

// pickFilename derives a filename from the URL's path segment, falling
// back to the record id, then to a fresh unique token.
func pickFilename(rawURL string, record MediaRecord) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		name := path.Base(parsed.Path)
		if name != "" && name != "." && name != "/" {
			return name
		}
	}

	if id := record.ID(); id != "" {
		return id
	}

	return uuid.NewString()
}
