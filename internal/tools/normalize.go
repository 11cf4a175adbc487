package tools

import (
	"regexp"
	"strings"
	"time"
)

// isEmptyMarker reports the backend's conventional false-as-empty sentinel: every
// adapter surfaces an unset relational/string/date field as the boolean
// false rather than null or "".
func isEmptyMarker(v interface{}) bool {
	b, ok := v.(bool)
	return ok && !b
}

// NormalizeRecord returns a new map holding one record's fields rewritten
// per the response normalization rules (the input map is left unchanged): relational [id, name] pairs become {id, name}
// objects, empty markers resolve per field kind (relational and date/
// datetime fields become null, everything else becomes ""), datetimes gain
// a Z suffix in RFC3339 form, binary fields are dropped unless requested,
// and HTML fields are stripped to plain text unless the caller asked for
// raw HTML.
func NormalizeRecord(record map[string]interface{}, dateFields, datetimeFields, binaryFields, htmlFields, relationalFields map[string]bool, requestedBinary map[string]bool, rawHTML bool) map[string]interface{} {
	out := make(map[string]interface{}, len(record))

	for field, value := range record {
		if binaryFields[field] && !requestedBinary[field] {
			continue
		}

		switch {
		case isEmptyMarker(value):
			out[field] = normalizeEmpty(field, dateFields, datetimeFields, relationalFields)
		case isRelationalPair(value):
			out[field] = normalizeRelational(value)
		case datetimeFields[field]:
			out[field] = normalizeDatetime(value)
		case htmlFields[field] && !rawHTML:
			out[field] = stripHTML(value)
		default:
			out[field] = value
		}
	}
	return out
}

func normalizeEmpty(field string, dateFields, datetimeFields, relationalFields map[string]bool) interface{} {
	if dateFields[field] || datetimeFields[field] || relationalFields[field] {
		return nil
	}
	return ""
}

// isRelationalPair reports whether v is the backend's [id, "Display Name"]
// encoding of a many2one field.
func isRelationalPair(v interface{}) bool {
	pair, ok := v.([]interface{})
	if !ok || len(pair) != 2 {
		return false
	}
	switch pair[0].(type) {
	case int, int64, float64:
	default:
		return false
	}
	_, ok = pair[1].(string)
	return ok
}

func normalizeRelational(v interface{}) map[string]interface{} {
	pair := v.([]interface{})
	return map[string]interface{}{"id": pair[0], "name": pair[1]}
}

// backendDatetimeLayout is the wire format every adapter reports naive
// datetimes in.
const backendDatetimeLayout = "2006-01-02 15:04:05"

func normalizeDatetime(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	t, err := time.Parse(backendDatetimeLayout, s)
	if err != nil {
		return v
	}
	return t.UTC().Format(time.RFC3339)
}

var (
	htmlTagRe    = regexp.MustCompile(`(?is)<[^>]*>`)
	htmlBlockRe  = regexp.MustCompile(`(?is)</?(p|div|br|li|ul|ol|h[1-6]|tr)[^>]*>`)
	htmlEntities = map[string]string{
		"&nbsp;": " ", "&amp;": "&", "&lt;": "<", "&gt;": ">",
		"&quot;": `"`, "&#39;": "'", "&apos;": "'",
	}
)

// stripHTML removes tags and decodes entities, inserting a newline at
// block-element boundaries so paragraph structure survives as plain text.
func stripHTML(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = htmlBlockRe.ReplaceAllString(s, "\n")
	s = htmlTagRe.ReplaceAllString(s, "")
	for entity, replacement := range htmlEntities {
		s = strings.ReplaceAll(s, entity, replacement)
	}
	return strings.TrimSpace(s)
}
