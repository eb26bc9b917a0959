package trace

import (
	"encoding/json"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
)

// Format represents the output format for trace events.
type Format uint8

const (
	FormatAuto   Format = iota // pick by output path extension
	FormatText                 // human-readable text
	FormatNDJSON               // newline-delimited JSON
)

var formatNames = map[string]Format{
	"":       FormatAuto,
	"auto":   FormatAuto,
	"text":   FormatText,
	"ndjson": FormatNDJSON,
	"json":   FormatNDJSON,
}

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	if f, ok := formatNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson)", s)
}

// ResolveFormat turns FormatAuto into a concrete format: NDJSON for
// .ndjson and .jsonl paths, text otherwise.
func ResolveFormat(f Format, path string) Format {
	if f != FormatAuto {
		return f
	}
	switch filepath.Ext(path) {
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	}
	return FormatText
}

// FormatEvent renders ev as one newline-terminated line.
func FormatEvent(ev *Event, format Format) []byte {
	if format == FormatNDJSON {
		return appendJSON(nil, ev)
	}
	return appendText(make([]byte, 0, 64), ev)
}

// indexed by Kind
var kindMarkers = [...]string{"? ", "→ ", "← ", "• ", "♡ "}

// appendText writes "[seq] <indent><marker>scope:name (detail) {k=v, ...}".
// Indentation follows the scope depth; extras are sorted by key.
func appendText(dst []byte, ev *Event) []byte {
	dst = append(dst, '[')
	dst = append(dst, fmt.Sprintf("%6d", ev.Seq)...)
	dst = append(dst, "] "...)
	for range max(int(ev.Scope)-1, 0) {
		dst = append(dst, "  "...)
	}
	marker := kindMarkers[0]
	if int(ev.Kind) < len(kindMarkers) {
		marker = kindMarkers[ev.Kind]
	}
	dst = append(dst, marker...)
	dst = append(dst, ev.Scope.String()...)
	dst = append(dst, ':')
	dst = append(dst, ev.Name...)
	if ev.Detail != "" {
		dst = append(dst, " ("...)
		dst = append(dst, ev.Detail...)
		dst = append(dst, ')')
	}
	if len(ev.Extra) > 0 {
		dst = append(dst, " {"...)
		for i, k := range slices.Sorted(maps.Keys(ev.Extra)) {
			if i > 0 {
				dst = append(dst, ", "...)
			}
			dst = append(dst, k...)
			dst = append(dst, '=')
			dst = append(dst, ev.Extra[k]...)
		}
		dst = append(dst, '}')
	}
	return append(dst, '\n')
}

type wireEvent struct {
	Time     string            `json:"time"`
	Seq      uint64            `json:"seq"`
	Kind     string            `json:"kind"`
	Scope    string            `json:"scope"`
	SpanID   uint64            `json:"span_id"`
	ParentID uint64            `json:"parent_id,omitempty"`
	GID      uint64            `json:"gid,omitempty"`
	Name     string            `json:"name"`
	Detail   string            `json:"detail,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

const wireTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

func appendJSON(dst []byte, ev *Event) []byte {
	w := wireEvent{
		Time:     ev.Time.Format(wireTimeLayout),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		GID:      ev.GID,
		Name:     ev.Name,
		Detail:   ev.Detail,
		Extra:    ev.Extra,
	}
	data, err := json.Marshal(w)
	if err != nil {
		// only strings and integers are encoded
		return dst
	}
	dst = append(dst, data...)
	return append(dst, '\n')
}
