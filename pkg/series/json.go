package series

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/matzehuels/choropleth/pkg/errors"
)

type jsonPoint struct {
	Value    json.RawMessage `json:"value"`
	Category string          `json:"category"`
	Color    string          `json:"color"`
	Label    string          `json:"label"`
}

// ParseJSON decodes an object keyed by region code. Each entry is a number,
// a string (a hex color is taken as an explicit color, anything else as a
// category), null (no data), or an object with value, category, color and
// label fields. Points are ordered by code.
func ParseJSON(data []byte) (*Series, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse data json")
	}

	codes := make([]string, 0, len(raw))
	for code := range raw {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	points := make([]Point, 0, len(codes))
	for _, code := range codes {
		p, err := decodeEntry(code, raw[code])
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return New(points...)
}

func decodeEntry(code string, msg json.RawMessage) (Point, error) {
	p := Point{Code: code}
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 || string(msg) == "null" {
		return p, nil
	}

	if msg[0] == '{' {
		var obj jsonPoint
		if err := json.Unmarshal(msg, &obj); err != nil {
			return p, errors.Wrap(errors.ErrCodeInvalidFormat, err, "entry %q", code)
		}
		if len(obj.Value) > 0 {
			v, err := decodeEntry(code, obj.Value)
			if err != nil {
				return p, err
			}
			p = v
		}
		if obj.Category != "" {
			p.Category = obj.Category
		}
		if obj.Color != "" {
			p.Color = obj.Color
		}
		p.Label = obj.Label
		return p, nil
	}

	if msg[0] == '"' {
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return p, errors.Wrap(errors.ErrCodeInvalidFormat, err, "entry %q", code)
		}
		s = strings.TrimSpace(s)
		if IsColor(s) {
			p.Color = s
		} else {
			p.Category = s
		}
		return p, nil
	}

	var v float64
	if err := json.Unmarshal(msg, &v); err != nil {
		return p, errors.New(errors.ErrCodeInvalidFormat, "entry %q: want number, string or object, got %s", code, msg)
	}
	p.Value, p.Numeric = v, true
	return p, nil
}
