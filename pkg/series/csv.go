package series

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/choropleth/pkg/errors"
)

// ParseCSV reads a table with a header row. The code column is required;
// value, category, color and label are optional. Column names are matched
// case-insensitively and rows keep file order. Rows with an empty code are
// skipped.
func ParseCSV(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "data csv is empty")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read csv header")
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["code"]; !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "data csv has no code column (header: %s)", strings.Join(header, ","))
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var points []Point
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read csv")
		}
		p := Point{
			Code:     field(rec, "code"),
			Category: field(rec, "category"),
			Color:    field(rec, "color"),
			Label:    field(rec, "label"),
		}
		if p.Code == "" {
			continue
		}
		if s := field(rec, "value"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: value %q for %s is not a number", line, s, p.Code)
			}
			p.Value, p.Numeric = v, true
		}
		points = append(points, p)
	}
	return New(points...)
}
