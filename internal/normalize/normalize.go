// Package normalize turns the heterogeneous JSON payload shapes returned by
// market-data REST APIs into uniform tables. The Elexon Insights API answers
// the same logical query with five different envelopes depending on the
// endpoint: a bare sequence of records, {"data": [...]}, {"data": {...}},
// a nested sequence needing flattening, or a bare object that is itself the
// single record. Normalize resolves the shape once so callers can always
// treat the result as rows of a table.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Options tunes shape resolution for a specific endpoint.
type Options struct {
	// FieldMap renames source fields after shape resolution, e.g.
	// {"psrType": "fuelType"} for the generation per-type endpoints.
	FieldMap map[string]string

	// RetainKeys lists wrapper metadata fields copied onto records pulled
	// out of a nested "data" sequence. All other wrapper keys are dropped.
	RetainKeys []string
}

// Record is one observation keyed by canonical field name. Values are kept
// exactly as decoded: string, json.Number, bool or nil. No type
// reconciliation happens across rows; a column mixes "100" and 100.0 if the
// upstream API did.
type Record map[string]any

// UnmarshalJSON keeps numeric values as json.Number and nested object
// values in their key-order-preserving form, so a table that goes through a
// cache round-trip compares equal to a freshly normalized one.
func (r *Record) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return err
	}
	obj, ok := v.(*object)
	if !ok {
		return fmt.Errorf("record is %s, want object", kindOf(v))
	}
	m := make(Record, len(obj.keys))
	for k, val := range obj.vals {
		m[k] = val
	}
	*r = m
	return nil
}

// Table is an ordered sequence of records sharing one column set. Every row
// has a value for every column (nil when the source record lacked the
// field) and Columns preserves first-seen key order.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// Empty reports whether the table carries no rows. An empty table means
// "no data available" for the query, not an error.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// HasColumn reports whether the table carries the named column.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Normalize resolves the payload shape of raw and returns a uniform table.
// It is a pure data-shape transform: no I/O, no retries, no status-code
// interpretation beyond refusing error envelopes. Failure modes are
// *MalformedPayloadError and *UnexpectedStatusError; a partially-correct
// table is never returned.
func Normalize(raw []byte, opts Options) (Table, error) {
	v, err := decode(raw)
	if err != nil {
		return Table{}, &MalformedPayloadError{Reason: err.Error()}
	}

	recs, err := resolveShape(v, opts.RetainKeys)
	if err != nil {
		return Table{}, err
	}

	for _, rec := range recs {
		for from, to := range opts.FieldMap {
			rec.rename(from, to)
		}
	}

	return materialize(recs), nil
}

// resolveShape dispatches on the payload's top-level kind. Ordered; first
// match wins.
func resolveShape(v any, retain []string) ([]*object, error) {
	switch p := v.(type) {
	case nil:
		return nil, &MalformedPayloadError{Reason: "payload is null"}

	case []any:
		return flattenSequence(p, retain)

	case *object:
		if code, msg, ok := errorEnvelope(p); ok {
			return nil, &UnexpectedStatusError{StatusCode: code, Message: msg}
		}

		data, ok := p.get("data")
		if !ok {
			// No envelope at all: the object is the single record.
			return []*object{p}, nil
		}

		switch d := data.(type) {
		case []any:
			return flattenSequence(d, retain)
		case *object:
			if code, msg, ok := errorEnvelope(d); ok {
				return nil, &UnexpectedStatusError{StatusCode: code, Message: msg}
			}
			return []*object{d}, nil
		default:
			return nil, &MalformedPayloadError{
				Reason: fmt.Sprintf("data holds %s, want sequence or object", kindOf(data)),
			}
		}

	default:
		return nil, &MalformedPayloadError{
			Reason: fmt.Sprintf("top-level value is %s, want object or sequence", kindOf(v)),
		}
	}
}

// flattenSequence converts a sequence of record objects. An element that
// itself wraps a nested "data" sequence is flattened into the result, with
// the wrapper discarded except for retained metadata keys.
func flattenSequence(seq []any, retain []string) ([]*object, error) {
	recs := make([]*object, 0, len(seq))
	for i, el := range seq {
		obj, ok := el.(*object)
		if !ok {
			return nil, &MalformedPayloadError{
				Reason: fmt.Sprintf("sequence element %d is %s, want object", i, kindOf(el)),
			}
		}

		if nested, ok := obj.get("data"); ok {
			if nestedSeq, ok := nested.([]any); ok {
				inner, err := flattenSequence(nestedSeq, retain)
				if err != nil {
					return nil, err
				}
				for _, rec := range inner {
					for _, k := range retain {
						if wv, ok := obj.get(k); ok {
							if _, exists := rec.get(k); !exists {
								rec.set(k, wv)
							}
						}
					}
				}
				recs = append(recs, inner...)
				continue
			}
		}

		recs = append(recs, obj)
	}
	return recs, nil
}

// errorEnvelope detects {"statusCode": >=400, "message": ...} error bodies.
func errorEnvelope(o *object) (int, string, bool) {
	sc, ok := o.get("statusCode")
	if !ok {
		return 0, "", false
	}
	msg, ok := o.get("message")
	if !ok {
		return 0, "", false
	}
	num, ok := sc.(json.Number)
	if !ok {
		return 0, "", false
	}
	code, err := num.Int64()
	if err != nil {
		// The check is on the value, not its JSON representation; 404.0
		// still counts.
		f, ferr := num.Float64()
		if ferr != nil {
			return 0, "", false
		}
		code = int64(f)
	}
	if code < 400 {
		return 0, "", false
	}

	text, ok := msg.(string)
	if !ok {
		text = fmt.Sprintf("%v", msg)
	}
	return int(code), text, true
}

// materialize computes the ordered column union and pads every record
// against it in a single pass.
func materialize(recs []*object) Table {
	var cols []string
	seen := make(map[string]struct{})
	for _, rec := range recs {
		for _, k := range rec.keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
	}

	rows := make([]Record, len(recs))
	for i, rec := range recs {
		row := make(Record, len(cols))
		for _, c := range cols {
			if v, ok := rec.vals[c]; ok {
				row[c] = v
			} else {
				row[c] = nil
			}
		}
		rows[i] = row
	}

	return Table{Columns: cols, Rows: rows}
}
