package taxjar

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RateKind tags the JSON shape a Rate was decoded from.
type RateKind int

const (
	RateNull RateKind = iota
	RateNumber
	RateString
	RateDetail
	RateUnknown
)

func (k RateKind) String() string {
	switch k {
	case RateNull:
		return "null"
	case RateNumber:
		return "number"
	case RateString:
		return "string"
	case RateDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// Rate is a summary rate field that the API sends as a number, a string, a
// {"label","rate"} object or null. Decoded rates keep the original JSON in Raw;
// literal rates without Raw are rendered from Kind and the typed fields.
type Rate struct {
	Kind  RateKind
	Value float64
	Text  string
	Label string
	Raw   json.RawMessage
}

var jsonNull = []byte("null")

// NumberRate builds a numeric Rate.
func NumberRate(v float64) Rate {
	raw, _ := json.Marshal(v)
	return Rate{Kind: RateNumber, Value: v, Raw: raw}
}

// Float returns the numeric rate when one could be derived.
func (r Rate) Float() (float64, bool) {
	switch r.Kind {
	case RateNumber:
		return r.Value, true
	case RateString:
		return parseNumeric(r.Text)
	case RateDetail:
		if len(r.Raw) == 0 {
			return r.Value, true
		}
		return numberFrom(detailOf(r.Raw).Rate)
	default:
		return 0, false
	}
}

func (r Rate) String() string {
	switch r.Kind {
	case RateNull:
		return "null"
	case RateString:
		return r.Text
	case RateUnknown:
		return string(r.Raw)
	}
	s := strconv.FormatFloat(r.Value, 'f', -1, 64)
	if r.Label != "" {
		return r.Label + " " + s
	}
	return s
}

func (r *Rate) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	*r = Rate{Raw: append(json.RawMessage(nil), raw...)}

	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		r.Kind = RateNull
		r.Raw = nil
		return nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		r.Kind = RateString
		r.Text = s
		r.Value, _ = parseNumeric(s)
	case '{':
		var detail rateDetail
		if err := json.Unmarshal(raw, &detail); err != nil {
			// Unexpected field types stay available through Raw.
			r.Kind = RateUnknown
			return nil
		}
		r.Kind = RateDetail
		r.Label = detail.Label
		r.Value, _ = numberFrom(detail.Rate)
	default:
		if v, ok := numberFrom(raw); ok {
			r.Kind = RateNumber
			r.Value = v
			return nil
		}
		r.Kind = RateUnknown
	}
	return nil
}

func (r Rate) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	switch r.Kind {
	case RateNumber:
		return json.Marshal(r.Value)
	case RateString:
		return json.Marshal(r.Text)
	case RateDetail:
		return json.Marshal(map[string]any{"label": r.Label, "rate": r.Value})
	default:
		return jsonNull, nil
	}
}

type rateDetail struct {
	Label string          `json:"label"`
	Rate  json.RawMessage `json:"rate"`
}

func detailOf(raw json.RawMessage) rateDetail {
	var d rateDetail
	_ = json.Unmarshal(raw, &d)
	return d
}

// MarshalYAML renders the rate as the plain value it was decoded from.
func (r Rate) MarshalYAML() (interface{}, error) {
	switch r.Kind {
	case RateNull:
		return nil, nil
	case RateNumber:
		return r.Value, nil
	case RateString:
		return r.Text, nil
	case RateDetail:
		return map[string]any{"label": r.Label, "rate": r.Value}, nil
	default:
		return string(r.Raw), nil
	}
}

func numberFrom(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return 0, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		return parseNumeric(s)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

func parseNumeric(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
