package taxjar

import (
	"bytes"
	"encoding/json"
)

// ViesKind tags the JSON shape of a VIES response.
type ViesKind int

const (
	ViesNone ViesKind = iota
	ViesObject
	ViesUnknown
)

// ViesResponse is the upstream VIES lookup echoed by the validation endpoint.
// Known fields are decoded when the API sends an object; Raw always holds the
// original JSON.
type ViesResponse struct {
	Kind        ViesKind
	CountryCode string
	VATNumber   string
	RequestDate string
	Valid       *bool
	Name        string
	Address     string
	Raw         json.RawMessage
}

type viesFields struct {
	CountryCode string `json:"country_code"`
	VATNumber   string `json:"vat_number"`
	RequestDate string `json:"request_date"`
	Valid       *bool  `json:"valid"`
	Name        string `json:"name"`
	Address     string `json:"address"`
}

func (v *ViesResponse) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		*v = ViesResponse{Kind: ViesNone}
		return nil
	}

	*v = ViesResponse{Kind: ViesUnknown, Raw: append(json.RawMessage(nil), raw...)}
	if raw[0] != '{' {
		return nil
	}

	var f viesFields
	if err := json.Unmarshal(raw, &f); err != nil {
		// Unexpected field types stay available through Raw.
		return nil
	}
	v.Kind = ViesObject
	v.CountryCode = f.CountryCode
	v.VATNumber = f.VATNumber
	v.RequestDate = f.RequestDate
	v.Valid = f.Valid
	v.Name = f.Name
	v.Address = f.Address
	return nil
}

func (v ViesResponse) MarshalJSON() ([]byte, error) {
	if len(v.Raw) == 0 {
		return jsonNull, nil
	}
	return v.Raw, nil
}

// MarshalYAML renders the decoded fields, or the raw JSON for unknown shapes.
func (v ViesResponse) MarshalYAML() (interface{}, error) {
	switch v.Kind {
	case ViesNone:
		return nil, nil
	case ViesObject:
		return viesYAML{
			CountryCode: v.CountryCode,
			VATNumber:   v.VATNumber,
			RequestDate: v.RequestDate,
			Valid:       v.Valid,
			Name:        v.Name,
			Address:     v.Address,
		}, nil
	default:
		return string(v.Raw), nil
	}
}

type viesYAML struct {
	CountryCode string `yaml:"country_code,omitempty"`
	VATNumber   string `yaml:"vat_number,omitempty"`
	RequestDate string `yaml:"request_date,omitempty"`
	Valid       *bool  `yaml:"valid,omitempty"`
	Name        string `yaml:"name,omitempty"`
	Address     string `yaml:"address,omitempty"`
}
