package api

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParamType is the tag of a workload parameter.
type ParamType string

const (
	ParamTypeNumber  ParamType = "NUMBER"
	ParamTypeBoolean ParamType = "BOOLEAN"
	ParamTypeString  ParamType = "STRING"
)

// ParseParamType returns the ParamType whose wire tag is exactly s. Anything else is an error.
func ParseParamType(s string) (ParamType, error) {
	switch t := ParamType(s); t {
	case ParamTypeNumber, ParamTypeBoolean, ParamTypeString:
		return t, nil
	default:
		return "", errors.Errorf("unknown parameter type %q", s)
	}
}

func (t *ParamType) UnmarshalText(text []byte) error {
	parsed, err := ParseParamType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParamValue is a typed workload parameter value. Exactly one payload is set and it always matches Type().
// The zero value is invalid; use NumberParam, BooleanParam or StringParam.
type ParamValue struct {
	kind        ParamType
	intValue    int64
	boolValue   bool
	stringValue string
}

func NumberParam(v int64) ParamValue {
	return ParamValue{kind: ParamTypeNumber, intValue: v}
}

func BooleanParam(v bool) ParamValue {
	return ParamValue{kind: ParamTypeBoolean, boolValue: v}
}

func StringParam(v string) ParamValue {
	return ParamValue{kind: ParamTypeString, stringValue: v}
}

func (p ParamValue) Type() ParamType {
	return p.kind
}

// Int returns the payload of a NUMBER value.
func (p ParamValue) Int() (int64, bool) {
	return p.intValue, p.kind == ParamTypeNumber
}

// Bool returns the payload of a BOOLEAN value.
func (p ParamValue) Bool() (bool, bool) {
	return p.boolValue, p.kind == ParamTypeBoolean
}

// Str returns the payload of a STRING value.
func (p ParamValue) Str() (string, bool) {
	return p.stringValue, p.kind == ParamTypeString
}

func (p ParamValue) String() string {
	switch p.kind {
	case ParamTypeNumber:
		return strings.Join([]string{string(p.kind), jsonString(p.intValue)}, ":")
	case ParamTypeBoolean:
		return strings.Join([]string{string(p.kind), jsonString(p.boolValue)}, ":")
	case ParamTypeString:
		return strings.Join([]string{string(p.kind), p.stringValue}, ":")
	default:
		return "INVALID"
	}
}

type paramValueJson struct {
	Type        ParamType `json:"type"`
	IntValue    *int64    `json:"intValue,omitempty"`
	BoolValue   *bool     `json:"boolValue,omitempty"`
	StringValue *string   `json:"stringValue,omitempty"`
}

func (p ParamValue) MarshalJSON() ([]byte, error) {
	wire := paramValueJson{Type: p.kind}
	switch p.kind {
	case ParamTypeNumber:
		wire.IntValue = &p.intValue
	case ParamTypeBoolean:
		wire.BoolValue = &p.boolValue
	case ParamTypeString:
		wire.StringValue = &p.stringValue
	default:
		return nil, errors.Errorf("cannot encode parameter value with unknown type %q", p.kind)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the payload selected by the type tag. Payload fields for other tags are ignored,
// since the backend serialises every field. A missing or unknown tag is an error.
func (p *ParamValue) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        string  `json:"type"`
		IntValue    *int64  `json:"intValue"`
		BoolValue   *bool   `json:"boolValue"`
		StringValue *string `json:"stringValue"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.WithStack(err)
	}
	kind, err := ParseParamType(raw.Type)
	if err != nil {
		return err
	}
	switch kind {
	case ParamTypeNumber:
		*p = NumberParam(valueOrZero(raw.IntValue))
	case ParamTypeBoolean:
		*p = BooleanParam(valueOrZero(raw.BoolValue))
	case ParamTypeString:
		*p = StringParam(valueOrZero(raw.StringValue))
	}
	return nil
}

// ParamDesc describes one parameter a workload accepts. MinValue and MaxValue only apply to NUMBER parameters;
// nil means unbounded.
type ParamDesc struct {
	Name         string      `json:"name"`
	Type         ParamType   `json:"type"`
	Required     bool        `json:"required"`
	MinValue     *int64      `json:"minValue,omitempty"`
	MaxValue     *int64      `json:"maxValue,omitempty"`
	DefaultValue *ParamValue `json:"defaultValue,omitempty"`
}

// WorkloadDesc is one entry of GET /api/get-workloads.
type WorkloadDesc struct {
	WorkloadId  string      `json:"workloadId"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamDesc `json:"params"`
	// Display names for the series this workload feeds, keyed by series name.
	WorkloadNames map[string]string `json:"workloadNames,omitempty"`
}

// InvocationResult is returned by the invocation and termination endpoints. Result 0 means success;
// otherwise Data carries a human-readable reason.
type InvocationResult struct {
	Result int    `json:"result"`
	Data   string `json:"data"`
}

func (r InvocationResult) Succeeded() bool {
	return r.Result == 0
}

// WorkloadStatus is one entry of GET /api/active-workloads.
type WorkloadStatus struct {
	WorkloadId string `json:"workloadId"`
	StartTime  int64  `json:"startTime"`
	EndTime    int64  `json:"endTime"`
	Status     string `json:"status"`
}

func valueOrZero[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

func jsonString(v any) string {
	s, err := json.MarshalToString(v)
	if err != nil {
		return ""
	}
	return s
}
