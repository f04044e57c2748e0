package workload

import (
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/loadscope/loadscope/internal/common/scopeerrors"
	"github.com/loadscope/loadscope/pkg/api"
)

// DefaultValue returns the value a parameter takes when the operator gives none: its declared default if
// that matches the parameter type, otherwise the zero value of the type.
func DefaultValue(desc api.ParamDesc) (api.ParamValue, error) {
	if desc.DefaultValue != nil && desc.DefaultValue.Type() == desc.Type {
		return *desc.DefaultValue, nil
	}
	switch desc.Type {
	case api.ParamTypeNumber:
		return api.NumberParam(0), nil
	case api.ParamTypeBoolean:
		return api.BooleanParam(false), nil
	case api.ParamTypeString:
		return api.StringParam(""), nil
	default:
		return api.ParamValue{}, unknownType(desc)
	}
}

// DefaultValues returns the default of every parameter of desc, in declaration order.
func DefaultValues(desc api.WorkloadDesc) ([]api.ParamValue, error) {
	values := make([]api.ParamValue, 0, len(desc.Params))
	var result *multierror.Error
	for _, param := range desc.Params {
		value, err := DefaultValue(param)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		values = append(values, value)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return values, nil
}

// EncodeParams builds the invocation payload of desc: one value per parameter in declaration order, taken
// from overrides (keyed by parameter name, parsed according to the parameter type) or from the default.
// Every problem found is reported, not just the first.
func EncodeParams(desc api.WorkloadDesc, overrides map[string]string) ([]api.ParamValue, error) {
	var result *multierror.Error
	known := make(map[string]bool, len(desc.Params))
	values := make([]api.ParamValue, 0, len(desc.Params))

	for _, param := range desc.Params {
		known[param.Name] = true
		raw, overridden := overrides[param.Name]
		if !overridden {
			if param.Required && param.DefaultValue == nil {
				result = multierror.Append(result, errors.WithStack(&scopeerrors.ErrInvalidArgument{
					Name:    param.Name,
					Value:   "",
					Message: "required parameter has no value",
				}))
				continue
			}
			value, err := DefaultValue(param)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			values = append(values, value)
			continue
		}
		value, err := parseParam(param, raw)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		values = append(values, value)
	}

	for name, value := range overrides {
		if !known[name] {
			result = multierror.Append(result, errors.WithStack(&scopeerrors.ErrInvalidArgument{
				Name:    name,
				Value:   value,
				Message: "workload " + desc.WorkloadId + " has no such parameter",
			}))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return values, nil
}

func parseParam(param api.ParamDesc, raw string) (api.ParamValue, error) {
	switch param.Type {
	case api.ParamTypeNumber:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return api.ParamValue{}, errors.WithStack(&scopeerrors.ErrInvalidArgument{
				Name:    param.Name,
				Value:   raw,
				Message: "not an integer",
			})
		}
		if param.MinValue != nil && n < *param.MinValue {
			return api.ParamValue{}, errors.WithStack(&scopeerrors.ErrInvalidArgument{
				Name:    param.Name,
				Value:   raw,
				Message: "below minimum " + strconv.FormatInt(*param.MinValue, 10),
			})
		}
		if param.MaxValue != nil && n > *param.MaxValue {
			return api.ParamValue{}, errors.WithStack(&scopeerrors.ErrInvalidArgument{
				Name:    param.Name,
				Value:   raw,
				Message: "above maximum " + strconv.FormatInt(*param.MaxValue, 10),
			})
		}
		return api.NumberParam(n), nil
	case api.ParamTypeBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return api.ParamValue{}, errors.WithStack(&scopeerrors.ErrInvalidArgument{
				Name:    param.Name,
				Value:   raw,
				Message: "not a boolean",
			})
		}
		return api.BooleanParam(b), nil
	case api.ParamTypeString:
		return api.StringParam(raw), nil
	default:
		return api.ParamValue{}, unknownType(param)
	}
}

func unknownType(param api.ParamDesc) error {
	return errors.WithStack(&scopeerrors.ErrInvalidArgument{
		Name:    param.Name,
		Value:   string(param.Type),
		Message: "unknown parameter type",
	})
}
