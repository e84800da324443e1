package mcp

import (
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/JamesPrial/mcp-fleet/pkg/errors"
)

var argValidator = validator.New(validator.WithRequiredStructEnabled())

// DecodeArguments decodes raw tool arguments into out (a pointer to a
// struct with mapstructure tags) and validates its `validate` tags.
// JSON numbers decode into integer fields.
func DecodeArguments(args map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           out,
		WeaklyTypedInput: false,
		ZeroFields:       true,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to build argument decoder")
	}
	if args != nil {
		if err := decoder.Decode(args); err != nil {
			return errors.Wrap(err, errors.ErrCodeTransportInvalidParams, "invalid tool arguments")
		}
	}
	if err := argValidator.Struct(out); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); ok {
			return errors.Wrap(err, errors.ErrCodeInternal, "arguments target must be a struct pointer")
		}
		return errors.Wrap(err, errors.ErrCodeValidationInvalid, "invalid tool arguments: "+err.Error())
	}
	return nil
}
