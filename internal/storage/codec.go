package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/JamesPrial/mcp-fleet/pkg/errors"
)

// UpdatedAtField is re-stamped on update when the stored record carries it.
const UpdatedAtField = "updated_at"

// validate caches struct metadata; validator instances are safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// encodeEntity renders the on-disk representation: an indented JSON object.
func encodeEntity[T Entity](entity T) ([]byte, error) {
	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeTransportMarshal, "failed to encode entity %s", entity.EntityID())
	}
	return data, nil
}

// decodeEntity builds a fresh entity from stored bytes. Every call returns
// an independent value. A record that parses but does not rebuild a valid
// entity of type T, including one without an ID, is corrupt.
func decodeEntity[T Entity](data []byte) (T, error) {
	var entity T
	if err := json.Unmarshal(data, &entity); err != nil {
		return entity, errors.Wrap(err, errors.ErrCodeStorageCorrupt, "failed to decode stored entity")
	}
	if entity.EntityID() == "" {
		return entity, errors.New(errors.ErrCodeStorageCorrupt, "stored entity has no id")
	}
	if err := validateEntity(entity); err != nil {
		return entity, errors.Wrap(err, errors.ErrCodeStorageCorrupt, "stored entity is invalid")
	}
	return entity, nil
}

// toFieldMap converts a struct, map or JSON-tagged value into its field map.
func toFieldMap(v interface{}) (map[string]interface{}, error) {
	if v == nil {
		return nil, errors.New(errors.ErrCodeValidationRequired, "input cannot be nil")
	}
	if m, ok := v.(map[string]interface{}); ok {
		fields := make(map[string]interface{}, len(m))
		for k, val := range m {
			fields[k] = val
		}
		return fields, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTransportMarshal, "failed to convert input to fields")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeValidationInvalid, "input must be an object, got %T", v)
	}
	return fields, nil
}

// fromFieldMap constructs a typed entity from a field map.
func fromFieldMap[T Entity](fields map[string]interface{}) (T, error) {
	var entity T
	data, err := json.Marshal(fields)
	if err != nil {
		return entity, errors.Wrap(err, errors.ErrCodeTransportMarshal, "failed to encode fields")
	}
	if err := json.Unmarshal(data, &entity); err != nil {
		return entity, errors.Wrap(err, errors.ErrCodeValidationInvalid, "fields do not match entity type")
	}
	return entity, nil
}

// mergePatch shallow-merges patch over current: top-level keys replace,
// nested values are replaced wholesale. The ID is immutable.
func mergePatch[T Entity](current T, patch map[string]interface{}, now time.Time) (T, error) {
	var merged T
	fields, err := toFieldMap(current)
	if err != nil {
		return merged, err
	}
	for key, value := range patch {
		fields[key] = value
	}
	if _, ok := fields[UpdatedAtField]; ok {
		fields[UpdatedAtField] = now.UTC().Format(time.RFC3339Nano)
	}

	merged, err = fromFieldMap[T](fields)
	if err != nil {
		return merged, err
	}
	if merged.EntityID() != current.EntityID() {
		return merged, errors.Newf(errors.ErrCodeValidationInvalid,
			"entity ID is immutable: cannot change '%s' to '%s'", current.EntityID(), merged.EntityID())
	}
	return merged, validateEntity(merged)
}

// validateEntity runs struct tag validation on entity.
func validateEntity[T Entity](entity T) error {
	if err := validate.Struct(entity); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); ok {
			// not a struct; nothing to check
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeValidationInvalid, fmt.Sprintf("invalid entity %s", entity.EntityID()))
	}
	return nil
}
