package apiclient

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Decode parses a response body and validates it against T's struct tags.
// Shape mismatches come back wrapped in ErrInvalidPayload.
func Decode[T any](data []byte) (T, error) {
	var out T
	if err := decodeInto(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

func decodeInto(data []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	v := reflect.ValueOf(out)
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(v.Addr().Interface()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
