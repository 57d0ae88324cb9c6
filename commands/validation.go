package commands

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"example.com/hospital/services/emr/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// decodePayload unmarshals and validates a command payload. Both failure
// modes come back as ValidationError so callers can map them to a 4xx.
func decodePayload(cmd domain.Command, out interface{}) error {
	if err := json.Unmarshal(cmd.Data, out); err != nil {
		return domain.NewValidationError("", "malformed command payload: "+err.Error())
	}
	if err := validate.Struct(out); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok && len(fieldErrors) > 0 {
			first := fieldErrors[0]
			return domain.NewValidationError(first.Field(), "failed validation on tag "+first.Tag())
		}
		return domain.NewValidationError("", err.Error())
	}
	return nil
}
