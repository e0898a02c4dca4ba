package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/event-api/internal/model"
)

// RegisterCustom wires domain validations into gin's binding engine. Request
// structs can then use `binding:"dispatchmethod"` and
// `binding:"dispatchoutcome"` tags.
func RegisterCustom() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	if err := v.RegisterValidation("dispatchmethod", validDeliveryMethod); err != nil {
		return err
	}
	return v.RegisterValidation("dispatchoutcome", validDispatchOutcome)
}

func validDeliveryMethod(fl validator.FieldLevel) bool {
	_, err := model.ParseDeliveryMethod(fl.Field().String())
	return err == nil
}

func validDispatchOutcome(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := model.ParseDispatchOutcome(s)
	return err == nil
}
