package handler

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/stocksync/backend/internal/domain/order"
	"github.com/stocksync/backend/internal/domain/shared/valueobject"
)

// SetupValidator configures the binding validator: JSON tag names in error
// messages plus the domain value tags used in request structs
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	_ = v.RegisterValidation("location", func(fl validator.FieldLevel) bool {
		return valueobject.Location(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("stage", func(fl validator.FieldLevel) bool {
		return order.Stage(strings.ToUpper(strings.TrimSpace(fl.Field().String()))).IsValid()
	})
}
