package domain

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a payload's JSON field name to a human readable message.
type FieldErrors map[string]string

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		validate = v
	})
	return validate
}

// Validate checks payload against its struct tags. It returns nil or a
// FieldErrors keyed by JSON field name.
func Validate(payload any) FieldErrors {
	err := instance().Struct(payload)
	if err == nil {
		return nil
	}

	out := FieldErrors{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.Field()] = messageForTag(fe.Tag(), fe.Param())
		}
		return out
	}
	out["_"] = "payload inválido"
	return out
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required", "notblank":
		return "campo obrigatório"
	case "oneof":
		return "valor deve ser um de: " + param
	case "gt":
		return "deve ser maior que " + param
	default:
		return "valor inválido"
	}
}
