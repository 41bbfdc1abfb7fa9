package handler

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	digitsPattern  = regexp.MustCompile(`^\d+$`)
	registerOnce   sync.Once
	registerResult error
)

// registerValidators adds the "digits" tag to gin's validator. Handlers
// call it on construction, so it must be idempotent.
func registerValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		registerResult = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
			return digitsPattern.MatchString(fl.Field().String())
		})
	})
	return registerResult
}

func mustRegisterValidators() {
	if err := registerValidators(); err != nil {
		panic(err)
	}
}
