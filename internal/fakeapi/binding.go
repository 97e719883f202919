package fakeapi

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var registerBindings sync.Once

// registerBindingRules gin 기본 validator에 notblank 등록
func registerBindingRules() {
	registerBindings.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic("register notblank binding: " + err.Error())
		}
	})
}
