package api

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/radflow-triage-server/internal/domain"
)

var registerOnce sync.Once

// registerValidators adds the custom binding tags used by request types.
func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = domain.RegisterEnumValidation(v)
		}
	})
}
