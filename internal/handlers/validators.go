package handlers

import (
	"sync"

	"github.com/budgetke/budgetke-api/internal/payments"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerValidatorsOnce sync.Once

// RegisterValidators installs the Kenyan MSISDN rule (tag "kephone") on
// gin's binding engine. Idempotent; called from router setup.
func RegisterValidators() {
	registerValidatorsOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("kephone", func(fl validator.FieldLevel) bool {
				return payments.ValidPhone(fl.Field().String())
			})
		}
	})
}
