package validation

import (
	"github.com/go-playground/validator/v10"

	"gmaps-scraper/internal/exporter"
	"gmaps-scraper/pkg/models"
)

// New returns a validator with the service's custom tags registered
func New() *validator.Validate {
	v := validator.New()
	RegisterValidators(v)
	return v
}

// RegisterValidators registers all custom validators
func RegisterValidators(v *validator.Validate) {
	v.RegisterValidation("delivery_mode", ValidateDeliveryMode)
	v.RegisterValidation("export_format", ValidateExportFormat)
}

// ValidateDeliveryMode accepts "bulk" and "individual"
func ValidateDeliveryMode(fl validator.FieldLevel) bool {
	return models.DeliveryMode(fl.Field().String()).IsValid()
}

// ValidateExportFormat accepts the formats the exporter can render
func ValidateExportFormat(fl validator.FieldLevel) bool {
	return exporter.IsSupported(fl.Field().String())
}
