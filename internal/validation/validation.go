// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

// Package validation wraps go-playground/validator with the domain's
// custom rules. Validation failures fail fast at the write boundary and
// never reach the audit log.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mkosonen/kulkue/internal/dateutil"
	"github.com/mkosonen/kulkue/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// iso_date: YYYY-MM-DD on a real calendar day.
	_ = v.RegisterValidation("iso_date", func(fl validator.FieldLevel) bool {
		_, err := dateutil.ParseISO(fl.Field().String())
		return err == nil
	})

	// clock_time: HH:MM or HH:MM:SS.
	_ = v.RegisterValidation("clock_time", func(fl validator.FieldLevel) bool {
		_, err := dateutil.NormalizeTime(fl.Field().String())
		return err == nil
	})

	// event_type: one of the demonstration kinds.
	_ = v.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		return models.ValidEventType(models.EventType(fl.Field().String()))
	})

	return v
}

// Struct validates a tagged struct, returning a single flattened error
// naming every failed field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("validation: %s", strings.Join(parts, "; "))
}
