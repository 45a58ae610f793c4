package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"rentalspot/internal/app/commands"
	"rentalspot/internal/app/queries"
	"rentalspot/internal/domain/shared/apperr"
)

type Validator interface {
	Validate(ctx context.Context, message any) error
}

func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return beforeCommand(func(ctx context.Context, cmd commands.Command) error {
		return v.Validate(ctx, cmd)
	})
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return beforeQuery(func(ctx context.Context, q queries.Query) error {
		return v.Validate(ctx, q)
	})
}

// SelfValidating messages run their own checks after the struct tags pass.
type SelfValidating interface {
	Validate() error
}

// StructValidator checks `validate` struct tags and reports failures as
// validation errors.
type StructValidator struct {
	v *validator.Validate
}

func NewStructValidator() *StructValidator {
	return &StructValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (s *StructValidator) Validate(ctx context.Context, message any) error {
	op := fmt.Sprintf("validate %T", message)
	if err := s.v.StructCtx(ctx, message); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return apperr.Validation(op, describe(fieldErrs))
		}
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// non-struct messages carry no tags
			return nil
		}
		return apperr.Validation(op, err)
	}
	if sv, ok := message.(SelfValidating); ok {
		if err := sv.Validate(); err != nil {
			if apperr.KindOf(err) != "" {
				return err
			}
			return apperr.Validation(op, err)
		}
	}
	return nil
}

func describe(errs validator.ValidationErrors) error {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}
