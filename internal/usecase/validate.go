package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/edumarket/storefront/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("vnphone", func(fl validator.FieldLevel) bool {
		return domain.ValidPhone(fl.Field().String())
	})
	return v
}

type RegistrationInput struct {
	FullName string      `json:"fullName" validate:"required,min=2"`
	Email    string      `json:"email" validate:"required,email"`
	Phone    string      `json:"phone" validate:"required,vnphone"`
	Password string      `json:"password" validate:"required,min=6"`
	Role     domain.Role `json:"role" validate:"omitempty,oneof=buyer vendor"`
}

type PhoneInput struct {
	Phone string `json:"phone" validate:"required,vnphone"`
}

type CodeInput struct {
	Code string `json:"code" validate:"required,len=6"`
}

type PasswordInput struct {
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	FullName *string `json:"fullName" validate:"omitempty,min=2"`
	Phone    *string `json:"phone" validate:"omitempty,vnphone"`
}

// check runs struct validation and converts failures into a
// *domain.ValidationError keyed by JSON field name.
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fieldMessage(fe)
		}
	}
	return &domain.ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "vnphone":
		return "Invalid phone number"
	case "min":
		return fmt.Sprintf("Minimum length is %s", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	case "eqfield":
		return "Passwords do not match"
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("Invalid %s field", fe.Field())
	}
}

func (in *RegistrationInput) normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = domain.NormalizePhone(in.Phone)
}

func (in *PhoneInput) normalize() {
	in.Phone = domain.NormalizePhone(in.Phone)
}

func (in *CodeInput) normalize() {
	in.Code = strings.TrimSpace(in.Code)
}

func (in *ProfileInput) normalize() {
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		in.FullName = &name
	}
	if in.Phone != nil {
		phone := domain.NormalizePhone(*in.Phone)
		in.Phone = &phone
	}
}
