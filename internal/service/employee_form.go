package service

import (
	"fmt"
	"strings"

	"github.com/yourorg/staffdesk/internal/domain"
)

// FieldSpec describes one employee form field: what it is called and how it
// is validated. The same schema drives validation and the form endpoints, so
// clients and server can never disagree about the rules.
type FieldSpec struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	MaxLen   int    `json:"maxLength"`
}

// EmployeeFormSchema lists every mutable employee field. Tenant and creation
// time are not form fields: they are stamped server-side and any submitted
// value for them is ignored.
var EmployeeFormSchema = []FieldSpec{
	{Name: "first_name", Label: "First Name", Required: true, MaxLen: domain.MaxNameLen},
	{Name: "last_name", Label: "Last Name", Required: true, MaxLen: domain.MaxNameLen},
	{Name: "email", Label: "Email", Required: true, MaxLen: domain.MaxEmailLen},
	{Name: "phone", Label: "Phone", Required: true, MaxLen: domain.MaxPhoneLen},
	{Name: "address", Label: "Address", Required: true, MaxLen: domain.MaxAddressLen},
	{Name: "city", Label: "City", Required: true, MaxLen: domain.MaxCityLen},
	{Name: "state", Label: "State", Required: true, MaxLen: domain.MaxStateLen},
	{Name: "zipcode", Label: "Zipcode", Required: true, MaxLen: domain.MaxZipcodeLen},
}

// FieldErrors maps a field name to its validation message.
type FieldErrors map[string]string

// ValidationError carries per-field messages back to the handler boundary,
// where they become the error payload of a re-rendered form.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

// ValidateEmployeeForm checks a submitted form against the schema and
// returns the typed input on success. Pure function; the store is never
// touched on a validation failure. Unknown keys, including a forged
// tenant_id, are simply not read.
func ValidateEmployeeForm(form map[string]string) (domain.EmployeeInput, FieldErrors) {
	errs := FieldErrors{}
	values := make(map[string]string, len(EmployeeFormSchema))

	for _, spec := range EmployeeFormSchema {
		value := strings.TrimSpace(form[spec.Name])
		if spec.Required && value == "" {
			errs[spec.Name] = fmt.Sprintf("%s is required", spec.Label)
			continue
		}
		if spec.MaxLen > 0 && len(value) > spec.MaxLen {
			errs[spec.Name] = fmt.Sprintf("%s must be at most %d characters", spec.Label, spec.MaxLen)
			continue
		}
		values[spec.Name] = value
	}

	if len(errs) > 0 {
		return domain.EmployeeInput{}, errs
	}

	return domain.EmployeeInput{
		FirstName: values["first_name"],
		LastName:  values["last_name"],
		Email:     values["email"],
		Phone:     values["phone"],
		Address:   values["address"],
		City:      values["city"],
		State:     values["state"],
		Zipcode:   values["zipcode"],
	}, nil
}
