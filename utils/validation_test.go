package utils

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/saeed-rahimi/ss/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Name     string          `json:"name" binding:"required"`
	Email    string          `json:"email" binding:"required,email"`
	Password string          `json:"password" binding:"required,min=8"`
	Phone    string          `json:"phone" binding:"required,phone"`
	Role     models.Role     `json:"role" binding:"required,role"`
	Location models.Location `json:"location"`
	Age      *int            `json:"age" binding:"omitempty,gte=18"`
}

type jobForm struct {
	JobType models.JobType `json:"jobType" binding:"required,jobtype"`
	Budget  float64        `json:"budget" binding:"required,gt=0"`
}

func validSignup() signupForm {
	return signupForm{
		Name:     "Sara",
		Email:    "sara@example.com",
		Password: "password123",
		Phone:    "09121234567",
		Role:     models.RoleEmployer,
		Location: models.Location{City: "Tabriz", Province: "East Azerbaijan"},
	}
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"09121234567", true},
		{"09901234567", true},
		{"9121234567", false},
		{"0912123456", false},
		{"091212345678", false},
		{"08121234567", false},
		{"0912123456a", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPhone(tt.phone))
		})
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	assert.NoError(t, ValidateStruct(validSignup()))
}

func TestValidateStruct_JoinsFieldMessages(t *testing.T) {
	form := validSignup()
	form.Name = ""
	form.Phone = "12345"
	form.Location.City = ""

	err := ValidateStruct(form)
	require.Error(t, err)

	msg := ValidationMessage(err)
	assert.Equal(t,
		"name is required, phone must be a valid mobile number like 09121234567, location.city is required",
		msg)
}

func TestValidateStruct_Rules(t *testing.T) {
	tooYoung := 17

	tests := []struct {
		name    string
		mutate  func(f *signupForm)
		message string
	}{
		{"bad email", func(f *signupForm) { f.Email = "nope" }, "email must be a valid email address"},
		{"short password", func(f *signupForm) { f.Password = "short" }, "password must be at least 8 characters"},
		{"unknown role", func(f *signupForm) { f.Role = "admin" }, "role must be specialist or employer"},
		{"under age", func(f *signupForm) { f.Age = &tooYoung }, "age must be at least 18"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validSignup()
			tt.mutate(&form)
			err := ValidateStruct(form)
			require.Error(t, err)
			assert.Equal(t, tt.message, ValidationMessage(err))
		})
	}
}

func TestValidateStruct_JobType(t *testing.T) {
	assert.NoError(t, ValidateStruct(jobForm{JobType: models.JobTypeTiling, Budget: 10}))

	err := ValidateStruct(jobForm{JobType: "gardening", Budget: 0})
	require.Error(t, err)
	msg := ValidationMessage(err)
	assert.True(t, strings.HasPrefix(msg, "jobType must be one of: painting, electrical"), msg)
	assert.Contains(t, msg, "budget is required")
}

func TestValidationMessage_DecodeErrors(t *testing.T) {
	var target jobForm

	err := json.Unmarshal([]byte(`{"budget":"lots"}`), &target)
	assert.Equal(t, "Invalid value for field budget", ValidationMessage(err))

	err = json.Unmarshal([]byte(`{"budget":`), &target)
	assert.Equal(t, "Request body is not valid JSON", ValidationMessage(err))

	assert.Equal(t, "Request body is required", ValidationMessage(io.EOF))
	assert.Equal(t, "something else", ValidationMessage(errors.New("something else")))
}

func TestRegisterBindingValidators_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterBindingValidators()
		RegisterBindingValidators()
	})
}
