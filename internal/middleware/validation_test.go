package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

type selectRequest struct {
	ID        string `json:"id" validate:"required"`
	StoreName string `json:"storeName" validate:"required"`
	Page      int    `json:"page" validate:"gte=0,lte=500"`
}

func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("missing required fields are rejected", prop.ForAll(
		func(includeID bool, includeName bool) bool {
			reqMap := make(map[string]interface{})
			if includeID {
				reqMap["id"] = "s1"
			}
			if includeName {
				reqMap["storeName"] = "Acme"
			}

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/dashboard/stores/options/select", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var body selectRequest
			err := DecodeAndValidate(req, &body)

			if includeID && includeName {
				return err == nil
			}
			return err != nil
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_PageRangeValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("page outside the range is rejected", prop.ForAll(
		func(page int) bool {
			reqBody, _ := json.Marshal(map[string]interface{}{"id": "s1", "storeName": "Acme", "page": page})
			req := httptest.NewRequest("POST", "/test", bytes.NewReader(reqBody))

			var body selectRequest
			err := DecodeAndValidate(req, &body)
			if page >= 0 && page <= 500 {
				return err == nil
			}
			return err != nil
		},
		gen.IntRange(-100, 700),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestFormatValidationErrors(t *testing.T) {
	type loginForm struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required"`
	}

	err := ValidateRequest(loginForm{Email: "not-an-email"})
	errs := FormatValidationErrors(err)
	assert.Equal(t, []ValidationError{
		{Field: "Email", Message: "Invalid email format"},
		{Field: "Password", Message: "This field is required"},
	}, errs)
	assert.Equal(t, "Email: Invalid email format", FirstValidationMessage(err, "fallback"))

	assert.Empty(t, FormatValidationErrors(errors.New("boom")))
	assert.Equal(t, "fallback", FirstValidationMessage(errors.New("boom"), "fallback"))
}

func TestDecodeAndValidate_MalformedBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte("{")))
	var body selectRequest
	err := DecodeAndValidate(req, &body)
	assert.ErrorContains(t, err, "invalid request body")
	assert.Empty(t, FormatValidationErrors(err))
}
