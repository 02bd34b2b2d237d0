package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Request shape mirroring the checkout address fields
type addressTestRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Pincode string `json:"pincode" validate:"required,len=6,numeric"`
	Phone   string `json:"phone" validate:"required,min=10,max=15"`
}

type lineTestRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=100"`
}

func decodeInto(t *testing.T, payload interface{}, target interface{}) error {
	t.Helper()
	reqBody, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/test", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	return DecodeAndValidate(req, target)
}

func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("missing required fields are rejected", prop.ForAll(
		func(includeEmail bool, includePincode bool, includePhone bool) bool {
			reqMap := make(map[string]interface{})

			if includeEmail {
				reqMap["email"] = "john@example.com"
			}
			if includePincode {
				reqMap["pincode"] = "620001"
			}
			if includePhone {
				reqMap["phone"] = "9876543210"
			}

			allFieldsPresent := includeEmail && includePincode && includePhone

			var testReq addressTestRequest
			err := decodeInto(t, reqMap, &testReq)

			if allFieldsPresent {
				return err == nil
			}
			return err != nil
		},
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Test that validation errors are properly formatted
func TestValidationErrorsAreFormatted(t *testing.T) {
	reqMap := map[string]interface{}{
		"email":   "invalid-email",
		"pincode": "620001",
		"phone":   "9876543210",
	}

	var testReq addressTestRequest
	err := decodeInto(t, reqMap, &testReq)
	if err == nil {
		t.Fatal("expected a validation error")
	}

	validationErrors := FormatValidationErrors(err)
	if len(validationErrors) == 0 {
		t.Fatal("expected formatted validation errors")
	}
	for _, ve := range validationErrors {
		if ve.Field == "" || ve.Message == "" {
			t.Errorf("expected field and message to be set, got %+v", ve)
		}
	}
}

// Test pincode format validation
func TestProperty_PincodeValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("only six-digit pincodes pass", prop.ForAll(
		func(pincode string) bool {
			reqMap := map[string]interface{}{
				"email":   "john@example.com",
				"pincode": pincode,
				"phone":   "9876543210",
			}

			var testReq addressTestRequest
			err := decodeInto(t, reqMap, &testReq)

			valid := len(pincode) == 6
			for _, c := range pincode {
				if c < '0' || c > '9' {
					valid = false
				}
			}
			if valid {
				return err == nil
			}
			return err != nil
		},
		gen.RegexMatch(`[0-9a-z]{4,8}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Test order line quantity bounds
func TestProperty_QuantityRangeValidation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("quantities outside 1..100 are rejected", prop.ForAll(
		func(quantity int) bool {
			reqMap := map[string]interface{}{
				"productId": "0b6f51f0-94f1-4bff-a3fd-24c26f10eee1",
				"quantity":  quantity,
			}

			var testReq lineTestRequest
			err := decodeInto(t, reqMap, &testReq)

			if quantity >= 1 && quantity <= 100 {
				return err == nil
			}
			return err != nil
		},
		gen.IntRange(-10, 200),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Test product id format validation
func TestProductIDMustBeUUID(t *testing.T) {
	reqMap := map[string]interface{}{
		"productId": "not-a-uuid",
		"quantity":  1,
	}

	var testReq lineTestRequest
	if err := decodeInto(t, reqMap, &testReq); err == nil {
		t.Fatal("expected a validation error for malformed product id")
	}
}
