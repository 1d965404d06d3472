package util

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Cap   *int   `json:"maximum_visits" validate:"omitempty,min=0"`
}

func TestValidateStruct(t *testing.T) {
	if err := ValidateStruct(&sampleRequest{Email: "foo@bar.com"}); err != nil {
		t.Fatalf("expected valid struct, got %v", err)
	}

	if err := ValidateStruct(&sampleRequest{Email: "not-an-email"}); err == nil {
		t.Fatal("expected an error for a bad email")
	} else if !strings.Contains(err.Error(), "email") {
		t.Fatalf("expected the wire field name in the message, got %q", err.Error())
	}

	negative := -1
	if err := ValidateStruct(&sampleRequest{Cap: &negative}); err == nil {
		t.Fatal("expected an error for a negative cap")
	}
}
