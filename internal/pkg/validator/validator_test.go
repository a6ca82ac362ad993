package validator

import "testing"

func TestUtoridTag(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"johndoe1", true},
		{"JOHNDOE1", true},
		{"12345678", true},
		{"johndoe", false},
		{"johndoe12", false},
		{"john_doe", false},
		{"", false},
	}
	for _, tt := range tests {
		err := ValidateVar(tt.value, "utorid")
		if (err == nil) != tt.valid {
			t.Errorf("ValidateVar(%q, utorid): err = %v, want valid = %v", tt.value, err, tt.valid)
		}
	}
}

func TestRoleTag(t *testing.T) {
	for _, role := range []string{"regular", "cashier", "manager", "superuser"} {
		if err := ValidateVar(role, "role"); err != nil {
			t.Errorf("ValidateVar(%q, role): %v", role, err)
		}
	}
	if err := ValidateVar("admin", "role"); err == nil {
		t.Error("ValidateVar(admin, role) should fail")
	}
}

func TestValidateUsesJSONFieldNames(t *testing.T) {
	type form struct {
		Utorid string `json:"utorid" validate:"required,utorid"`
	}

	errs := Validate(&form{})
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if _, ok := errs["utorid"]; !ok {
		t.Errorf("errors keyed by %v, want json name utorid", errs)
	}
}
