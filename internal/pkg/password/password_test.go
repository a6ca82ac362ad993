package password

import (
	"errors"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("Sup3rSecret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "Sup3rSecret!" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !Verify("Sup3rSecret!", hash) {
		t.Fatal("correct password should verify")
	}
	if Verify("wrong", hash) {
		t.Fatal("wrong password should not verify")
	}
}

func TestCheckPolicy(t *testing.T) {
	cases := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid", "Abcdef1!", true},
		{"too short", "Ab1!", false},
		{"too long", "Abcdefgh1!Abcdefgh1!x", false},
		{"no upper", "abcdef1!", false},
		{"no lower", "ABCDEF1!", false},
		{"no digit", "Abcdefg!", false},
		{"no special", "Abcdefg1", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPolicy(tc.password)
			if tc.ok && err != nil {
				t.Errorf("CheckPolicy(%q) = %v, want nil", tc.password, err)
			}
			if !tc.ok && !errors.Is(err, ErrWeakPassword) {
				t.Errorf("CheckPolicy(%q) = %v, want ErrWeakPassword", tc.password, err)
			}
		})
	}
}
