package auth

import (
	"regexp"
	"strings"
	"testing"
)

func TestGeneratePINIsFourDigits(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{4}$`)
	for i := 0; i < 200; i++ {
		pin, err := GeneratePIN(DefaultPINLength)
		if err != nil {
			t.Fatalf("GeneratePIN: %v", err)
		}
		if !pattern.MatchString(pin) {
			t.Fatalf("unexpected pin %q", pin)
		}
		if pin[0] == '0' {
			t.Fatalf("pin %q should not start with zero", pin)
		}
	}
}

func TestGeneratePINRejectsHugeLength(t *testing.T) {
	if _, err := GeneratePIN(19); err == nil {
		t.Fatal("expected error for oversized pin")
	}
	pin, err := GeneratePIN(0)
	if err != nil || len(pin) != DefaultPINLength {
		t.Fatalf("zero length should fall back to default, got %q, %v", pin, err)
	}
}

func TestGenerateCodeAlphabet(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	for i := 0; i < 500; i++ {
		code, err := GenerateCode(VerificationAlphabet, 6)
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("unexpected code %q", code)
		}
		if strings.ContainsAny(code, "IO01") {
			t.Fatalf("code %q contains an ambiguous character", code)
		}
	}
	if _, err := GenerateCode("", 6); err == nil {
		t.Error("empty alphabet should fail")
	}
}

func TestHashAndComparePIN(t *testing.T) {
	hash, err := HashPIN("1234", 4)
	if err != nil {
		t.Fatalf("HashPIN: %v", err)
	}
	if hash == "1234" {
		t.Fatal("hash must not equal the plaintext")
	}
	if err := ComparePIN(hash, "1234"); err != nil {
		t.Errorf("matching pin rejected: %v", err)
	}
	if err := ComparePIN(hash, "4321"); err == nil {
		t.Error("wrong pin accepted")
	}
}

func TestValidPIN(t *testing.T) {
	for pin, want := range map[string]bool{
		"1234": true, "000000": true, "123456789012": true,
		"": false, "123": false, "1234567890123": false, "12a4": false, " 123": false,
	} {
		if got := ValidPIN(pin); got != want {
			t.Errorf("ValidPIN(%q) = %v, want %v", pin, got, want)
		}
	}
}
