package internal

import "testing"

func TestNewNumericCode(t *testing.T) {
	code, err := NewNumericCode(CodeDigits)
	if err != nil {
		t.Fatalf("NewNumericCode failed: %v", err)
	}
	if len(code) != CodeDigits {
		t.Fatalf("expected %d digits, got %q", CodeDigits, code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("non-digit in code %q", code)
		}
	}

	if _, err := NewNumericCode(3); err == nil {
		t.Fatal("expected rejection of short codes")
	}
	if _, err := NewNumericCode(11); err == nil {
		t.Fatal("expected rejection of long codes")
	}
}

func TestCodesEqual(t *testing.T) {
	if !CodesEqual("123456", "123456") {
		t.Fatal("equal codes must match")
	}
	if CodesEqual("123456", "123457") {
		t.Fatal("different codes must not match")
	}
	if CodesEqual("", "") || CodesEqual("123456", "") {
		t.Fatal("empty codes must never match")
	}
}
