package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash must not equal plaintext")
	}
	if !CheckPassword("correct horse battery", hash) {
		t.Fatal("matching password should validate")
	}
	if CheckPassword("wrong password!", hash) {
		t.Fatal("wrong password should not validate")
	}
	if CheckPassword("anything", "") {
		t.Fatal("empty stored hash should not validate")
	}
}

func TestHashesAreSalted(t *testing.T) {
	h1, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h2 {
		t.Fatal("two hashes of the same password should differ")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err == nil {
		t.Fatal("expected error for short password")
	}
	if err := ValidatePassword("long enough password"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
