package paystack

import "testing"

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"event":"charge.success","data":{"reference":"DEP_0011AABBCCDD","amount":250000,"status":"success"}}`)
	secret := "whsec_test"

	sig := Sign(payload, secret)
	if len(sig) != 128 {
		t.Fatalf("signature length = %d, want 128 hex chars", len(sig))
	}
	if !VerifySignature(payload, sig, secret) {
		t.Fatal("valid signature rejected")
	}
	if VerifySignature(payload, sig, "whsec_other") {
		t.Fatal("signature accepted under wrong secret")
	}
	if VerifySignature([]byte(`{"tampered":true}`), sig, secret) {
		t.Fatal("signature accepted for tampered payload")
	}
	if VerifySignature(payload, sig[:len(sig)-2], secret) {
		t.Fatal("truncated signature accepted")
	}
	if VerifySignature(payload, "", secret) {
		t.Fatal("empty signature accepted")
	}
}
