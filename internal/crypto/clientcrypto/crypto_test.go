package clientcrypto

import (
	"bytes"
	"crypto/subtle"
	"testing"
)

func TestRand_LengthUniq(t *testing.T) {
	t.Parallel()
	const n = 48
	a, err := Rand(n)
	if err != nil {
		t.Fatalf("Rand: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, _ := Rand(n)
	if bytes.Equal(a, b) {
		t.Fatalf("Rand produced equal slices")
	}
}

func TestDeriveKEK_DeterministicAndSaltDependent(t *testing.T) {
	t.Parallel()
	pw := []byte("secret-pass")
	s1 := []byte("salt-1")
	s2 := []byte("salt-2")
	k1 := DeriveKEK(pw, s1)
	k2 := DeriveKEK(pw, s1)
	if subtle.ConstantTimeCompare(k1, k2) != 1 {
		t.Fatalf("DeriveKEK not deterministic")
	}
	if subtle.ConstantTimeCompare(k1, DeriveKEK(pw, s2)) != 0 {
		t.Fatalf("DeriveKEK must change with salt")
	}
	if subtle.ConstantTimeCompare(k1, DeriveKEK([]byte("other"), s1)) != 0 {
		t.Fatalf("DeriveKEK must change with password")
	}
}

func TestWrapUnwrapKey(t *testing.T) {
	t.Parallel()
	kek := DeriveKEK([]byte("pw"), []byte("salt"))
	priv, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	wrapped, err := WrapKey(kek, priv)
	if err != nil {
		t.Fatalf("WrapKey: %v", err)
	}
	out, err := UnwrapKey(kek, wrapped)
	if err != nil {
		t.Fatalf("UnwrapKey: %v", err)
	}
	if out != priv {
		t.Fatalf("unwrap != original")
	}

	bad := DeriveKEK([]byte("pw2"), []byte("salt"))
	if _, err := UnwrapKey(bad, wrapped); err == nil {
		t.Fatalf("UnwrapKey with wrong kek must fail")
	}
	if _, err := UnwrapKey(kek, []byte{1, 2}); err == nil {
		t.Fatalf("UnwrapKey must reject short input")
	}
}

func TestPublicKey_EncodeParse(t *testing.T) {
	t.Parallel()
	priv, pub, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	again, err := priv.Public()
	if err != nil || again != pub {
		t.Fatalf("Public mismatch: %v", err)
	}
	parsed, err := ParsePublicKey(pub.String())
	if err != nil || parsed != pub {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if _, err := ParsePublicKey("not base64!"); err == nil {
		t.Fatalf("want error on bad encoding")
	}
	if _, err := ParsePublicKey("AAAA"); err == nil {
		t.Fatalf("want error on short key")
	}
}

func TestSealOpen_TwoRecipients(t *testing.T) {
	t.Parallel()
	alicePriv, alicePub, _ := GenerateKeyPair()
	bobPriv, bobPub, _ := GenerateKeyPair()
	aad := ConversationAAD("alice", "bob")
	pt := []byte("hello bob \x00\x01")

	forSelf, err := Seal(alicePub, aad, pt)
	if err != nil {
		t.Fatalf("Seal self: %v", err)
	}
	forBob, err := Seal(bobPub, aad, pt)
	if err != nil {
		t.Fatalf("Seal bob: %v", err)
	}
	if bytes.Equal(forSelf, forBob) {
		t.Fatalf("blobs for different keys must differ")
	}

	got, err := Open(alicePriv, aad, forSelf)
	if err != nil || !bytes.Equal(got, pt) {
		t.Fatalf("Open self: %v", err)
	}
	got, err = Open(bobPriv, aad, forBob)
	if err != nil || !bytes.Equal(got, pt) {
		t.Fatalf("Open bob: %v", err)
	}

	if _, err := Open(bobPriv, aad, forSelf); err == nil {
		t.Fatalf("bob must not open alice's copy")
	}
	if _, err := Open(bobPriv, ConversationAAD("mallory", "bob"), forBob); err == nil {
		t.Fatalf("expected error on aad mismatch")
	}
	if _, err := Open(bobPriv, aad, forBob[:10]); err == nil {
		t.Fatalf("expected error on short blob")
	}
}
