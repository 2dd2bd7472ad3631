package keystore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"remote-screen/pkg/pairing"
)

var session = pairing.SessionConfig{
	GUID:      "7f1c2a90-panel",
	SRPKey:    "00112233445566778899aabbccddeeff",
	PublicKey: "0badc0de",
}

func init() {
	// 测试中降低 scrypt 成本
	scryptN = 1 << 10
}

func TestSealOpen(t *testing.T) {
	passphrase := "secure-password"

	// 1. Seal
	k, err := Seal(session, passphrase)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if k.Crypto.Cipher != "aes-256-gcm" {
		t.Errorf("Expected cipher aes-256-gcm, got %s", k.Crypto.Cipher)
	}

	// 2. Open with correct passphrase
	got, err := Open(k, passphrase)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got != session {
		t.Errorf("Open mismatch. Expected %+v, got %+v", session, got)
	}

	// 3. Open with wrong passphrase
	if _, err := Open(k, "wrong-password"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Expected ErrWrongPassphrase, got %v", err)
	}
}

func TestSealRejectsIncompleteSession(t *testing.T) {
	if _, err := Seal(pairing.SessionConfig{GUID: "g"}, "pw"); err == nil {
		t.Error("Expected error for incomplete session")
	}
}

func TestFileSaveLoadRemove(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "nested", "session.json")
	passphrase := "123456"

	k, err := Seal(session, passphrase)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	// Save
	if err := k.SaveToFile(filename); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}
	info, err := os.Stat(filename)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	// Load
	loaded, err := LoadFromFile(filename)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Id != k.Id {
		t.Errorf("ID mismatch after load")
	}
	got, err := Open(loaded, passphrase)
	if err != nil {
		t.Fatalf("Open loaded failed: %v", err)
	}
	if got != session {
		t.Errorf("Content mismatch")
	}

	// Remove, twice
	if err := Remove(filename); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := Remove(filename); err != nil {
		t.Errorf("Second Remove should be a no-op, got %v", err)
	}
	if _, err := LoadFromFile(filename); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got %v", err)
	}
}
