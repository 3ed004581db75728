package testutil

import "vsync/internal/encryption"

// TestPassphrase is the passphrase NewTestEncryptor is set up with.
const TestPassphrase = "correct horse"

// NewTestEncryptor returns a TestEncryptor already set up with TestPassphrase.
func NewTestEncryptor() *encryption.TestEncryptor {
	enc := encryption.NewTestEncryptor()
	enc.Setup(TestPassphrase)
	return enc
}
