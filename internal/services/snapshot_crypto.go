package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
)

// ageHeader prefixes every age-encrypted payload.
var ageHeader = []byte("age-encryption.org/v1")

var errPassphraseRequired = errors.New("snapshot is encrypted but no passphrase is configured")

// snapshotCipher encrypts archived snapshots with an age scrypt passphrase.
// An empty passphrase leaves snapshots in plain JSON.
type snapshotCipher struct {
	passphrase string
	// workFactor overrides the scrypt cost when non-zero.
	workFactor int
}

func (c snapshotCipher) enabled() bool {
	return c.passphrase != ""
}

func (c snapshotCipher) seal(plain []byte) ([]byte, error) {
	if !c.enabled() {
		return plain, nil
	}

	recipient, err := age.NewScryptRecipient(c.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to create scrypt recipient: %w", err)
	}
	if c.workFactor > 0 {
		recipient.SetWorkFactor(c.workFactor)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to start encryption: %w", err)
	}
	if _, err := w.Write(plain); err != nil {
		return nil, fmt.Errorf("failed to encrypt snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish encryption: %w", err)
	}
	return buf.Bytes(), nil
}

func (c snapshotCipher) open(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, ageHeader) {
		return data, nil
	}
	if !c.enabled() {
		return nil, errPassphraseRequired
	}

	identity, err := age.NewScryptIdentity(c.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to create scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt snapshot: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read decrypted snapshot: %w", err)
	}
	return plain, nil
}
