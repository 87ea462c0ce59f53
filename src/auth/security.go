package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
)

// Helper function to encrypt data
func encrypt(data, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, data, nil), nil
}

// Helper function to decrypt data
func decrypt(data, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// VerifyCredentials checks if the provided credentials are valid
func (s *UserStore) VerifyCredentials(username, password string) (bool, *User) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, storedUser := range s.users {
		if storedUser.Username != username {
			continue
		}

		// Hash the password using the same parameters and salt
		ph := storedUser.PasswordHash
		hash := argon2.IDKey([]byte(password), ph.Salt, ph.Time, ph.Memory, ph.Threads, ph.KeyLen)
		if subtle.ConstantTimeCompare(hash, ph.Hash) != 1 {
			return false, nil
		}
		return true, &User{
			ID:       storedUser.ID,
			Username: storedUser.Username,
		}
	}

	return false, nil
}
