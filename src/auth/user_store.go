package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// NewUserStore creates a new user store backed by an encrypted file. An
// empty filePath gives an in-memory store.
func NewUserStore(filePath string, encryptionKeyString string) (*UserStore, error) {
	// Convert encryption key string to bytes (32 bytes for AES-256)
	encryptionKey := make([]byte, 32)
	copy(encryptionKey, encryptionKeyString)

	store := &UserStore{
		encryptionKey: encryptionKey,
		filePath:      filePath,
		users:         []User{},
	}
	if filePath == "" {
		return store, nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Load existing users if the file exists
	if _, err := os.Stat(filePath); err == nil {
		if err := store.Load(); err != nil {
			return nil, fmt.Errorf("failed to load user store: %w", err)
		}
	}

	return store, nil
}

// save persists the user store to disk. Callers hold s.mu.
func (s *UserStore) save() error {
	if !s.dirty || s.filePath == "" {
		return nil
	}

	data, err := json.Marshal(s.users)
	if err != nil {
		return fmt.Errorf("failed to marshal users: %w", err)
	}

	encryptedData, err := encrypt(data, s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt data: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.filePath), "users-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempFilePath := tempFile.Name()

	if _, err := tempFile.Write(encryptedData); err != nil {
		tempFile.Close()
		os.Remove(tempFilePath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		os.Remove(tempFilePath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tempFilePath, 0600); err != nil {
		os.Remove(tempFilePath)
		return fmt.Errorf("failed to set file permissions: %w", err)
	}

	// Atomically replace the old file with the new one
	if err := os.Rename(tempFilePath, s.filePath); err != nil {
		os.Remove(tempFilePath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.dirty = false
	return nil
}

// Load reads the user store from disk
func (s *UserStore) Load() error {
	encryptedData, err := os.ReadFile(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	data, err := decrypt(encryptedData, s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to decrypt data: %w", err)
	}

	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return fmt.Errorf("failed to unmarshal users: %w", err)
	}

	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
	return nil
}
