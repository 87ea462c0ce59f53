package helpers

import (
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// FileExists checks if a file exists and is not a directory
func FileExists(filename string, logger *zap.SugaredLogger) bool {
	info, err := os.Stat(filename)
	if err != nil {
		if !os.IsNotExist(err) && logger != nil {
			logger.Warnf("Error checking file %s for existence: %v", filename, err)
		}
		return false
	}

	return !info.IsDir()
}

// EncodeBSON marshals a metadata value into BSON.
func EncodeBSON(v interface{}) ([]byte, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("error encoding BSON: %w", err)
	}
	return data, nil
}

// DecodeBSON unmarshals BSON produced by EncodeBSON into v.
func DecodeBSON(data []byte, v interface{}) error {
	if err := bson.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error decoding BSON: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("error creating temp file %s: %w", tmp, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("error writing temp file %s: %w", tmp, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("error syncing temp file %s: %w", tmp, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error closing temp file %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error replacing %s: %w", path, err)
	}
	return nil
}
