package importer

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// CalculateFileHash computes SHA-256 hash of a file
func CalculateFileHash(filepath string) (string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// HashBytes computes the same digest as CalculateFileHash for an upload
// already held in memory
func HashBytes(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
