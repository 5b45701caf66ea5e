package auth

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	credentialDir  = ".camera-sim"
	credentialFile = "credentials.gpg"
)

// keyEnvVars are checked in order; GEMINI_API_KEY wins when both are set.
var keyEnvVars = []string{"GEMINI_API_KEY", "API_KEY"}

// GetAPIKey retrieves the Gemini API key from available sources.
// Priority order:
//  1. GEMINI_API_KEY environment variable
//  2. API_KEY environment variable
//  3. GPG-encrypted file at ~/.camera-sim/credentials.gpg
//
// When nothing is configured it returns a *ValidationError of type ErrTypeNoKey.
func GetAPIKey() (string, error) {
	for _, name := range keyEnvVars {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			log.Debug().Str("source", name).Msg("Using API key from environment variable")
			return key, nil
		}
	}

	key, err := getFromGPG()
	if err == nil && key != "" {
		log.Debug().Msg("Using API key from GPG encrypted file")
		return key, nil
	}

	return "", &ValidationError{
		Type:    ErrTypeNoKey,
		Message: "API key not found; set GEMINI_API_KEY",
		Err:     err,
	}
}

// IsNoKey reports whether err means no credential was configured.
func IsNoKey(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Type == ErrTypeNoKey
}

// getFromGPG decrypts the API key from the GPG-encrypted credentials file.
func getFromGPG() (string, error) {
	credPath, err := getCredentialPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(credPath); os.IsNotExist(err) {
		return "", fmt.Errorf("GPG credentials file not found at %s", credPath)
	}

	gpgPath, err := exec.LookPath("gpg")
	if err != nil {
		return "", fmt.Errorf("gpg not found: %w", err)
	}

	log.Debug().Str("file", credPath).Msg("Decrypting GPG credentials")

	args := []string{"--decrypt", "--quiet", "--batch"}
	if passphrasePath, ok := passphraseFile(); ok {
		args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", passphrasePath)
	}
	args = append(args, credPath)

	output, err := exec.Command(gpgPath, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("GPG decryption failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("GPG decryption failed: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

// getCredentialPath returns the full path to the credentials file.
func getCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, credentialDir, credentialFile), nil
}

// passphraseFile returns ~/.camera-sim/.gpg-passphrase when it exists and is
// readable only by its owner.
func passphraseFile() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	p := filepath.Join(home, credentialDir, ".gpg-passphrase")
	fi, err := os.Stat(p)
	if err != nil {
		return "", false
	}
	if fi.Mode().Perm()&0077 != 0 {
		log.Warn().
			Str("passphrase_file", p).
			Str("permissions", fmt.Sprintf("%04o", fi.Mode().Perm())).
			Msg("Passphrase file has insecure permissions (should be 0600); skipping")
		return "", false
	}
	return p, true
}
