package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"internflow-engine/internal/config"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups the engine's secrets in the OS keychain.
	KeyringService = "internflow"

	PasswordEnv = "INTERNFLOW_IMAP_PASSWORD"
)

var ErrNoPassword = errors.New("IMAP password not found (set INTERNFLOW_IMAP_PASSWORD or store it in the keychain)")

// GetIMAPPassword returns the IMAP password from the environment, falling
// back to the OS keychain.
func GetIMAPPassword(keyringAccount string) (string, error) {
	if pw := os.Getenv(PasswordEnv); strings.TrimSpace(pw) != "" {
		return pw, nil
	}
	if strings.TrimSpace(keyringAccount) != "" {
		pw, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("keychain: %w", err)
		}
	}
	return "", ErrNoPassword
}

func SetIMAPPassword(keyringAccount string, password string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, password)
}

func DeleteIMAPPassword(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	err := keyring.Delete(KeyringService, keyringAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// IMAPKeyringAccount names the keychain entry for the configured mailbox.
func IMAPKeyringAccount(cfg config.Config) string {
	return fmt.Sprintf("internflow:imap:%s@%s", strings.ToLower(cfg.Email.Username), cfg.Email.IMAPHost)
}

// IMAPPasswordSource returns a resolver for mailbox.IMAPConfig.Password.
func IMAPPasswordSource(cfg config.Config) func() (string, error) {
	account := IMAPKeyringAccount(cfg)
	return func() (string, error) { return GetIMAPPassword(account) }
}
