package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// `security` exits with 44 when no keychain item matches.
const errSecItemNotFound = 44

// ErrItemNotFound is what a SecurityRunner returns for a missing item.
var ErrItemNotFound = errors.New("keychain item not found")

// SecurityRunner runs the macOS `security` tool with args and returns its
// stdout. Missing items must be reported as ErrItemNotFound.
type SecurityRunner func(args ...string) (string, error)

// KeychainStore keeps mirror passwords as generic passwords in the login
// keychain, one item per sync target under a single service name.
type KeychainStore struct {
	service string
	run     SecurityRunner
}

func NewKeychainStore() *KeychainStore {
	return NewKeychainStoreWith("organizer-mirrors", runSecurity)
}

// NewKeychainStoreWith lets tests swap the `security` binary.
func NewKeychainStoreWith(service string, run SecurityRunner) *KeychainStore {
	return &KeychainStore{service: service, run: run}
}

func runSecurity(args ...string) (string, error) {
	out, err := exec.Command("security", args...).Output()
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr) && exitErr.ExitCode() == errSecItemNotFound:
		return "", ErrItemNotFound
	case errors.As(err, &exitErr):
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
	case err != nil:
		return "", err
	}
	return string(out), nil
}

// Set writes the password for a target. -U updates an existing item in place.
func (k *KeychainStore) Set(targetID string, value []byte) error {
	_, err := k.run("add-generic-password", "-U", "-s", k.service, "-a", targetID, "-w", string(value))
	if err != nil {
		return fmt.Errorf("keychain set %s: %w", targetID, err)
	}
	return nil
}

// Get returns nil, nil for targets without a stored password.
func (k *KeychainStore) Get(targetID string) ([]byte, error) {
	out, err := k.run("find-generic-password", "-s", k.service, "-a", targetID, "-w")
	if errors.Is(err, ErrItemNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keychain get %s: %w", targetID, err)
	}
	return []byte(strings.TrimSuffix(out, "\n")), nil
}

func (k *KeychainStore) Delete(targetID string) error {
	_, err := k.run("delete-generic-password", "-s", k.service, "-a", targetID)
	if err != nil && !errors.Is(err, ErrItemNotFound) {
		return fmt.Errorf("keychain delete %s: %w", targetID, err)
	}
	return nil
}
