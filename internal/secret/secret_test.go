package secret_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"organizer/internal/secret"
)

func exercise(t *testing.T, s secret.SecretStore) {
	t.Helper()

	if v, err := s.Get("missing"); err != nil || v != nil {
		t.Fatalf("Get(missing) = %q, %v; want nil, nil", v, err)
	}
	if err := s.Set("t1", []byte("hunter2")); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("t1", []byte("correct horse")); err != nil {
		t.Fatal(err)
	}
	v, err := s.Get("t1")
	if err != nil || string(v) != "correct horse" {
		t.Fatalf("Get(t1) = %q, %v", v, err)
	}
	if err := s.Delete("t1"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Get("t1"); v != nil {
		t.Errorf("expected deleted secret, got %q", v)
	}
	if err := s.Delete("t1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exercise(t, secret.NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "secrets.json")
	exercise(t, secret.NewFileStore(path))

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := secret.NewFileStore(path).Set("t1", []byte("pw")); err != nil {
		t.Fatal(err)
	}
	v, err := secret.NewFileStore(path).Get("t1")
	if err != nil || string(v) != "pw" {
		t.Errorf("Get = %q, %v", v, err)
	}
}

// fakeSecurity answers the `security` subcommands KeychainStore uses from a
// map keyed by service and account.
func fakeSecurity(items map[string]string) secret.SecurityRunner {
	return func(args ...string) (string, error) {
		flags := map[string]string{}
		for i := 1; i+1 < len(args); i++ {
			if args[i] == "-s" || args[i] == "-a" || args[i] == "-w" {
				flags[args[i]] = args[i+1]
			}
		}
		key := flags["-s"] + "/" + flags["-a"]
		switch args[0] {
		case "add-generic-password":
			items[key] = flags["-w"]
			return "", nil
		case "find-generic-password":
			v, ok := items[key]
			if !ok {
				return "", secret.ErrItemNotFound
			}
			return v + "\n", nil
		case "delete-generic-password":
			if _, ok := items[key]; !ok {
				return "", secret.ErrItemNotFound
			}
			delete(items, key)
			return "", nil
		}
		return "", errors.New("unexpected subcommand " + args[0])
	}
}

func TestKeychainStore(t *testing.T) {
	items := map[string]string{}
	exercise(t, secret.NewKeychainStoreWith("organizer-test", fakeSecurity(items)))
	if len(items) != 0 {
		t.Errorf("items left behind: %v", items)
	}
}

func TestKeychainStore_ScopedToService(t *testing.T) {
	items := map[string]string{"other-app/t1": "theirs"}
	k := secret.NewKeychainStoreWith("organizer-test", fakeSecurity(items))
	if v, _ := k.Get("t1"); v != nil {
		t.Errorf("read another service's item: %q", v)
	}
}

func TestKeychainStore_SurfacesToolErrors(t *testing.T) {
	locked := errors.New("keychain locked")
	k := secret.NewKeychainStoreWith("organizer-test", func(...string) (string, error) { return "", locked })

	if _, err := k.Get("t1"); !errors.Is(err, locked) {
		t.Errorf("Get = %v, want wrapped tool error", err)
	}
	if err := k.Set("t1", []byte("pw")); !errors.Is(err, locked) {
		t.Errorf("Set = %v", err)
	}
	if err := k.Delete("t1"); !errors.Is(err, locked) {
		t.Errorf("Delete = %v", err)
	}
}
