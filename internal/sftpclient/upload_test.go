package sftpclient

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWithDefaults(t *testing.T) {
	cfg := Config{Host: "test-host", User: "test-user", Pass: "test-pass"}.withDefaults()

	if cfg.Port != 22 {
		t.Errorf("Expected default Port 22, got %d", cfg.Port)
	}
	if cfg.RemoteDir != "/" {
		t.Errorf("Expected default RemoteDir '/', got %q", cfg.RemoteDir)
	}
	if cfg.DialTimeout != 20*time.Second {
		t.Errorf("Expected default dial timeout 20s, got %v", cfg.DialTimeout)
	}
}

func TestHostKeyCallback(t *testing.T) {
	empty := filepath.Join(t.TempDir(), "known_hosts")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name          string
		cfg           Config
		errorContains string
	}{
		{name: "Insecure", cfg: Config{InsecureIgnoreHostKey: true}},
		{name: "Known hosts file", cfg: Config{KnownHostsFile: empty}},
		{name: "No known hosts file", cfg: Config{}, errorContains: "known_hosts file required"},
		{name: "Unreadable known hosts", cfg: Config{KnownHostsFile: filepath.Join(t.TempDir(), "missing")}, errorContains: "load known_hosts"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cb, err := tc.cfg.hostKeyCallback()
			if tc.errorContains == "" {
				if err != nil || cb == nil {
					t.Errorf("Expected a callback, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errorContains) {
				t.Errorf("Expected error containing %q, got %v", tc.errorContains, err)
			}
		})
	}
}

func TestUploadFileValidation(t *testing.T) {
	ctx := context.Background()

	const (
		testHost = "127.0.0.1"
		testUser = "test-user"
		testPass = "test-pass"
		testFile = "test.txt"
	)

	local := filepath.Join(t.TempDir(), testFile)
	if err := os.WriteFile(local, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name          string
		cfg           Config
		localPath     string
		errorContains string
	}{
		{
			name:          "Missing credentials",
			cfg:           Config{},
			localPath:     local,
			errorContains: ErrMissingCredentials.Error(),
		},
		{
			name:          "Non-existent local file",
			cfg:           Config{Host: testHost, User: testUser, Pass: testPass, InsecureIgnoreHostKey: true},
			localPath:     "non_existent_file.txt",
			errorContains: "sftp: open local file",
		},
		{
			name:          "Host key checking without known hosts",
			cfg:           Config{Host: testHost, User: testUser, Pass: testPass},
			localPath:     local,
			errorContains: "known_hosts file required",
		},
		{
			name: "Nothing listening",
			cfg: Config{
				Host: testHost, Port: 1, User: testUser, Pass: testPass,
				InsecureIgnoreHostKey: true, DialTimeout: time.Second,
			},
			localPath:     local,
			errorContains: "sftp: dial error",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := UploadFile(ctx, tc.cfg, tc.localPath, testFile)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.errorContains) {
				t.Errorf("Expected error containing %q, got %q", tc.errorContains, err.Error())
			}
		})
	}
}

func TestUploadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{Host: "10.255.255.1", User: "u", Pass: "p", InsecureIgnoreHostKey: true, DialTimeout: 2 * time.Second}
	err := Upload(ctx, cfg, strings.NewReader("x"), "x.csv")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
