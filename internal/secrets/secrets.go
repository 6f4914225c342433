// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Recognized keys: smtp-password, smtp-username, nominatim-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/natal-engine/internal/logging"
	"github.com/pdiddy/natal-engine/pkg/types"
)

const (
	KeySMTPPassword   = "smtp-password"
	KeySMTPUsername   = "smtp-username"
	KeyNominatimEmail = "nominatim-email"
)

// Secrets maps key names to values.
type Secrets map[string]string

// Load reads all files in dir. A missing directory is not an error; Load
// returns an empty set. Unreadable files are logged and skipped.
func Load(dir string, log *zap.Logger) (Secrets, error) {
	log = logging.OrNop(log)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Secrets)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("key", name), zap.Error(err))
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			s[name] = value
		}
	}
	return s, nil
}

// Get returns the value for key, or "".
func (s Secrets) Get(key string) string { return s[key] }

// Keys returns the loaded key names, sorted, without their values.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply fills credential fields of cfg that are still empty.
func (s Secrets) Apply(cfg *types.AppConfig) {
	if cfg.Mail.Password == "" {
		cfg.Mail.Password = s.Get(KeySMTPPassword)
	}
	if cfg.Mail.Username == "" {
		cfg.Mail.Username = s.Get(KeySMTPUsername)
	}
	if cfg.Geocode.Email == "" {
		cfg.Geocode.Email = s.Get(KeyNominatimEmail)
	}
}
