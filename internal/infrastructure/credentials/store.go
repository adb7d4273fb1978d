// Package credentials reads dashboard accounts from a YAML credentials file.
//
// The file has the shape
//
//	credentials:
//	  usernames:
//	    jsmith:
//	      name: John Smith
//	      email: jsmith@example.com
//	      password: $2b$12$...   # bcrypt hash
//	cookie:
//	  name: cashflow_auth
//	  expiry_days: 30
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cashflow/backend/internal/domain/identity"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Ensure Store implements identity.UserRepository
var _ identity.UserRepository = (*Store)(nil)

// ErrNoUsers is returned when a credentials file defines no accounts
var ErrNoUsers = errors.New("credentials file defines no users")

// Cookie holds the optional cookie section of the file
type Cookie struct {
	Name       string
	ExpiryDays int
}

// Store serves accounts loaded from the credentials file
type Store struct {
	mu     sync.RWMutex
	v      *viper.Viper
	users  map[string]*identity.User
	cookie Cookie
	logger *zap.Logger
}

// Load reads the credentials file at path
func Load(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	s := &Store{v: v, logger: logger}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// reload rebuilds the user table from the viper state
func (s *Store) reload() error {
	users, err := parseUsers(s.v)
	if err != nil {
		return err
	}
	cookie := Cookie{
		Name:       s.v.GetString("cookie.name"),
		ExpiryDays: s.v.GetInt("cookie.expiry_days"),
	}

	s.mu.Lock()
	s.users = users
	s.cookie = cookie
	s.mu.Unlock()
	return nil
}

// parseUsers reads credentials.usernames. viper lowercases keys, so
// usernames are case-insensitive.
func parseUsers(v *viper.Viper) (map[string]*identity.User, error) {
	entries := v.GetStringMap("credentials.usernames")
	if len(entries) == 0 {
		return nil, ErrNoUsers
	}

	users := make(map[string]*identity.User, len(entries))
	for key := range entries {
		username := identity.NormalizeUsername(key)
		prefix := "credentials.usernames." + key + "."
		hash := v.GetString(prefix + "password")
		if !strings.HasPrefix(hash, "$2") {
			return nil, fmt.Errorf("user %q: password must be a bcrypt hash", username)
		}
		users[username] = &identity.User{
			Username:     username,
			Name:         v.GetString(prefix + "name"),
			Email:        v.GetString(prefix + "email"),
			PasswordHash: hash,
		}
	}
	return users, nil
}

// FindByUsername returns a copy of the account for username
func (s *Store) FindByUsername(_ context.Context, username string) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[identity.NormalizeUsername(username)]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

// Usernames lists the known accounts in order
func (s *Store) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cookie returns the cookie section of the file. Zero fields were absent.
func (s *Store) Cookie() Cookie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cookie
}

// Watch reloads the file whenever it changes. A file that no longer parses
// is logged and the previous accounts stay in effect.
func (s *Store) Watch() {
	s.v.OnConfigChange(func(e fsnotify.Event) {
		if err := s.reload(); err != nil {
			s.logger.Error("Credentials reload failed, keeping previous accounts",
				zap.String("file", e.Name), zap.Error(err))
			return
		}
		s.logger.Info("Credentials reloaded", zap.String("file", e.Name), zap.Int("users", len(s.Usernames())))
	})
	s.v.WatchConfig()
}
