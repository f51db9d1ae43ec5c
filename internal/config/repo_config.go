// Package config provides repository configuration management,
// including reading and writing strata configuration files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// RepoConfig represents the repository configuration
type RepoConfig struct {
	UserName           *string  `json:"user.name,omitempty"`
	UserEmail          *string  `json:"user.email,omitempty"`
	ImmutableBookmarks []string `json:"immutableBookmarks,omitempty"`
}

func configPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".strata", "config.json")
}

// GetRepoConfig reads the repository configuration
func GetRepoConfig(repoRoot string) (*RepoConfig, error) {
	data, err := os.ReadFile(configPath(repoRoot))
	if err != nil {
		// Config doesn't exist - return default
		return &RepoConfig{}, nil
	}

	var config RepoConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse repo config: %w", err)
	}

	return &config, nil
}

func writeRepoConfig(repoRoot string, config *RepoConfig) error {
	configJSON, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(configPath(repoRoot), configJSON, 0600)
}

// GetUser returns the configured user name and email. Environment variables
// STRATA_USER and STRATA_EMAIL override the config file.
func GetUser(repoRoot string) (name, email string, err error) {
	config, err := GetRepoConfig(repoRoot)
	if err != nil {
		return "", "", err
	}
	if config.UserName != nil {
		name = *config.UserName
	}
	if config.UserEmail != nil {
		email = *config.UserEmail
	}
	if envName := os.Getenv("STRATA_USER"); envName != "" {
		name = envName
	}
	if envEmail := os.Getenv("STRATA_EMAIL"); envEmail != "" {
		email = envEmail
	}
	return name, email, nil
}

// SetUser updates the user name and email in the config
func SetUser(repoRoot, name, email string) error {
	config, err := GetRepoConfig(repoRoot)
	if err != nil {
		config = &RepoConfig{}
	}
	if name != "" {
		config.UserName = &name
	}
	if email != "" {
		config.UserEmail = &email
	}
	return writeRepoConfig(repoRoot, config)
}

// GetImmutableBookmarks returns the bookmarks whose targets (and their
// ancestors) must not be rewritten
func GetImmutableBookmarks(repoRoot string) ([]string, error) {
	config, err := GetRepoConfig(repoRoot)
	if err != nil {
		return nil, err
	}
	return config.ImmutableBookmarks, nil
}

// AddImmutableBookmark marks a bookmark as immutable
func AddImmutableBookmark(repoRoot, name string) error {
	config, err := GetRepoConfig(repoRoot)
	if err != nil {
		config = &RepoConfig{}
	}
	for _, existing := range config.ImmutableBookmarks {
		if existing == name {
			return fmt.Errorf("'%s' is already marked immutable", name)
		}
	}
	config.ImmutableBookmarks = append(config.ImmutableBookmarks, name)
	return writeRepoConfig(repoRoot, config)
}

// IsInitialized checks if a strata repository exists at repoRoot
func IsInitialized(repoRoot string) bool {
	_, err := os.Stat(filepath.Join(repoRoot, ".strata"))
	return err == nil
}
