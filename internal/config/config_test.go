package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitorbit/internal/domain"
)

func TestConfigService_LoadMissingReturnsDefaults(t *testing.T) {
	cs := NewConfigServiceAt(filepath.Join(t.TempDir(), "config.toml"))

	cfg, err := cs.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "git", cfg.GitBinary)
}

func TestConfigService_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cs := NewConfigServiceAt(path)

	cfg := DefaultConfig()
	cfg.AppDataPath = "/data/appData.json"
	cfg.LogLevel = "debug"
	cfg.UISettings.ShowLastCommit = false

	require.NoError(t, cs.Save(cfg))

	loaded, err := cs.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfigService_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"warn\"\n"), 0644))

	cfg, err := NewConfigServiceAt(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "git", cfg.GitBinary)
	assert.True(t, cfg.UISettings.ShowAheadBehind)
}

func TestConfigService_Errors(t *testing.T) {
	dir := t.TempDir()
	cs := NewConfigServiceAt(filepath.Join(dir, "config.toml"))

	_, err := cs.LoadFromPath(filepath.Join(dir, "missing.toml"))
	assert.ErrorContains(t, err, "not found")

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("log_level = "), 0644))
	_, err = cs.LoadFromPath(bad)
	assert.ErrorContains(t, err, "failed to parse config")

	level := filepath.Join(dir, "level.toml")
	require.NoError(t, os.WriteFile(level, []byte("log_level = \"loud\"\n"), 0644))
	_, err = cs.LoadFromPath(level)
	assert.ErrorContains(t, err, "invalid log_level")
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings("./appData.json")
	assert.Equal(t, 10, s.Concurrency)
	assert.Equal(t, 10, s.RecentCommandsToSave)
	assert.True(t, s.PeriodicallyFetchEnabled)
	assert.Equal(t, 60, s.PeriodicallyFetchIntervalMinutes)
	assert.Equal(t, Hour24, s.HourFormat)
	assert.NoError(t, s.Validate())
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantMsg string
	}{
		{name: "zero concurrency", mutate: func(s *Settings) { s.Concurrency = 0 }, wantMsg: "concurrency must be at least 1"},
		{name: "no app data path", mutate: func(s *Settings) { s.AppDataPath = "" }, wantMsg: "app data file path"},
		{name: "zero interval", mutate: func(s *Settings) { s.PeriodicallyFetchIntervalMinutes = 0 }, wantMsg: "fetch interval"},
		{name: "negative recents", mutate: func(s *Settings) { s.RecentCommandsToSave = -1 }, wantMsg: "recent commands"},
		{name: "custom client without command", mutate: func(s *Settings) { s.ExternalGitClient = ExternalGitClientCustom }, wantMsg: "external git client is required"},
		{name: "unknown client", mutate: func(s *Settings) { s.ExternalGitClient = "Tower" }, wantMsg: "unknown external git client"},
		{name: "hour format", mutate: func(s *Settings) { s.HourFormat = "36h" }, wantMsg: "hour format"},
		{name: "editor without executable", mutate: func(s *Settings) { s.ExternalEditors = []ExternalEditor{{Name: "vim"}} }, wantMsg: "Executable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings("./appData.json")
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidSettings)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	ok := DefaultSettings("./appData.json")
	ok.ExternalGitClient = ExternalGitClientCustom
	ok.ExternalGitClientCustomCommand = "tig"
	ok.ExternalEditors = []ExternalEditor{{Name: "VS Code", Executable: "code"}}
	assert.NoError(t, ok.Validate())
}

func TestSettings_Repair(t *testing.T) {
	s := DefaultSettings("./appData.json")
	s.RecentCommandsToSave = -1
	s.Concurrency = 0
	s.HourFormat = "36h"
	s.PeriodicallyFetchEnabled = false
	s.ExternalEditors = []ExternalEditor{{Name: "vim"}, {Name: "VS Code", Executable: "code"}}

	repaired, reset := s.Repair("./appData.json")
	require.NoError(t, repaired.Validate())
	assert.Len(t, reset, 4)
	assert.Equal(t, 10, repaired.RecentCommandsToSave)
	assert.Equal(t, 10, repaired.Concurrency)
	assert.Equal(t, Hour24, repaired.HourFormat)
	assert.False(t, repaired.PeriodicallyFetchEnabled, "valid fields are kept")
	assert.Equal(t, []ExternalEditor{{Name: "VS Code", Executable: "code"}}, repaired.ExternalEditors)

	valid := DefaultSettings("./appData.json")
	same, reset := valid.Repair("./appData.json")
	assert.Empty(t, reset)
	assert.Equal(t, valid, same)
}

func TestSettings_ExternalGitClientCommand(t *testing.T) {
	s := DefaultSettings("./appData.json")

	_, err := s.ExternalGitClientCommand()
	assert.ErrorIs(t, err, domain.ErrNoExternalGitClient)

	s.ExternalGitClient = ExternalGitClientGitHubDesktop
	cmd, err := s.ExternalGitClientCommand()
	require.NoError(t, err)
	assert.Equal(t, "github {repositoryPath}", cmd)

	s.ExternalGitClient = ExternalGitClientCustom
	_, err = s.ExternalGitClientCommand()
	assert.ErrorIs(t, err, domain.ErrNoExternalGitClient)

	s.ExternalGitClientCustomCommand = "gitk --all"
	cmd, err = s.ExternalGitClientCommand()
	require.NoError(t, err)
	assert.Equal(t, "gitk --all", cmd)
}
