// Package updater replaces the running binary with the latest GitHub release.
package updater

import (
	"context"
	"fmt"
	"strings"

	"github.com/creativeprojects/go-selfupdate"

	"github.com/Dev-derah/simple-content-ai/internal/core/version"
)

const (
	repoOwner = "Dev-derah"
	repoName  = "simple-content-ai"
)

// Release describes an available release.
type Release struct {
	Version string
	URL     string
	Notes   string
}

func newUpdater() (*selfupdate.Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, err
	}
	return selfupdate.NewUpdater(selfupdate.Config{Source: source})
}

// currentVersion returns the running version without a leading "v".
func currentVersion() string {
	return strings.TrimPrefix(version.Version, "v")
}

// detect returns the latest release and whether it is newer than the
// running binary.
func detect(ctx context.Context, u *selfupdate.Updater) (*selfupdate.Release, bool, error) {
	latest, found, err := u.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return nil, false, fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found {
		return nil, false, fmt.Errorf("no releases found for %s/%s", repoOwner, repoName)
	}
	// Development builds always update.
	if currentVersion() == "dev" {
		return latest, true, nil
	}
	return latest, !latest.LessOrEqual(currentVersion()), nil
}

// Check reports the latest release and whether it is newer.
func Check(ctx context.Context) (*Release, bool, error) {
	u, err := newUpdater()
	if err != nil {
		return nil, false, err
	}
	latest, newer, err := detect(ctx, u)
	if err != nil {
		return nil, false, err
	}
	return &Release{Version: latest.Version(), URL: latest.URL, Notes: latest.ReleaseNotes}, newer, nil
}

// Update installs the latest release over the running executable. It returns
// the installed version, or "" when already up to date.
func Update(ctx context.Context) (string, error) {
	u, err := newUpdater()
	if err != nil {
		return "", err
	}
	latest, newer, err := detect(ctx, u)
	if err != nil {
		return "", err
	}
	if !newer {
		return "", nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	if err := u.UpdateTo(ctx, latest, exe); err != nil {
		return "", fmt.Errorf("failed to update: %w", err)
	}
	return latest.Version(), nil
}
