// Package version holds the build version, set with
// -ldflags "-X github.com/Dev-derah/simple-content-ai/internal/core/version.Version=..."
package version

var Version = "dev"
