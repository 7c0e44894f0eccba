// Package storage manages per-run instance folders on the local filesystem.
//
// Layout:
//
//	<root>/<platform>_<YYYYMMDD-HHMMSS>_<id>/
//	    videos/
//	    audio/
//	    metadata/<externalId>.json
//	    content/<externalId>.md
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	VideosDir   = "videos"
	AudioDir    = "audio"
	MetadataDir = "metadata"
	ContentDir  = "content"
)

// Instance is one run's staging area. Concurrent runs never share an instance.
type Instance struct {
	Root string
	Name string
}

// NewInstance creates a uniquely named instance folder under root.
func NewInstance(root, platform string) (*Instance, error) {
	return newInstance(root, platform, time.Now())
}

func newInstance(root, platform string, now time.Time) (*Instance, error) {
	if platform == "" {
		platform = "text"
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := fmt.Sprintf("%s_%s_%s", SanitizeName(platform), now.Format("20060102-150405"), id)

	inst := &Instance{Root: filepath.Join(root, name), Name: name}
	for _, dir := range []string{VideosDir, AudioDir, MetadataDir, ContentDir} {
		if err := os.MkdirAll(filepath.Join(inst.Root, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create instance directory %s: %w", dir, err)
		}
	}
	return inst, nil
}

// VideosPath returns the directory downloaded videos go into.
func (i *Instance) VideosPath() string { return filepath.Join(i.Root, VideosDir) }

// AudioPath returns the directory extracted audio goes into.
func (i *Instance) AudioPath() string { return filepath.Join(i.Root, AudioDir) }

// ContentPath returns the markdown file path for an external id.
func (i *Instance) ContentPath(externalID string) string {
	return filepath.Join(i.Root, ContentDir, SanitizeName(externalID)+".md")
}

// MetadataPath returns the metadata file path for an external id.
func (i *Instance) MetadataPath(externalID string) string {
	return filepath.Join(i.Root, MetadataDir, SanitizeName(externalID)+".json")
}

// SaveMetadata writes v as indented JSON to metadata/<externalId>.json.
func (i *Instance) SaveMetadata(externalID string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata for %s: %w", externalID, err)
	}
	path := i.MetadataPath(externalID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadMetadata reads metadata/<externalId>.json into v.
func (i *Instance) LoadMetadata(externalID string, v any) error {
	data, err := os.ReadFile(i.MetadataPath(externalID))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeName makes s safe to use as a single path element.
func SanitizeName(s string) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	s = strings.Trim(strings.TrimSpace(s), ".")
	if s == "" {
		return "_"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
