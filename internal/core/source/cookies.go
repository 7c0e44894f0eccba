package source

import (
	"bytes"
	"log"
	"os"
	"regexp"
)

var youtubeSessionCookie = regexp.MustCompile(`LOGIN_INFO|SID|SSID`)

// ValidCookiesFile returns path when it names a readable Netscape cookies file
// that carries a YouTube session, and "" otherwise.
func ValidCookiesFile(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[yt-dlp] cookies file unavailable, continuing without: %v", err)
		return ""
	}
	if len(data) < 100 || !bytes.Contains(data, []byte("youtube.com")) || !youtubeSessionCookie.Match(data) {
		log.Printf("[yt-dlp] cookies file %s has no YouTube session, ignoring", path)
		return ""
	}
	return path
}
