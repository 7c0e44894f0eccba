package pipeline

import (
	"fmt"
	"sync"

	"github.com/Dev-derah/simple-content-ai/internal/core/source"
)

// Status is the acquisition state of one media item.
type Status string

const (
	StatusPending      Status = "pending"
	StatusDownloading  Status = "downloading"
	StatusExtracting   Status = "extracting"
	StatusTranscribing Status = "transcribing"
	StatusReady        Status = "ready"
	StatusFailed       Status = "failed"
)

var statusRank = map[Status]int{
	StatusPending:      0,
	StatusDownloading:  1,
	StatusExtracting:   2,
	StatusTranscribing: 3,
	StatusReady:        4,
}

// AcquiredMedia tracks one item from download to transcript. Status only
// moves forward; failed is terminal and reachable from any other state.
type AcquiredMedia struct {
	Item       source.MediaItem `json:"item"`
	VideoPath  string           `json:"videoPath,omitempty"`
	AudioPath  string           `json:"audioPath,omitempty"`
	Transcript string           `json:"transcript,omitempty"`
	CacheHit   bool             `json:"cacheHit,omitempty"`

	mu       sync.Mutex
	status   Status
	onChange func(Status)
}

func newAcquiredMedia(item source.MediaItem) *AcquiredMedia {
	return &AcquiredMedia{Item: item, status: StatusPending}
}

// Status returns the current state.
func (m *AcquiredMedia) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *AcquiredMedia) advance(to Status) error {
	if err := m.transition(to); err != nil {
		return err
	}
	if m.onChange != nil {
		m.onChange(to)
	}
	return nil
}

func (m *AcquiredMedia) transition(to Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusFailed {
		return fmt.Errorf("media %s already failed, cannot move to %s", m.Item.ExternalID, to)
	}
	if to == StatusFailed {
		m.status = to
		return nil
	}
	if statusRank[to] <= statusRank[m.status] {
		return fmt.Errorf("invalid status transition %s -> %s", m.status, to)
	}
	m.status = to
	return nil
}
