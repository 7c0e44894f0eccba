package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// SessionState tracks where a browser session is in its lifecycle.
type SessionState int

const (
	StateIdle SessionState = iota
	StateOpen
	StateNavigated
	StateExtracted
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateNavigated:
		return "navigated"
	case StateExtracted:
		return "extracted"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Browser opens page sessions. One session is used per enumeration call.
type Browser interface {
	Open(ctx context.Context) (Session, error)
}

// Session is a single browser page.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, selector string) error
	Scroll(ctx context.Context, times int, pause time.Duration) error
	// Eval runs a JS function with one argument and decodes its JSON result into out.
	Eval(ctx context.Context, js string, arg any, out any) error
	State() SessionState
	Close() error
}

// RodBrowser launches a stealth Chromium page per session.
type RodBrowser struct {
	Headless bool
	// Bin is the browser binary; empty uses ROD_BROWSER or rod's managed download
	Bin string
}

// Open launches a browser process and returns a session bound to a new page.
func (b *RodBrowser) Open(ctx context.Context) (Session, error) {
	l := launcher.New().
		Headless(b.Headless).
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage")

	bin := b.Bin
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER")
	}
	if bin == "" {
		if path, ok := launcher.LookPath(); ok {
			bin = path
		}
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	u, err := l.Context(ctx).Launch()
	if err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		l.Cleanup()
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}

	return &rodSession{launcher: l, browser: browser, page: page, state: StateOpen}, nil
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	mu    sync.Mutex
	state SessionState
}

func (s *rodSession) setState(st SessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *rodSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	if err := p.WaitLoad(); err != nil {
		return err
	}
	s.setState(StateNavigated)
	return nil
}

func (s *rodSession) WaitFor(ctx context.Context, selector string) error {
	_, err := s.page.Context(ctx).Element(selector)
	return err
}

func (s *rodSession) Scroll(ctx context.Context, times int, pause time.Duration) error {
	p := s.page.Context(ctx)
	for i := 0; i < times; i++ {
		if err := p.Mouse.Scroll(0, 1000, 1); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}
	return nil
}

func (s *rodSession) Eval(ctx context.Context, js string, arg any, out any) error {
	res, err := s.page.Context(ctx).Eval(js, arg)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(res.Value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode page result: %w", err)
	}
	s.setState(StateExtracted)
	return nil
}

func (s *rodSession) Close() error {
	if s.State() == StateClosed {
		return nil
	}
	_ = s.page.Close()
	err := s.browser.Close()
	s.launcher.Cleanup()
	s.setState(StateClosed)
	if err != nil {
		log.Printf("[scraper] browser close: %v", err)
	}
	return err
}
