package media

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ProxyPool hands out proxies round-robin. A nil or empty pool yields "".
type ProxyPool struct {
	mu      sync.Mutex
	proxies []string
	next    int
}

// NewProxyPool creates a pool over proxies, skipping empty entries.
func NewProxyPool(proxies ...string) *ProxyPool {
	p := &ProxyPool{}
	for _, px := range proxies {
		if px = strings.TrimSpace(px); px != "" {
			p.proxies = append(p.proxies, px)
		}
	}
	return p
}

// LoadProxyFile reads one proxy per line. Blank lines, # comments and a
// "proxy" header line are skipped.
func LoadProxyFile(path string) (*ProxyPool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open proxy list: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "proxy") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read proxy list: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no valid proxies in %s", path)
	}
	return NewProxyPool(lines...), nil
}

// Next returns the next proxy in rotation.
func (p *ProxyPool) Next() string {
	if p == nil {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.proxies) == 0 {
		return ""
	}
	px := p.proxies[p.next]
	p.next = (p.next + 1) % len(p.proxies)
	return px
}

// Len returns the number of proxies in the pool.
func (p *ProxyPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.proxies)
}
