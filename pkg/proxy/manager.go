package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// Manager handles the rotation of upstream proxies and user agents.
type Manager struct {
	proxies    []*url.URL
	userAgents []string
	mu         sync.Mutex
	proxyIndex int
	agentIndex int
}

// NewManager parses the proxy endpoints. With no proxies every request goes
// direct; with no user agents UserAgent returns "".
func NewManager(proxies []string, userAgents ...string) (*Manager, error) {
	m := &Manager{userAgents: userAgents}
	for _, p := range proxies {
		u, err := url.Parse(p)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", p)
		}
		m.proxies = append(m.proxies, u)
	}
	return m, nil
}

// NextProxy returns a proxy URL from the list, rotating sequentially, or nil
// when no proxies are configured.
func (m *Manager) NextProxy() *url.URL {
	if len(m.proxies) == 0 {
		return nil // No proxy
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.proxies[m.proxyIndex]
	m.proxyIndex = (m.proxyIndex + 1) % len(m.proxies)
	return p
}

// UserAgent returns the next user agent, rotating sequentially.
func (m *Manager) UserAgent() string {
	if len(m.userAgents) == 0 {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ua := m.userAgents[m.agentIndex]
	m.agentIndex = (m.agentIndex + 1) % len(m.userAgents)
	return ua
}

// Proxy is an http.Transport Proxy func that rotates through the endpoints.
func (m *Manager) Proxy(*http.Request) (*url.URL, error) {
	return m.NextProxy(), nil
}

// Count returns the number of configured proxies.
func (m *Manager) Count() int { return len(m.proxies) }
