package plclink

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Plugin allows extending client behavior (logging, metrics, tracing, etc.).
// Inspired by gorm's plugin model.
type Plugin interface {
	// Name must return a unique plugin name.
	Name() string
	// Initialize is called once when the plugin is registered via Use.
	Initialize(*Client) error
}

// ConnectionPlugin is a Plugin that also wants connection lifecycle events.
// Hooks run while the client holds its connection lock and must not call Read or Write.
type ConnectionPlugin interface {
	Plugin
	OnConnected(*Client) error
	// OnDisconnected receives nil after Disconnect and the cause when the peer closed the connection.
	OnDisconnected(c *Client, err error) error
}

// pluginManager wraps plugin registration to keep the Client struct focused.
type pluginManager struct {
	mu      sync.Mutex
	plugins map[string]Plugin
	order   []string
}

func (pm *pluginManager) use(c *Client, plugins ...Plugin) error {
	for _, p := range plugins {
		if p == nil {
			return fmt.Errorf("plugin is nil")
		}
		name := p.Name()
		if name == "" {
			return fmt.Errorf("plugin name cannot be empty")
		}

		// Reserve the name to avoid duplicate registration races.
		pm.mu.Lock()
		if pm.plugins == nil {
			pm.plugins = make(map[string]Plugin)
		}
		if _, exists := pm.plugins[name]; exists {
			pm.mu.Unlock()
			return fmt.Errorf("plugin %s already registered", name)
		}
		pm.plugins[name] = nil
		pm.mu.Unlock()

		if err := p.Initialize(c); err != nil {
			pm.mu.Lock()
			delete(pm.plugins, name)
			pm.mu.Unlock()
			return fmt.Errorf("initialize plugin %s: %w", name, err)
		}

		pm.mu.Lock()
		pm.plugins[name] = p
		pm.order = append(pm.order, name)
		pm.mu.Unlock()
	}

	return nil
}

// connectionPlugins returns registered ConnectionPlugins in registration order.
func (pm *pluginManager) connectionPlugins() []ConnectionPlugin {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var out []ConnectionPlugin
	for _, name := range pm.order {
		if cp, ok := pm.plugins[name].(ConnectionPlugin); ok {
			out = append(out, cp)
		}
	}
	return out
}

func (pm *pluginManager) notifyConnected(c *Client) {
	for _, p := range pm.connectionPlugins() {
		if err := p.OnConnected(c); err != nil {
			c.Logger().Warn("plugin connect hook failed", zap.String("plugin", p.Name()), zap.Error(err))
		}
	}
}

func (pm *pluginManager) notifyDisconnected(c *Client, cause error) {
	for _, p := range pm.connectionPlugins() {
		if err := p.OnDisconnected(c, cause); err != nil {
			c.Logger().Warn("plugin disconnect hook failed", zap.String("plugin", p.Name()), zap.Error(err))
		}
	}
}
