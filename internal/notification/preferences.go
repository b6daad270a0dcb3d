package notification

import (
	"context"
	"log"
	"sync"
	"time"

	"workfit-event-service-golang/internal/store"
)

// SettingsSource loads preferences from the backing store.
type SettingsSource interface {
	SettingsByEmail(ctx context.Context, email string) (store.NotificationSettings, error)
}

type cachedSettings struct {
	settings store.NotificationSettings
	expires  time.Time
}

// PreferenceCache fronts the settings store with a short TTL cache so the
// default strategy does not hit the database for every event. Lookup errors
// fall back to all channels enabled.
type PreferenceCache struct {
	source SettingsSource
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]cachedSettings
}

func NewPreferenceCache(source SettingsSource) *PreferenceCache {
	return &PreferenceCache{
		source:  source,
		ttl:     5 * time.Minute,
		entries: make(map[string]cachedSettings),
	}
}

func (c *PreferenceCache) Settings(ctx context.Context, email string) store.NotificationSettings {
	c.mu.RLock()
	if entry, ok := c.entries[email]; ok && time.Now().Before(entry.expires) {
		c.mu.RUnlock()
		return entry.settings
	}
	c.mu.RUnlock()

	settings, err := c.source.SettingsByEmail(ctx, email)
	if err != nil {
		log.Printf("[Notify] preference lookup failed for %s, defaulting to enabled: %v", email, err)
		return store.NotificationSettings{EmailEnabled: true, PushEnabled: true}
	}

	c.mu.Lock()
	c.entries[email] = cachedSettings{settings: settings, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return settings
}
