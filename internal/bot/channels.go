package bot

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

type channelAPI interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

type cachedChannel struct {
	name    string
	fetched time.Time
}

// channelNames caches channel names so every message does not cost a REST
// call. Entries expire after ttl so renames are eventually picked up.
type channelNames struct {
	api     channelAPI
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cachedChannel

	mu sync.RWMutex
}

func newChannelNames(api channelAPI, ttl time.Duration) *channelNames {
	return &channelNames{
		api:     api,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedChannel),
	}
}

func (c *channelNames) Name(channelID string) (string, error) {
	c.mu.RLock()
	entry, ok := c.entries[channelID]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.fetched) < c.ttl {
		return entry.name, nil
	}

	ch, err := c.api.Channel(channelID)
	if err != nil {
		return "", fmt.Errorf("failed to get channel %s: %w", channelID, err)
	}

	c.mu.Lock()
	c.entries[channelID] = cachedChannel{name: ch.Name, fetched: c.now()}
	c.mu.Unlock()

	return ch.Name, nil
}

// Forget drops a channel, e.g. after a ChannelUpdate event.
func (c *channelNames) Forget(channelID string) {
	c.mu.Lock()
	delete(c.entries, channelID)
	c.mu.Unlock()
}
