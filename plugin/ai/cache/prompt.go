package cache

import (
	"context"
	"sync"
	"time"
)

// Config configures the prompt cache.
type Config struct {
	Capacity        int           // Maximum number of prompts (default: 64)
	TTL             time.Duration // Lifetime of a rendered prompt (default: 30 minutes)
	CleanupInterval time.Duration // Interval for expired entry cleanup (default: 1 minute)
}

// DefaultConfig returns default prompt cache configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:        64,
		TTL:             30 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// PromptKey identifies one rendered prompt. RivalID is empty outside the group thread.
type PromptKey struct {
	PersonaID string
	Mode      string
	RivalID   string
}

// PromptCache memoizes rendered persona prompts. Personas are immutable, so
// an entry only goes stale when its persona is replaced.
type PromptCache struct {
	lru *LRU[PromptKey, string]

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPromptCache creates a prompt cache and starts its cleanup loop. Call Close to stop it.
func NewPromptCache(cfg Config) *PromptCache {
	defaults := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaults.Capacity
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaults.CleanupInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &PromptCache{
		lru:    NewLRU[PromptKey, string](cfg.Capacity, cfg.TTL),
		cancel: cancel,
	}
	c.wg.Add(1)
	go c.cleanupLoop(ctx, cfg.CleanupInterval)
	return c
}

// GetOrRender returns the cached prompt for key, calling render on a miss.
// Render errors are returned and not cached.
func (c *PromptCache) GetOrRender(key PromptKey, render func() (string, error)) (string, error) {
	if prompt, ok := c.lru.Get(key); ok {
		return prompt, nil
	}
	prompt, err := render()
	if err != nil {
		return "", err
	}
	c.lru.Set(key, prompt)
	return prompt, nil
}

// InvalidatePersona drops every prompt rendered for or against the persona.
func (c *PromptCache) InvalidatePersona(personaID string) int {
	return c.lru.RemoveFunc(func(key PromptKey) bool {
		return key.PersonaID == personaID || key.RivalID == personaID
	})
}

func (c *PromptCache) Len() int {
	return c.lru.Len()
}

// Close stops the cleanup loop.
func (c *PromptCache) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *PromptCache) cleanupLoop(ctx context.Context, interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.lru.RemoveExpired()
		}
	}
}
