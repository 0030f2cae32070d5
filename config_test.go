package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playConfig() *Config {
	return &Config{
		bots:          1,
		difficulty:    "normal",
		pictures:      8,
		pictureSource: sourceAnimals,
		players:       2,
		port:          8080,
		transport:     transportWebSocket,
	}
}

func TestValidatePlay(t *testing.T) {
	require.NoError(t, playConfig().validatePlay())

	for name, change := range map[string]func(c *Config){
		"port":             func(c *Config) { c.port = 0 },
		"tls pair":         func(c *Config) { c.tlsCert = "cert.pem" },
		"no players":       func(c *Config) { c.players = 0 },
		"too many":         func(c *Config) { c.players = maxPlayers + 1 },
		"bots":             func(c *Config) { c.bots = 3 },
		"no local seat":    func(c *Config) { c.bots = 2 },
		"difficulty":       func(c *Config) { c.difficulty = "impossible" },
		"no pictures":      func(c *Config) { c.pictures = 0 },
		"too many animals": func(c *Config) { c.pictures = 100 },
		"transport":        func(c *Config) { c.transport = "pigeon" },
		"source":           func(c *Config) { c.pictureSource = "cats" },
		"settle delay":     func(c *Config) { c.settleDelay = -time.Second },
		"call timeout":     func(c *Config) { c.callTimeout = -time.Second },
	} {
		c := playConfig()
		change(c)
		assert.Error(t, c.validatePlay(), name)
	}
}

func TestValidatePlayAccepts(t *testing.T) {
	c := playConfig()
	c.headless = true
	c.bots = 2
	require.NoError(t, c.validatePlay())

	c = playConfig()
	c.pictureSource = sourceDogs
	c.pictures = 100
	c.prefix = "/games/"
	require.NoError(t, c.validatePlay())
	assert.Equal(t, "/games", c.prefix)
}

func TestValidateJoin(t *testing.T) {
	c := &Config{pictureSource: sourceAnimals, transport: transportWebSocket, seat: 1, server: "http://host:8080"}
	require.NoError(t, c.validateJoin(nil))
	require.NoError(t, c.validateJoin([]string{"🐀🐁🐂🐃"}))
	assert.Error(t, c.validateJoin([]string{"hello"}))

	c.seat = -1
	assert.Error(t, c.validateJoin(nil))

	c.seat = 1
	c.server = ""
	assert.Error(t, c.validateJoin(nil))

	c.transport = transportNATS
	assert.NoError(t, c.validateJoin(nil))
}

func TestSeats(t *testing.T) {
	c := playConfig()
	c.players = 4
	assert.Equal(t, 2, c.remotes())
	assert.Equal(t, []int{1, 2}, seats(c))

	c.headless = true
	c.players = 3
	assert.Equal(t, []int{0, 1}, seats(c))

	c.players = 1
	c.headless = false
	c.bots = 0
	assert.Empty(t, seats(c))
}

func TestBaseURL(t *testing.T) {
	c := playConfig()
	c.bind = "127.0.0.1"
	c.port = 9000
	c.prefix = "/p"
	assert.Equal(t, "http://127.0.0.1:9000/p", c.baseURL())

	c.tlsCert, c.tlsKey = "cert.pem", "key.pem"
	assert.Equal(t, "https://127.0.0.1:9000/p", c.baseURL())

	c.server = "https://pairs.example.com/"
	assert.Equal(t, "https://pairs.example.com", c.baseURL())
}

func TestEnvironmentSetsFlags(t *testing.T) {
	t.Setenv("PAIRBOX_PLAYERS", "4")
	t.Setenv("PAIRBOX_NATS_URL", "nats://example:4222")
	t.Setenv("PAIRBOX_SETTLE_DELAY", "250ms")

	cfg := &Config{}
	cmd := newCmd(cfg)

	assert.Equal(t, 4, cfg.players)
	assert.Equal(t, "nats://example:4222", cfg.natsURL)
	assert.Equal(t, 250*time.Millisecond, cfg.settleDelay)
	assert.Equal(t, 1, cfg.bots)

	names := []string{}
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"play", "join"})
}
