/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/pairbox/ai"
	"github.com/Seednode/pairbox/director"
	"github.com/Seednode/pairbox/matchcode"
	"github.com/Seednode/pairbox/pictures"
)

const (
	transportWebSocket = "websocket"
	transportNATS      = "nats"

	sourceAnimals = "animals"
	sourceDogs    = "dogs"

	maxPlayers = 8
)

type Config struct {
	bind          string
	bots          int
	callTimeout   time.Duration
	difficulty    string
	headless      bool
	idleTimeout   time.Duration
	natsURL       string
	pictures      int
	pictureSource string
	players       int
	port          int
	prefix        string
	profile       bool
	seat          int
	server        string
	settleDelay   time.Duration
	thinkDelay    time.Duration
	tlsCert       string
	tlsKey        string
	transport     string
	verbose       bool
	version       bool
}

func (c *Config) validate() error {
	switch c.transport {
	case transportWebSocket, transportNATS:
	default:
		return fmt.Errorf("invalid transport (must be %s or %s): %q", transportWebSocket, transportNATS, c.transport)
	}

	switch c.pictureSource {
	case sourceAnimals, sourceDogs:
	default:
		return fmt.Errorf("invalid picture source (must be %s or %s): %q", sourceAnimals, sourceDogs, c.pictureSource)
	}

	if c.callTimeout < 0 || c.idleTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}

	return nil
}

func (c *Config) validatePlay() error {
	if err := c.validate(); err != nil {
		return err
	}

	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.players < 1 || c.players > maxPlayers {
		return fmt.Errorf("invalid player count (must be between 1-%d inclusive): %d", maxPlayers, c.players)
	}
	if c.bots < 0 || c.bots > c.players {
		return fmt.Errorf("invalid bot count (must be between 0-%d inclusive): %d", c.players, c.bots)
	}
	if !c.headless && c.bots == c.players {
		return errors.New("no seat left for the local player (use --headless for a bots-only match)")
	}
	if _, err := ai.ParseDifficulty(c.difficulty); err != nil {
		return err
	}
	if c.pictures < 1 {
		return fmt.Errorf("invalid picture count (must be at least 1): %d", c.pictures)
	}
	if c.pictureSource == sourceAnimals && c.pictures > pictures.MaxAnimals {
		return fmt.Errorf("invalid picture count (must be at most %d for %s): %d", pictures.MaxAnimals, sourceAnimals, c.pictures)
	}
	if c.settleDelay < 0 || c.thinkDelay < 0 {
		return errors.New("delays cannot be negative")
	}

	c.prefix = strings.TrimSuffix(c.prefix, "/")

	return nil
}

func (c *Config) validateJoin(args []string) error {
	if err := c.validate(); err != nil {
		return err
	}

	if len(args) > 0 && !matchcode.Valid(args[0]) {
		return fmt.Errorf("invalid match code: %q", args[0])
	}
	if c.seat < 0 || c.seat >= maxPlayers {
		return fmt.Errorf("invalid seat (must be between 0-%d inclusive): %d", maxPlayers-1, c.seat)
	}
	if c.transport == transportWebSocket && c.server == "" {
		return errors.New("--server is required for the websocket transport")
	}

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// remotes is the number of seats filled over the network.
func (c *Config) remotes() int {
	n := c.players - c.bots
	if !c.headless {
		n--
	}
	return n
}

// baseURL is the address guests use to reach this host.
func (c *Config) baseURL() string {
	if c.server != "" {
		return strings.TrimSuffix(c.server, "/")
	}

	host := c.bind
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
		if name, err := os.Hostname(); err == nil {
			host = name
		}
	}

	return c.scheme() + "://" + net.JoinHostPort(host, strconv.Itoa(c.port)) + c.prefix
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PAIRBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "pairbox",
		Short:   "A find-the-pair memory game for the terminal, with bots and network seats.",
		Args:    cobra.NoArgs,
		Version: releaseVersion,
	}

	pfs := cmd.PersistentFlags()

	pfs.DurationVar(&cfg.callTimeout, "call-timeout", 10*time.Second, "time a remote peer has to acknowledge an update (env: PAIRBOX_CALL_TIMEOUT)")
	pfs.DurationVar(&cfg.idleTimeout, "idle-timeout", 5*time.Minute, "time a remote person has to answer before being dropped (env: PAIRBOX_IDLE_TIMEOUT)")
	pfs.StringVar(&cfg.natsURL, "nats-url", "nats://127.0.0.1:4222", "nats server to link peers through (env: PAIRBOX_NATS_URL)")
	pfs.StringVar(&cfg.pictureSource, "picture-source", sourceAnimals, "where card pictures come from: animals or dogs (env: PAIRBOX_PICTURE_SOURCE)")
	pfs.StringVar(&cfg.transport, "transport", transportWebSocket, "how remote seats connect: websocket or nats (env: PAIRBOX_TRANSPORT)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PAIRBOX_VERBOSE)")

	cmd.Flags().BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: PAIRBOX_VERSION)")

	bindFlags(v, pfs)
	bindFlags(v, cmd.Flags())

	cmd.AddCommand(newPlayCmd(cfg, v), newJoinCmd(cfg, v))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("pairbox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newPlayCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Host a match and take a seat in it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validatePlay(); err != nil {
				return err
			}
			return play(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PAIRBOX_BIND)")
	fs.IntVar(&cfg.bots, "bots", 1, "number of seats played by the computer (env: PAIRBOX_BOTS)")
	fs.StringVar(&cfg.difficulty, "difficulty", ai.Normal.String(), "how much bots forget: easy, normal or hard (env: PAIRBOX_DIFFICULTY)")
	fs.BoolVar(&cfg.headless, "headless", false, "host without taking a seat (env: PAIRBOX_HEADLESS)")
	fs.IntVar(&cfg.pictures, "pictures", director.DefaultPictures, "number of distinct pictures per round (env: PAIRBOX_PICTURES)")
	fs.IntVar(&cfg.players, "players", 2, "number of seats, including bots and remote guests (env: PAIRBOX_PLAYERS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: PAIRBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: PAIRBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: PAIRBOX_PROFILE)")
	fs.StringVar(&cfg.server, "server", "", "base URL to advertise to guests (env: PAIRBOX_SERVER)")
	fs.DurationVar(&cfg.settleDelay, "settle-delay", director.DefaultSettleDelay, "time two unmatched cards stay face up (env: PAIRBOX_SETTLE_DELAY)")
	fs.DurationVar(&cfg.thinkDelay, "think-delay", ai.DefaultThinkDelay, "time bots wait before each pick (env: PAIRBOX_THINK_DELAY)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: PAIRBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: PAIRBOX_TLS_KEY)")

	bindFlags(v, fs)

	return cmd
}

func newJoinCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join [code]",
		Short: "Take a remote seat in someone else's match.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateJoin(args); err != nil {
				return err
			}

			var code string
			if len(args) > 0 {
				code = args[0]
			}
			return join(cmd.Context(), cfg, code)
		},
	}

	fs := cmd.Flags()

	fs.IntVar(&cfg.seat, "seat", 1, "seat index given by the host (env: PAIRBOX_SEAT)")
	fs.StringVar(&cfg.server, "server", "", "base URL of the host, for the websocket transport (env: PAIRBOX_SERVER)")

	bindFlags(v, fs)

	return cmd
}
