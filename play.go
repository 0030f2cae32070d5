/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/Seednode/pairbox/ai"
	"github.com/Seednode/pairbox/director"
	"github.com/Seednode/pairbox/fanout"
	"github.com/Seednode/pairbox/local"
	"github.com/Seednode/pairbox/matchcode"
	"github.com/Seednode/pairbox/pictures"
	"github.com/Seednode/pairbox/player"
	"github.com/Seednode/pairbox/rpc"
	"github.com/Seednode/pairbox/terminal"
	"github.com/Seednode/pairbox/transport"
)

func pictureSource(cfg *Config) pictures.Source {
	if cfg.pictureSource == sourceDogs {
		return pictures.Dogs{}
	}
	return pictures.Animals{}
}

// seats lists the roster indices filled over the network.
func seats(cfg *Config) []int {
	first := 1
	if cfg.headless {
		first = 0
	}

	out := make([]int, cfg.remotes())
	for i := range out {
		out[i] = first + i
	}
	return out
}

func printInvite(w io.Writer, cfg *Config, code string, remote []int) {
	fmt.Fprint(w, joinText(cfg, code, remote))

	q, err := qrcode.New(cfg.baseURL()+"/join", qrcode.Medium)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "\nOr scan for these instructions:\n%s\n", q.ToSmallString(false))
}

func printScores(w io.Writer, m director.Match) {
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(w, "%s\n", bold(fmt.Sprintf("Match %s after %d round(s):", m.Code, m.Round)))
	for i, name := range m.Names {
		if name == "" {
			name = fmt.Sprintf("Player %d", i+1)
		}
		fmt.Fprintf(w, "  %-16s %d (last round %d)\n", name, m.Totals[i], m.Points[i])
	}
}

func play(ctx context.Context, cfg *Config) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer syncLogger(log)

	difficulty, err := ai.ParseDifficulty(cfg.difficulty)
	if err != nil {
		return err
	}

	code, err := matchcode.New()
	if err != nil {
		return fmt.Errorf("generating match code: %w", err)
	}
	log = log.With(zap.String("code", code))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	source := pictureSource(cfg)

	var players []player.Player

	if !cfg.headless {
		term := terminal.New(os.Stdin, color.Output, source)
		players = append(players, local.New(term, term, term, log.Named("local")))
	}

	var serveErr error
	served := make(chan struct{})

	if remote := seats(cfg); len(remote) > 0 {
		var acceptor *transport.Acceptor
		var connect rpc.Connector

		switch cfg.transport {
		case transportNATS:
			nc, err := transport.ConnectNATS(cfg.natsURL, log.Named("nats"))
			if err != nil {
				return err
			}
			defer nc.Close()

			connect = nc.Accept
		default:
			acceptor = transport.NewAcceptor(log.Named("websocket"))
			connect = acceptor.Accept
		}

		mux := newRouter(cfg, log.Named("http"), acceptor, joinText(cfg, code, remote))

		go func() {
			defer close(served)

			if err := serve(ctx, cfg, log.Named("http"), mux); err != nil {
				serveErr = err
				cancel()
			}
		}()

		for range remote {
			r := &rpc.RemotePlayer{
				Connect:     connect,
				CallTimeout: cfg.callTimeout,
				IdleTimeout: cfg.idleTimeout,
				Logger:      log.Named("remote"),
			}
			defer r.Close()

			players = append(players, r)
		}

		printInvite(color.Output, cfg, code, remote)
	} else {
		close(served)
	}

	for range cfg.bots {
		players = append(players, ai.New(ai.Options{
			Difficulty: difficulty,
			ThinkDelay: cfg.thinkDelay,
			Logger:     log.Named("ai"),
		}))
	}

	d := director.New(fanout.NewRoster(players...), director.Options{
		Code:        code,
		Pictures:    cfg.pictures,
		SettleDelay: cfg.settleDelay,
		Source:      source,
		Logger:      log.Named("director"),
	})

	err = d.Run(ctx)

	cancel()
	<-served

	if serveErr != nil {
		return serveErr
	}

	switch {
	case err == nil:
		printScores(color.Output, d.Match())
	case errors.Is(err, director.ErrMatchAborted):
		fmt.Fprintln(color.Output, "The match was aborted: too few participants remain.")
		printScores(color.Output, d.Match())
	case errors.Is(err, context.Canceled):
	default:
		return err
	}

	return nil
}
