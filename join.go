/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/Seednode/pairbox/local"
	"github.com/Seednode/pairbox/rpc"
	"github.com/Seednode/pairbox/terminal"
	"github.com/Seednode/pairbox/transport"
)

// dial opens the guest end of the seat. The returned func releases
// anything the channel depends on.
func dial(ctx context.Context, cfg *Config, log *zap.Logger, code string) (rpc.Channel, func(), error) {
	if cfg.transport == transportNATS {
		nc, err := transport.ConnectNATS(cfg.natsURL, log.Named("nats"))
		if err != nil {
			return nil, nil, err
		}

		ch, err := nc.Dial(ctx, code, cfg.seat)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}

		return ch, nc.Close, nil
	}

	ch, err := transport.DialWebSocket(ctx, cfg.server, code, cfg.seat)
	if err != nil {
		return nil, nil, err
	}

	return ch, func() {}, nil
}

func join(ctx context.Context, cfg *Config, code string) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer syncLogger(log)

	term := terminal.New(os.Stdin, color.Output, pictureSource(cfg))

	if code == "" {
		code, err = term.GameCode(ctx)
		if err != nil {
			return fmt.Errorf("reading match code: %w", err)
		}
	}

	log = log.With(zap.String("code", code), zap.Int("seat", cfg.seat))

	ch, release, err := dial(ctx, cfg, log, code)
	if err != nil {
		return err
	}
	defer release()

	fmt.Fprintf(color.Output, "Joined match %s in seat %d.\n", code, cfg.seat)

	responder := rpc.NewResponder(ch, local.New(term, term, term, log.Named("local")), log.Named("rpc"))

	err = responder.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Fprintln(color.Output, "The match is over.")

	return nil
}
