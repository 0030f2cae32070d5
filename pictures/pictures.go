/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package pictures supplies the faces printed on the cards.
package pictures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

var ErrNotEnough = errors.New("not enough pictures")

// Source hands out picture references for a round and turns a reference
// into something a presenter can show.
type Source interface {
	Pictures(ctx context.Context, count int) ([]string, error)
	Resolve(ctx context.Context, ref string) (string, error)
}

// Animals draws distinct animal emoji. References are the emoji
// themselves.
type Animals struct {
	Shuffle func(n int) []int
}

var animalSet = []string{
	"🐶", "🐱", "🐭", "🐹", "🐰", "🦊", "🐻", "🐼",
	"🐨", "🐯", "🦁", "🐮", "🐷", "🐸", "🐵", "🐔",
	"🐧", "🐦", "🐤", "🦆", "🦉", "🦇", "🐺", "🐗",
	"🐴", "🦄", "🐝", "🐛", "🦋", "🐌", "🐞", "🐢",
}

// MaxAnimals is the largest count Animals can serve.
var MaxAnimals = len(animalSet)

func (a Animals) Pictures(ctx context.Context, count int) ([]string, error) {
	if count < 1 || count > len(animalSet) {
		return nil, fmt.Errorf("%w: asked for %d, have %d", ErrNotEnough, count, len(animalSet))
	}

	shuffle := a.Shuffle
	if shuffle == nil {
		shuffle = rand.Perm
	}

	out := make([]string, count)
	for i, j := range shuffle(len(animalSet))[:count] {
		out[i] = animalSet[j]
	}
	return out, nil
}

func (Animals) Resolve(ctx context.Context, ref string) (string, error) {
	return ref, nil
}

const DefaultDogsURL = "https://random.dog/"

// maxDraws bounds how often Dogs asks again for repeated pictures.
const maxDraws = 5

// Dogs asks random.dog for picture addresses. Each reference is a full
// URL to an image.
type Dogs struct {
	BaseURL string
	Client  *http.Client
}

func (d Dogs) base() string {
	if d.BaseURL == "" {
		return DefaultDogsURL
	}
	return strings.TrimSuffix(d.BaseURL, "/") + "/"
}

func (d Dogs) client() *http.Client {
	if d.Client == nil {
		return &http.Client{Timeout: 10 * time.Second}
	}
	return d.Client
}

// Pictures draws count distinct dogs. The service repeats itself now and
// then, so duplicates are drawn again up to maxDraws times.
func (d Dogs) Pictures(ctx context.Context, count int) ([]string, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: asked for %d", ErrNotEnough, count)
	}

	out := make([]string, 0, count)
	seen := make(map[string]bool, count)
	for range maxDraws {
		urls, err := d.draw(ctx, count-len(out))
		if err != nil {
			return nil, err
		}

		for _, url := range urls {
			if !seen[url] {
				seen[url] = true
				out = append(out, url)
			}
		}

		if len(out) == count {
			return out, nil
		}
	}

	return nil, fmt.Errorf("%w: only %d distinct dogs after %d draws", ErrNotEnough, len(out), maxDraws)
}

func (d Dogs) draw(ctx context.Context, count int) ([]string, error) {
	type result struct {
		index int
		url   string
		err   error
	}

	results := make(chan result, count)
	for i := range count {
		go func() {
			url, err := d.one(ctx)
			results <- result{index: i, url: url, err: err}
		}()
	}

	out := make([]string, count)
	var errs []error
	for range count {
		r := <-results
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		out[r.index] = r.url
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return out, nil
}

func (d Dogs) one(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.base()+"woof?filter=webm,mp4", nil)
	if err != nil {
		return "", err
	}

	resp, err := d.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("picture source: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", err
	}

	name := strings.TrimSpace(string(body))
	if name == "" {
		return "", errors.New("picture source: empty response")
	}

	return d.base() + name, nil
}

// Resolve returns the file name of the picture, which is short enough to
// print on a card.
func (Dogs) Resolve(ctx context.Context, ref string) (string, error) {
	i := strings.LastIndex(ref, "/")
	if i < 0 || i == len(ref)-1 {
		return "", fmt.Errorf("picture source: malformed reference %q", ref)
	}
	return ref[i+1:], nil
}
