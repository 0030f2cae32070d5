/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package matchcode creates the short codes players read to each other to
// find a match, and the peer keys derived from them.
package matchcode

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"
)

const (
	firstAnimal rune = 0x1f400
	lastAnimal  rune = 0x1f42c

	// Length keeps collisions unlikely below roughly one new match per
	// second.
	Length = 4

	domain = "pairbox"
)

// New returns a code of Length random animal emoji.
func New() (string, error) {
	var b strings.Builder

	span := big.NewInt(int64(lastAnimal - firstAnimal + 1))
	for range Length {
		n, err := rand.Int(rand.Reader, span)
		if err != nil {
			return "", err
		}
		b.WriteRune(firstAnimal + rune(n.Int64()))
	}

	return b.String(), nil
}

// Valid reports whether code looks like something New produced.
func Valid(code string) bool {
	if utf8.RuneCountInString(code) != Length {
		return false
	}
	for _, r := range code {
		if r < firstAnimal || r > lastAnimal {
			return false
		}
	}
	return true
}

// HostKey names the host end of the link for the given seat.
func HostKey(code string, seat int) string {
	return hashKey(fmt.Sprintf("host%d@%s@%s", seat, code, domain))
}

// GuestKey names the guest end of the link for the given seat.
func GuestKey(code string, seat int) string {
	return hashKey(fmt.Sprintf("guest%d@%s@%s", seat, code, domain))
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
