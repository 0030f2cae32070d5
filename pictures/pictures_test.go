package pictures_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Seednode/pairbox/pictures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnimalsDistinct(t *testing.T) {
	src := pictures.Animals{}

	got, err := src.Pictures(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, got, 8)

	seen := map[string]bool{}
	for _, p := range got {
		assert.False(t, seen[p], "duplicate picture %s", p)
		seen[p] = true
	}

	resolved, err := src.Resolve(context.Background(), got[0])
	require.NoError(t, err)
	assert.Equal(t, got[0], resolved)
}

func TestAnimalsBounds(t *testing.T) {
	src := pictures.Animals{}

	_, err := src.Pictures(context.Background(), 0)
	assert.ErrorIs(t, err, pictures.ErrNotEnough)

	_, err = src.Pictures(context.Background(), pictures.MaxAnimals+1)
	assert.ErrorIs(t, err, pictures.ErrNotEnough)

	got, err := src.Pictures(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDogs(t *testing.T) {
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/woof", r.URL.Path)
		assert.Equal(t, "webm,mp4", r.URL.Query().Get("filter"))
		fmt.Fprintf(w, "dog-%d.jpg", n.Add(1))
	}))
	defer srv.Close()

	src := pictures.Dogs{BaseURL: srv.URL, Client: srv.Client()}

	got, err := src.Pictures(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, ref := range got {
		assert.Regexp(t, `^`+srv.URL+`/dog-\d\.jpg$`, ref)
	}

	name, err := src.Resolve(context.Background(), got[0])
	require.NoError(t, err)
	assert.Regexp(t, `^dog-\d\.jpg$`, name)
}

func TestDogsDrawsAgainForRepeats(t *testing.T) {
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The first three answers are the same dog.
		i := n.Add(1)
		if i <= 3 {
			fmt.Fprint(w, "dog-0.jpg")
			return
		}
		fmt.Fprintf(w, "dog-%d.jpg", i)
	}))
	defer srv.Close()

	src := pictures.Dogs{BaseURL: srv.URL, Client: srv.Client()}

	got, err := src.Pictures(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	seen := map[string]bool{}
	for _, ref := range got {
		assert.False(t, seen[ref], "repeated %s", ref)
		seen[ref] = true
	}
	assert.True(t, seen[srv.URL+"/dog-0.jpg"])
}

func TestDogsGivesUpOnRepeats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "same.jpg")
	}))
	defer srv.Close()

	src := pictures.Dogs{BaseURL: srv.URL, Client: srv.Client()}

	_, err := src.Pictures(context.Background(), 2)
	assert.ErrorIs(t, err, pictures.ErrNotEnough)
}

func TestDogsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := pictures.Dogs{BaseURL: srv.URL, Client: srv.Client()}

	_, err := src.Pictures(context.Background(), 2)
	assert.Error(t, err)

	_, err = src.Resolve(context.Background(), "no-slash")
	assert.Error(t, err)
}
