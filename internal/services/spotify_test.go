package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/marmottus/tidal-bot/internal/fetch"
)

func testSpotifyClient(t *testing.T, handler http.Handler) *SpotifyClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := log.New(io.Discard)
	client, err := NewSpotifyClient(context.Background(), SpotifyOpts{
		AccessToken:       "test_token",
		BaseURL:           server.URL,
		RequestsPerSecond: 1000,
		Retrier: fetch.NewRetrier(fetch.RetrierOpts{
			Sleep:  func(time.Duration) {},
			Logger: logger,
		}),
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	return client
}

func spotifyTrackJSON(id, isrc, name string, durationMS int, artists ...string) map[string]any {
	artistObjs := make([]map[string]any, 0, len(artists))
	for _, artist := range artists {
		artistObjs = append(artistObjs, map[string]any{"id": "ar-" + artist, "name": artist})
	}

	return map[string]any{
		"id":           id,
		"name":         name,
		"duration_ms":  durationMS,
		"artists":      artistObjs,
		"external_ids": map[string]any{"isrc": isrc},
		"album": map[string]any{
			"id":           "al-1",
			"name":         "Test Album",
			"total_tracks": 10,
			"artists":      artistObjs,
		},
	}
}

func TestNewSpotifyClient(t *testing.T) {
	t.Run("Requires Access Token", func(t *testing.T) {
		if _, err := NewSpotifyClient(context.Background(), SpotifyOpts{}); err == nil {
			t.Fatal("expected error for missing access token")
		}
	})

	t.Run("Sends Bearer Token", func(t *testing.T) {
		var gotAuth string
		client := testSpotifyClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
		}))

		if _, err := client.Playlists(context.Background(), nil); err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if gotAuth != "Bearer test_token" {
			t.Errorf("expected bearer token header, got %q", gotAuth)
		}
	})
}

func TestSpotifyPlaylists(t *testing.T) {
	t.Run("Lists Playlists With Tracks", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/me/playlists", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{
						"id":            "pl1",
						"name":          "EUROVISION 2024",
						"external_urls": map[string]any{"spotify": "https://open.spotify.com/playlist/pl1"},
					},
					{"id": "pl2", "name": "Other"},
				},
			})
		})
		mux.HandleFunc("/playlists/pl1/tracks", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{"track": spotifyTrackJSON("t1", "gbduw0000059", "Song A", 200000, "Artist A")},
					{"track": spotifyTrackJSON("t2", "USRC10000001", "Song B", 180000, "Artist B")},
				},
			})
		})
		mux.HandleFunc("/playlists/pl2/tracks", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
		})

		client := testSpotifyClient(t, mux)

		playlists, err := client.Playlists(context.Background(), nil)
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}

		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}

		first := playlists[0]
		if first.Name != "EUROVISION 2024" {
			t.Errorf("unexpected name %q", first.Name)
		}
		if first.URI != "https://open.spotify.com/playlist/pl1" {
			t.Errorf("unexpected URI %q", first.URI)
		}
		if len(first.Tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(first.Tracks))
		}

		track := first.Tracks[0]
		if track.ISRC != "GBDUW0000059" {
			t.Errorf("ISRC should be uppercased, got %q", track.ISRC)
		}
		if track.Duration != 200*time.Second {
			t.Errorf("expected 200s duration, got %s", track.Duration)
		}
		if track.Album == nil || track.Album.Name != "Test Album" || track.Album.TotalTracks != 10 {
			t.Errorf("unexpected album %+v", track.Album)
		}
	})

	t.Run("Applies Name Filter", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/me/playlists", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{"id": "pl1", "name": "EUROVISION 2024"},
					{"id": "pl2", "name": "Workout"},
				},
			})
		})
		mux.HandleFunc("/playlists/", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
		})

		client := testSpotifyClient(t, mux)

		playlists, err := client.Playlists(context.Background(), func(name string) bool {
			return name == "EUROVISION 2024"
		})
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}

		if len(playlists) != 1 || playlists[0].Name != "EUROVISION 2024" {
			t.Errorf("expected only the filtered playlist, got %v", playlists)
		}
	})

	t.Run("Drops Tracks Missing ISRC And Dedups", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/me/playlists", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{"id": "pl1", "name": "Mix"}},
			})
		})
		mux.HandleFunc("/playlists/pl1/tracks", func(w http.ResponseWriter, r *http.Request) {
			noISRC := spotifyTrackJSON("t3", "", "No Code", 100000, "Artist")
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{"track": spotifyTrackJSON("t1", "GBDUW0000059", "Song A", 200000, "Artist A")},
					{"track": noISRC},
					{"track": spotifyTrackJSON("t2", "GBDUW0000059", "Song A (Remaster)", 201000, "Artist A")},
				},
			})
		})

		client := testSpotifyClient(t, mux)

		playlists, err := client.Playlists(context.Background(), nil)
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}

		tracks := playlists[0].Tracks
		if len(tracks) != 1 {
			t.Fatalf("expected 1 track after drop and dedup, got %d", len(tracks))
		}
		if tracks[0].ID != "t1" {
			t.Errorf("dedup should keep the first occurrence, got %s", tracks[0].ID)
		}
	})

	t.Run("Paginates Track Listings", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/me/playlists", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{"id": "pl1", "name": "Big"}},
			})
		})
		mux.HandleFunc("/playlists/pl1/tracks", func(w http.ResponseWriter, r *http.Request) {
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			if limit != 100 {
				t.Errorf("expected page size 100, got %d", limit)
			}

			total := 130
			var items []map[string]any
			for i := offset; i < offset+limit && i < total; i++ {
				isrc := fmt.Sprintf("USRC1%07d", i)
				items = append(items, map[string]any{
					"track": spotifyTrackJSON(fmt.Sprintf("t%d", i), isrc, fmt.Sprintf("Song %d", i), 100000+i*1000, fmt.Sprintf("Artist %d", i)),
				})
			}
			json.NewEncoder(w).Encode(map[string]any{"items": items})
		})

		client := testSpotifyClient(t, mux)

		playlists, err := client.Playlists(context.Background(), nil)
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}

		tracks := playlists[0].Tracks
		if len(tracks) != 130 {
			t.Fatalf("expected 130 tracks across pages, got %d", len(tracks))
		}
		if tracks[0].ID != "t0" || tracks[129].ID != "t129" {
			t.Errorf("expected tracks in original order, got %s..%s", tracks[0].ID, tracks[129].ID)
		}
	})

	t.Run("Server Errors Are Transient", func(t *testing.T) {
		calls := 0
		client := testSpotifyClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
		}))

		if _, err := client.Playlists(context.Background(), nil); err != nil {
			t.Fatalf("expected retry to recover, got %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 calls, got %d", calls)
		}
	})
}
