package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/marmottus/tidal-bot/internal/fetch"
	"github.com/marmottus/tidal-bot/internal/models"
	"github.com/marmottus/tidal-bot/internal/services"
	"github.com/marmottus/tidal-bot/internal/shared"
	"github.com/marmottus/tidal-bot/internal/tasks"
)

// fakeSource serves a fixed playlist listing.
type fakeSource struct {
	playlists []models.Playlist
	err       error
}

func (f *fakeSource) Playlists(ctx context.Context, filter func(name string) bool) ([]models.Playlist, error) {
	if f.err != nil {
		return nil, f.err
	}

	var out []models.Playlist
	for _, playlist := range f.playlists {
		if filter != nil && !filter(playlist.Name) {
			continue
		}
		out = append(out, playlist)
	}
	return out, nil
}

func (f *fakeSource) Name() string { return "Spotify" }

// fakeDest is an in-memory destination catalog. Searches find a destination
// copy of any track whose ISRC is listed in searchable.
type fakeDest struct {
	folders    []services.Folder
	playlists  map[string][]services.PlaylistRef // folder ID -> playlists
	tracks     map[string][]models.Track         // playlist ID -> tracks
	searchable map[string]models.Track           // ISRC -> destination track

	orderedIDs []string
}

func newFakeDest() *fakeDest {
	return &fakeDest{
		playlists:  map[string][]services.PlaylistRef{},
		tracks:     map[string][]models.Track{},
		searchable: map[string]models.Track{},
	}
}

func (f *fakeDest) RootFolder(ctx context.Context) (services.Folder, error) {
	return services.Folder{ID: "root", Name: "Playlists"}, nil
}

func (f *fakeDest) Folders(ctx context.Context) ([]services.Folder, error) {
	return f.folders, nil
}

func (f *fakeDest) CreateFolder(ctx context.Context, name string) (services.Folder, error) {
	folder := services.Folder{ID: fmt.Sprintf("folder-%d", len(f.folders)+1), Name: name}
	f.folders = append(f.folders, folder)
	return folder, nil
}

func (f *fakeDest) FolderPlaylists(ctx context.Context, folderID string) ([]services.PlaylistRef, error) {
	return f.playlists[folderID], nil
}

func (f *fakeDest) CreatePlaylist(ctx context.Context, name, description, folderID string) (services.PlaylistRef, error) {
	ref := services.PlaylistRef{ID: fmt.Sprintf("pl-%d", len(f.playlists[folderID])+1), Name: name, Description: description}
	f.playlists[folderID] = append(f.playlists[folderID], ref)
	return ref, nil
}

func (f *fakeDest) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	return f.tracks[playlistID], nil
}

func (f *fakeDest) EditDescription(ctx context.Context, playlistID, description string) error {
	return nil
}

func (f *fakeDest) SetPublic(ctx context.Context, playlistID string) error { return nil }

func (f *fakeDest) AddByISRC(ctx context.Context, playlistID, isrc string) error {
	track, ok := f.searchable[strings.ToUpper(isrc)]
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, isrc)
	}
	f.tracks[playlistID] = append(f.tracks[playlistID], track)
	return nil
}

func (f *fakeDest) SearchTracks(ctx context.Context, query string) ([]models.Track, error) {
	var out []models.Track
	for _, track := range f.searchable {
		out = append(out, track)
	}
	return out, nil
}

func (f *fakeDest) SetTrackOrder(ctx context.Context, playlistID string, trackIDs []string) error {
	f.orderedIDs = trackIDs
	return nil
}

func (f *fakeDest) Name() string { return "Tidal" }

var _ services.Source = (*fakeSource)(nil)
var _ services.Destination = (*fakeDest)(nil)

func testTrack(id, isrc, name string) models.Track {
	return models.Track{
		ID:       id,
		ISRC:     isrc,
		Name:     name,
		Duration: 3 * time.Minute,
		Artists:  []string{"Artist " + name},
	}
}

// testRunner wires a Runner around fakes, capturing output.
func testRunner(t *testing.T, source services.Source, dest services.Destination) (*Runner, *bytes.Buffer) {
	t.Helper()

	logger := log.New(io.Discard)
	output := &bytes.Buffer{}

	var engine *tasks.SyncEngine
	if dest != nil {
		var err error
		engine, err = tasks.NewSyncEngine(tasks.SyncEngineOpts{
			Destination: dest,
			Retrier: fetch.NewRetrier(fetch.RetrierOpts{
				Sleep:  func(time.Duration) {},
				Logger: logger,
			}),
			Logger: logger,
		})
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: shared.DefaultConfig(),
		Source: source,
		Dest:   dest,
		Engine: engine,
		Logger: logger,
		Output: output,
	})

	return runner, output
}

func runCommand(t *testing.T, r *Runner, args ...string) error {
	t.Helper()

	app := &cli.Command{Name: "tidal-bot", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"tidal-bot"}, args...))
}

func TestNewRunner(t *testing.T) {
	t.Run("Applies Defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.config == nil || runner.logger == nil || runner.output == nil {
			t.Error("expected defaults for config, logger and output")
		}
	})
}

func TestSpotifyPlaylists(t *testing.T) {
	source := &fakeSource{playlists: []models.Playlist{
		{Name: "EUROVISION 2024", URI: "https://open.spotify.com/playlist/a", Tracks: []models.Track{testTrack("t1", "ISRC1", "A")}},
		{Name: "Workout", Tracks: []models.Track{testTrack("t2", "ISRC2", "B")}},
	}}

	t.Run("Lists All Playlists", func(t *testing.T) {
		runner, output := testRunner(t, source, nil)

		if err := runCommand(t, runner, "spotify", "playlists"); err != nil {
			t.Fatalf("command failed: %v", err)
		}

		got := output.String()
		if !strings.Contains(got, "EUROVISION 2024 (1 tracks)") || !strings.Contains(got, "Workout") {
			t.Errorf("unexpected output:\n%s", got)
		}
	})

	t.Run("Honors Prefix Flag", func(t *testing.T) {
		runner, output := testRunner(t, source, nil)

		if err := runCommand(t, runner, "spotify", "playlists", "--prefix", "EUROVISION"); err != nil {
			t.Fatalf("command failed: %v", err)
		}

		got := output.String()
		if strings.Contains(got, "Workout") {
			t.Errorf("prefix filter leaked a playlist:\n%s", got)
		}
	})

	t.Run("JSON Output", func(t *testing.T) {
		runner, output := testRunner(t, source, nil)

		if err := runCommand(t, runner, "spotify", "playlists", "--json"); err != nil {
			t.Fatalf("command failed: %v", err)
		}

		var summaries []map[string]any
		if err := json.Unmarshal(output.Bytes(), &summaries); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if len(summaries) != 2 {
			t.Errorf("expected 2 playlists, got %d", len(summaries))
		}
	})

	t.Run("Missing Source Is An Error", func(t *testing.T) {
		runner, _ := testRunner(t, nil, nil)

		if err := runCommand(t, runner, "spotify", "playlists"); err == nil {
			t.Fatal("expected error without a source client")
		}
	})
}

func TestSyncRun(t *testing.T) {
	newFixtures := func() (*fakeSource, *fakeDest) {
		source := &fakeSource{playlists: []models.Playlist{
			{
				Name: "EUROVISION 2024",
				URI:  "https://open.spotify.com/playlist/a",
				Tracks: []models.Track{
					testTrack("t1", "ISRC1", "A"),
					testTrack("t2", "ISRC2", "B"),
				},
			},
		}}

		dest := newFakeDest()
		for _, track := range source.playlists[0].Tracks {
			dest.searchable[track.ISRC] = models.Track{
				ID:       "dest-" + track.ID,
				ISRC:     track.ISRC,
				Name:     track.Name,
				Duration: track.Duration,
				Artists:  track.Artists,
			}
		}

		return source, dest
	}

	t.Run("Merges Matching Playlists", func(t *testing.T) {
		source, dest := newFixtures()
		runner, output := testRunner(t, source, dest)

		if err := runCommand(t, runner, "sync", "--prefix", "EUROVISION", "--folder", "Eurovision"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		got := output.String()
		if !strings.Contains(got, "Playlists synced: 1/1") {
			t.Errorf("expected success summary, got:\n%s", got)
		}
		if !strings.Contains(got, "added 2") {
			t.Errorf("expected report with added count, got:\n%s", got)
		}

		if len(dest.folders) != 1 || dest.folders[0].Name != "Eurovision" {
			t.Errorf("expected created folder, got %v", dest.folders)
		}

		folderID := dest.folders[0].ID
		if len(dest.playlists[folderID]) != 1 {
			t.Fatalf("expected 1 playlist in folder, got %d", len(dest.playlists[folderID]))
		}

		playlistID := dest.playlists[folderID][0].ID
		if len(dest.tracks[playlistID]) != 2 {
			t.Errorf("expected 2 tracks added, got %d", len(dest.tracks[playlistID]))
		}
	})

	t.Run("Reorder Flag Mirrors Source Order", func(t *testing.T) {
		source, dest := newFixtures()

		// Pre-create the playlist with both tracks in reversed order.
		folder, _ := dest.CreateFolder(context.Background(), "Eurovision")
		ref, _ := dest.CreatePlaylist(context.Background(), "EUROVISION 2024", "", folder.ID)
		dest.tracks[ref.ID] = []models.Track{
			dest.searchable["ISRC2"],
			dest.searchable["ISRC1"],
		}

		runner, _ := testRunner(t, source, dest)

		if err := runCommand(t, runner, "sync", "--prefix", "EUROVISION", "--folder", "Eurovision", "--reorder"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		want := []string{"dest-t1", "dest-t2"}
		if len(dest.orderedIDs) != len(want) {
			t.Fatalf("expected reorder call with %v, got %v", want, dest.orderedIDs)
		}
		for i := range want {
			if dest.orderedIDs[i] != want[i] {
				t.Errorf("order[%d] = %s, want %s", i, dest.orderedIDs[i], want[i])
			}
		}
	})

	t.Run("Progress Lines Flush Before The Report", func(t *testing.T) {
		source, dest := newFixtures()
		runner, output := testRunner(t, source, dest)

		if err := runCommand(t, runner, "sync", "--prefix", "EUROVISION"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		got := output.String()
		progressIdx := strings.LastIndex(got, "[2/2]")
		reportIdx := strings.Index(got, "added 2")
		if progressIdx == -1 || reportIdx == -1 {
			t.Fatalf("expected progress lines and a report, got:\n%s", got)
		}
		if progressIdx > reportIdx {
			t.Errorf("progress output interleaved with the report:\n%s", got)
		}
	})

	t.Run("No Matching Playlists", func(t *testing.T) {
		source, dest := newFixtures()
		runner, output := testRunner(t, source, dest)

		if err := runCommand(t, runner, "sync", "--prefix", "NOPE"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		if !strings.Contains(output.String(), "No playlists matched") {
			t.Errorf("expected empty-match notice, got:\n%s", output.String())
		}
	})

	t.Run("Missing Destination Is An Error", func(t *testing.T) {
		source, _ := newFixtures()
		runner, _ := testRunner(t, source, nil)

		if err := runCommand(t, runner, "sync"); err == nil {
			t.Fatal("expected error without a destination client")
		}
	})

	t.Run("JSON Report Format", func(t *testing.T) {
		source, dest := newFixtures()
		runner, output := testRunner(t, source, dest)

		if err := runCommand(t, runner, "sync", "--prefix", "EUROVISION", "--format", "json"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		if !strings.Contains(output.String(), `"playlist": "EUROVISION 2024"`) {
			t.Errorf("expected JSON report, got:\n%s", output.String())
		}
	})
}

func TestSyncDescription(t *testing.T) {
	if got := syncDescription("Spotify", "https://open.spotify.com/playlist/a"); got != "Playlist synced from Spotify https://open.spotify.com/playlist/a" {
		t.Errorf("unexpected description %q", got)
	}
	if got := syncDescription("Spotify", ""); got != "" {
		t.Errorf("expected empty description without URI, got %q", got)
	}
}

func TestPrefixFilter(t *testing.T) {
	if prefixFilter("") != nil {
		t.Error("empty prefix should disable filtering")
	}

	filter := prefixFilter("EURO")
	if !filter("EUROVISION 2024") || filter("Workout") {
		t.Error("prefix filter misclassified names")
	}
}
