// Spotify read-only implementation of [Source]
//
// Response types follow https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/marmottus/tidal-bot/internal/fetch"
	"github.com/marmottus/tidal-bot/internal/models"
	"github.com/marmottus/tidal-bot/internal/shared"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	// spotifyPageSize is the page size for playlist track listings.
	spotifyPageSize = 100

	// spotifyPlaylistPageSize is the page size for playlist listings,
	// capped at 50 by the API.
	spotifyPlaylistPageSize = 50
)

type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type spotifyExternalIDs struct {
	ISRC string `json:"isrc"`
}

type spotifyExternalURLs struct {
	Spotify string `json:"spotify"`
}

type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []spotifyArtist `json:"artists"`
	TotalTracks int             `json:"total_tracks"`
}

type spotifyTrack struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Artists     []spotifyArtist    `json:"artists"`
	Album       *spotifyAlbum      `json:"album"`
	DurationMS  int                `json:"duration_ms"`
	ExternalIDs spotifyExternalIDs `json:"external_ids"`
}

type spotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *spotifyTrack `json:"track"`
}

type spotifyPagingTracks struct {
	Items  []spotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

type spotifySimplePlaylist struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Public       bool                 `json:"public"`
	Images       []spotifyImage       `json:"images"`
	ExternalURLs *spotifyExternalURLs `json:"external_urls"`
}

type spotifyPagingPlaylists struct {
	Items  []spotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

// SpotifyClient implements [Source] against the Spotify Web API.
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retrier    *fetch.Retrier
	logger     *log.Logger
}

// SpotifyOpts configures a [SpotifyClient].
type SpotifyOpts struct {
	// AccessToken is a ready-to-use bearer token. Acquisition and refresh
	// are owned by the excluded connection layer.
	AccessToken string

	// BaseURL overrides the API root, mainly for tests.
	BaseURL string

	// RequestsPerSecond caps the request rate. Defaults to 5.
	RequestsPerSecond float64

	Retrier *fetch.Retrier
	Logger  *log.Logger
}

// NewSpotifyClient creates a Spotify source client from a bearer token.
func NewSpotifyClient(ctx context.Context, opts SpotifyOpts) (*SpotifyClient, error) {
	if opts.AccessToken == "" {
		return nil, fmt.Errorf("%w: spotify access token", shared.ErrMissingCredentials)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5.0
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Retrier == nil {
		opts.Retrier = fetch.NewRetrier(fetch.RetrierOpts{Logger: opts.Logger})
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.AccessToken})

	return &SpotifyClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: oauth2.NewClient(ctx, source),
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		retrier:    opts.Retrier,
		logger:     opts.Logger.With("service", "spotify"),
	}, nil
}

func (s *SpotifyClient) Name() string {
	return "Spotify"
}

// doRequest performs a rate-limited GET against the Spotify API and decodes
// the JSON response into result.
func (s *SpotifyClient) doRequest(ctx context.Context, endpoint string, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return classifyRequestError("spotify", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus("spotify", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func parseSpotifyAlbum(album *spotifyAlbum) *models.Album {
	if album == nil || album.Name == "" {
		return nil
	}

	artists := make([]string, 0, len(album.Artists))
	for _, artist := range album.Artists {
		if artist.Name != "" {
			artists = append(artists, artist.Name)
		}
	}

	return &models.Album{
		Name:        album.Name,
		TotalTracks: album.TotalTracks,
		Artists:     artists,
	}
}

// parseSpotifyTrack maps an API track to the neutral model. Tracks missing a
// name, ISRC or duration cannot participate in matching and are dropped.
func parseSpotifyTrack(track *spotifyTrack) (models.Track, bool) {
	if track == nil || track.Name == "" || track.ExternalIDs.ISRC == "" || track.DurationMS == 0 {
		return models.Track{}, false
	}

	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		if artist.Name != "" {
			artists = append(artists, artist.Name)
		}
	}

	return models.Track{
		ID:       track.ID,
		ISRC:     strings.ToUpper(track.ExternalIDs.ISRC),
		Name:     track.Name,
		Duration: time.Duration(track.DurationMS) * time.Millisecond,
		Artists:  artists,
		Album:    parseSpotifyAlbum(track.Album),
	}, true
}

// playlistTracks fetches the full ordered track listing of a playlist and
// deduplicates it, keeping first occurrences.
func (s *SpotifyClient) playlistTracks(ctx context.Context, playlistID string) []models.Track {
	var tracks []models.Track

	items := fetch.Collect(ctx, s.retrier, "spotify playlist items", spotifyPageSize,
		func(ctx context.Context, offset, limit int) ([]spotifyPlaylistTrack, error) {
			var page spotifyPagingTracks
			endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, limit, offset)
			if err := s.doRequest(ctx, endpoint, &page); err != nil {
				return nil, err
			}
			return page.Items, nil
		})

	for _, item := range items {
		if track, ok := parseSpotifyTrack(item.Track); ok {
			tracks = append(tracks, track)
		}
	}

	s.logger.Debug("fetched playlist tracks", "playlist", playlistID, "count", len(tracks))

	unique := models.DeduplicateTracks(tracks)
	if len(unique) < len(tracks) {
		s.logger.Debug("dropped duplicate tracks", "playlist", playlistID, "dropped", len(tracks)-len(unique))
	}

	return unique
}

// coverImage downloads the playlist cover art, returning nil on any failure.
func (s *SpotifyClient) coverImage(ctx context.Context, imageURL string) []byte {
	if imageURL == "" {
		return nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.logger.Warn("failed to fetch cover image", "url", imageURL, "err", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("failed to fetch cover image", "url", imageURL, "status", resp.StatusCode)
		return nil
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	return image
}

// Playlists lists the account's playlists with their full track listings.
func (s *SpotifyClient) Playlists(ctx context.Context, filter func(name string) bool) ([]models.Playlist, error) {
	s.logger.Info("fetching playlists")

	refs := fetch.Collect(ctx, s.retrier, "spotify playlists", spotifyPlaylistPageSize,
		func(ctx context.Context, offset, limit int) ([]spotifySimplePlaylist, error) {
			var page spotifyPagingPlaylists
			endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)
			if err := s.doRequest(ctx, endpoint, &page); err != nil {
				return nil, err
			}
			return page.Items, nil
		})

	playlists := make([]models.Playlist, 0, len(refs))
	for _, ref := range refs {
		if ref.Name == "" {
			continue
		}
		if filter != nil && !filter(ref.Name) {
			continue
		}

		playlist := models.Playlist{
			Name:   ref.Name,
			Tracks: s.playlistTracks(ctx, ref.ID),
		}
		if ref.ExternalURLs != nil {
			playlist.URI = ref.ExternalURLs.Spotify
		}
		if len(ref.Images) > 0 {
			playlist.Image = s.coverImage(ctx, ref.Images[0].URL)
		}

		if len(playlist.Tracks) == 0 {
			s.logger.Info("no tracks found in playlist", "playlist", ref.Name)
		}

		playlists = append(playlists, playlist)
	}

	return playlists, nil
}

var _ Source = (*SpotifyClient)(nil)
