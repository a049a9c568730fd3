// Tidal read/write implementation of [Destination]
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
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
	tidalBaseURL = "https://api.tidal.com/v1"

	// tidalPageSize is the page size for folder and playlist listings.
	tidalPageSize = 50

	// tidalRootFolderID is the well-known ID of the account root folder.
	tidalRootFolderID = "root"
)

type tidalArtist struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type tidalAlbum struct {
	ID        int           `json:"id"`
	Title     string        `json:"title"`
	NumTracks int           `json:"numberOfTracks"`
	Artist    *tidalArtist  `json:"artist"`
	Artists   []tidalArtist `json:"artists"`
}

type tidalTrack struct {
	ID       int           `json:"id"`
	Title    string        `json:"title"`
	Duration int           `json:"duration"` // seconds
	ISRC     string        `json:"isrc"`
	Artists  []tidalArtist `json:"artists"`
	Album    *tidalAlbum   `json:"album"`
}

type tidalFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type tidalPlaylist struct {
	UUID        string `json:"uuid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Public      bool   `json:"publicPlaylist"`
	NumTracks   int    `json:"numberOfTracks"`
}

type tidalFolderItem struct {
	ItemType string         `json:"itemType"`
	Playlist *tidalPlaylist `json:"playlist"`
}

type tidalItemsPage[T any] struct {
	Items      []T `json:"items"`
	TotalItems int `json:"totalNumberOfItems"`
}

type tidalSearchResult struct {
	Tracks tidalItemsPage[tidalTrack] `json:"tracks"`
}

type tidalSuccess struct {
	Success bool `json:"success"`
}

// TidalClient implements [Destination] against the Tidal API.
type TidalClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retrier    *fetch.Retrier
	logger     *log.Logger
}

// TidalOpts configures a [TidalClient].
type TidalOpts struct {
	// AccessToken is a ready-to-use bearer token; acquisition and refresh
	// are owned by the excluded connection layer.
	AccessToken string

	// BaseURL overrides the API root, mainly for tests.
	BaseURL string

	// RequestsPerSecond caps the request rate. Defaults to 5.
	RequestsPerSecond float64

	Retrier *fetch.Retrier
	Logger  *log.Logger
}

// NewTidalClient creates a Tidal destination client from a bearer token.
func NewTidalClient(ctx context.Context, opts TidalOpts) (*TidalClient, error) {
	if opts.AccessToken == "" {
		return nil, fmt.Errorf("%w: tidal access token", shared.ErrMissingCredentials)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = tidalBaseURL
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

	return &TidalClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: oauth2.NewClient(ctx, source),
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		retrier:    opts.Retrier,
		logger:     opts.Logger.With("service", "tidal"),
	}, nil
}

func (t *TidalClient) Name() string {
	return "Tidal"
}

// doRequest performs a rate-limited request against the Tidal API. A non-nil
// body is form-encoded; a non-nil result receives the decoded JSON response.
func (t *TidalClient) doRequest(ctx context.Context, method, endpoint string, form url.Values, result any) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body *bytes.Reader
	if form != nil {
		body = bytes.NewReader([]byte(form.Encode()))
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return classifyRequestError("tidal", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus("tidal", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func parseTidalAlbum(album *tidalAlbum) *models.Album {
	if album == nil || album.Title == "" {
		return nil
	}

	var artists []string
	if album.Artist != nil && album.Artist.Name != "" {
		artists = append(artists, album.Artist.Name)
	}
	for _, artist := range album.Artists {
		if artist.Name == "" {
			continue
		}
		seen := false
		for _, existing := range artists {
			if existing == artist.Name {
				seen = true
				break
			}
		}
		if !seen {
			artists = append(artists, artist.Name)
		}
	}

	return &models.Album{
		Name:        album.Title,
		TotalTracks: album.NumTracks,
		Artists:     artists,
	}
}

// parseTidalTrack maps an API track to the neutral model. Tracks missing a
// title, ISRC, ID or duration cannot participate in matching and are
// dropped.
func parseTidalTrack(track tidalTrack) (models.Track, bool) {
	if track.Title == "" || track.ISRC == "" || track.ID == 0 || track.Duration == 0 {
		return models.Track{}, false
	}

	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		if artist.Name != "" {
			artists = append(artists, artist.Name)
		}
	}

	return models.Track{
		ID:       strconv.Itoa(track.ID),
		ISRC:     strings.ToUpper(track.ISRC),
		Name:     track.Title,
		Duration: time.Duration(track.Duration) * time.Second,
		Artists:  artists,
		Album:    parseTidalAlbum(track.Album),
	}, true
}

// RootFolder returns the account's root playlist folder.
func (t *TidalClient) RootFolder(ctx context.Context) (Folder, error) {
	var folder tidalFolder
	if err := t.doRequest(ctx, http.MethodGet, "/my-collection/playlists/folders/root", nil, &folder); err != nil {
		return Folder{}, err
	}

	if folder.ID == "" {
		folder.ID = tidalRootFolderID
	}

	return Folder{ID: folder.ID, Name: folder.Name}, nil
}

// Folders lists the folders of the account's playlist hierarchy.
func (t *TidalClient) Folders(ctx context.Context) ([]Folder, error) {
	var page tidalItemsPage[tidalFolder]
	if err := t.doRequest(ctx, http.MethodGet, "/my-collection/playlists/folders", nil, &page); err != nil {
		return nil, err
	}

	folders := make([]Folder, 0, len(page.Items))
	for _, item := range page.Items {
		if item.Name == "" {
			continue
		}
		folders = append(folders, Folder{ID: item.ID, Name: item.Name})
	}

	return folders, nil
}

// CreateFolder creates a playlist folder under the root.
func (t *TidalClient) CreateFolder(ctx context.Context, name string) (Folder, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("folderId", tidalRootFolderID)

	var folder tidalFolder
	if err := t.doRequest(ctx, http.MethodPut, "/my-collection/playlists/folders/create-folder", form, &folder); err != nil {
		return Folder{}, err
	}

	return Folder{ID: folder.ID, Name: folder.Name}, nil
}

// FolderPlaylists lists all playlists inside a folder. Pagination runs over
// the raw folder items, so non-playlist entries inside a full page never end
// the listing early; they are filtered out after collection.
func (t *TidalClient) FolderPlaylists(ctx context.Context, folderID string) ([]PlaylistRef, error) {
	items := fetch.Collect(ctx, t.retrier, "tidal folder items", tidalPageSize,
		func(ctx context.Context, offset, limit int) ([]tidalFolderItem, error) {
			endpoint := fmt.Sprintf("/my-collection/playlists/folders/%s/items?offset=%d&limit=%d",
				url.PathEscape(folderID), offset, limit)

			var page tidalItemsPage[tidalFolderItem]
			if err := t.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
				return nil, err
			}
			return page.Items, nil
		})

	refs := make([]PlaylistRef, 0, len(items))
	for _, item := range items {
		if item.ItemType != "PLAYLIST" || item.Playlist == nil {
			continue
		}
		refs = append(refs, PlaylistRef{
			ID:          item.Playlist.UUID,
			Name:        item.Playlist.Title,
			Description: item.Playlist.Description,
			Public:      item.Playlist.Public,
		})
	}

	return refs, nil
}

// CreatePlaylist creates a playlist inside the given folder.
func (t *TidalClient) CreatePlaylist(ctx context.Context, name, description, folderID string) (PlaylistRef, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("description", description)
	form.Set("folderId", folderID)

	var playlist tidalPlaylist
	if err := t.doRequest(ctx, http.MethodPut, "/my-collection/playlists/create-playlist", form, &playlist); err != nil {
		return PlaylistRef{}, err
	}

	return PlaylistRef{
		ID:          playlist.UUID,
		Name:        playlist.Title,
		Description: playlist.Description,
		Public:      playlist.Public,
	}, nil
}

// PlaylistTracks lists all tracks of a playlist in playlist order.
// Pagination runs over the raw items and unparseable entries are dropped
// after collection, so a dropped entry inside a full page never ends the
// listing early.
func (t *TidalClient) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	items := fetch.Collect(ctx, t.retrier, "tidal playlist tracks", tidalPageSize,
		func(ctx context.Context, offset, limit int) ([]tidalTrack, error) {
			endpoint := fmt.Sprintf("/playlists/%s/tracks?offset=%d&limit=%d", url.PathEscape(playlistID), offset, limit)

			var page tidalItemsPage[tidalTrack]
			if err := t.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
				return nil, err
			}
			return page.Items, nil
		})

	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		if track, ok := parseTidalTrack(item); ok {
			tracks = append(tracks, track)
		}
	}

	return tracks, nil
}

// EditDescription replaces a playlist's description.
func (t *TidalClient) EditDescription(ctx context.Context, playlistID, description string) error {
	form := url.Values{}
	form.Set("description", description)

	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))

	var status tidalSuccess
	if err := t.doRequest(ctx, http.MethodPost, endpoint, form, &status); err != nil {
		return err
	}
	if !status.Success {
		return fmt.Errorf("%w: edit description rejected", shared.ErrAPIRequest)
	}

	return nil
}

// SetPublic makes a playlist publicly visible.
func (t *TidalClient) SetPublic(ctx context.Context, playlistID string) error {
	endpoint := fmt.Sprintf("/playlists/%s/set-public", url.PathEscape(playlistID))

	var status tidalSuccess
	if err := t.doRequest(ctx, http.MethodPut, endpoint, nil, &status); err != nil {
		return err
	}
	if !status.Success {
		return fmt.Errorf("%w: set public rejected", shared.ErrAPIRequest)
	}

	return nil
}

// AddByISRC adds the recording identified by isrc to a playlist.
func (t *TidalClient) AddByISRC(ctx context.Context, playlistID, isrc string) error {
	form := url.Values{}
	form.Set("isrc", isrc)

	endpoint := fmt.Sprintf("/playlists/%s/items", url.PathEscape(playlistID))

	var status tidalSuccess
	if err := t.doRequest(ctx, http.MethodPost, endpoint, form, &status); err != nil {
		return err
	}
	if !status.Success {
		return fmt.Errorf("%w: add by ISRC rejected", shared.ErrAPIRequest)
	}

	return nil
}

// SearchTracks runs a free-text track search and returns the ordered
// candidate list.
func (t *TidalClient) SearchTracks(ctx context.Context, query string) ([]models.Track, error) {
	endpoint := fmt.Sprintf("/search?query=%s&types=TRACKS&limit=%d", url.QueryEscape(query), tidalPageSize)

	var result tidalSearchResult
	if err := t.doRequest(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(result.Tracks.Items))
	for _, item := range result.Tracks.Items {
		if track, ok := parseTidalTrack(item); ok {
			tracks = append(tracks, track)
		}
	}

	return tracks, nil
}

// SetTrackOrder re-sequences a playlist to match trackIDs exactly.
func (t *TidalClient) SetTrackOrder(ctx context.Context, playlistID string, trackIDs []string) error {
	form := url.Values{}
	form.Set("trackIds", strings.Join(trackIDs, ","))

	endpoint := fmt.Sprintf("/playlists/%s/items/order", url.PathEscape(playlistID))

	var status tidalSuccess
	if err := t.doRequest(ctx, http.MethodPut, endpoint, form, &status); err != nil {
		return err
	}
	if !status.Success {
		return fmt.Errorf("%w: reorder rejected", shared.ErrAPIRequest)
	}

	return nil
}

var _ Destination = (*TidalClient)(nil)
