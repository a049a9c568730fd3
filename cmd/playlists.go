package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/marmottus/tidal-bot/internal/shared"
)

// SpotifyPlaylists lists the source account's playlists with track counts.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	source, err := r.requireSource()
	if err != nil {
		return err
	}

	prefix := cmd.String("prefix")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	r.logger.Info("listing playlists", "service", source.Name(), "prefix", prefix)

	playlists, err := source.Playlists(ctx, prefixFilter(prefix))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if useJSON {
		type playlistSummary struct {
			Name   string `json:"name"`
			URI    string `json:"uri,omitempty"`
			Tracks int    `json:"tracks"`
		}

		summaries := make([]playlistSummary, 0, len(playlists))
		for _, playlist := range playlists {
			summaries = append(summaries, playlistSummary{
				Name:   playlist.Name,
				URI:    playlist.URI,
				Tracks: len(playlist.Tracks),
			})
		}

		return r.writeJSON(summaries, pretty)
	}

	r.writePlainHeader(fmt.Sprintf("%s Playlists (%d)", source.Name(), len(playlists)))
	for i, playlist := range playlists {
		r.writePlain("%d. %s (%d tracks)\n", i+1, playlist.Name, len(playlist.Tracks))
		if playlist.URI != "" {
			r.writePlain("   %s\n", playlist.URI)
		}
	}

	return nil
}

// TidalFolders lists the destination account's playlist folders.
func (r *Runner) TidalFolders(ctx context.Context, cmd *cli.Command) error {
	dest, err := r.requireDest()
	if err != nil {
		return err
	}

	folders, err := dest.Folders(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(folders, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s Folders (%d)", dest.Name(), len(folders)))
	for i, folder := range folders {
		r.writePlain("%d. %s (%s)\n", i+1, folder.Name, folder.ID)
	}

	return nil
}

// TidalPlaylists lists the playlists inside a destination folder. Without
// --folder the root folder is listed.
func (r *Runner) TidalPlaylists(ctx context.Context, cmd *cli.Command) error {
	dest, err := r.requireDest()
	if err != nil {
		return err
	}

	folderName := cmd.String("folder")

	folder, err := dest.RootFolder(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if folderName != "" {
		folders, err := dest.Folders(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}

		found := false
		for _, candidate := range folders {
			if candidate.Name == folderName {
				folder = candidate
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", shared.ErrFolderNotFound, folderName)
		}
	}

	refs, err := dest.FolderPlaylists(ctx, folder.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(refs, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s Playlists in %s (%d)", dest.Name(), folder.Name, len(refs)))
	for i, ref := range refs {
		visibility := "private"
		if ref.Public {
			visibility = "public"
		}
		r.writePlain("%d. %s (%s, %s)\n", i+1, ref.Name, ref.ID, visibility)
	}

	return nil
}
