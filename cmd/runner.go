package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/marmottus/tidal-bot/internal/repositories"
	"github.com/marmottus/tidal-bot/internal/services"
	"github.com/marmottus/tidal-bot/internal/shared"
	"github.com/marmottus/tidal-bot/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	source services.Source
	dest   services.Destination
	engine *tasks.SyncEngine
	cache  *repositories.TrackCache
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Source services.Source
	Dest   services.Destination
	Engine *tasks.SyncEngine
	Cache  *repositories.TrackCache
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		source: opts.Source,
		dest:   opts.Dest,
		engine: opts.Engine,
		cache:  opts.Cache,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, spotifyCommand, tidalCommand, syncCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireSource ensures the source catalog was initialized from config.
func (r *Runner) requireSource() (services.Source, error) {
	if r.source == nil {
		return nil, fmt.Errorf("%w: Spotify client not initialized, set credentials.spotify.access_token", shared.ErrServiceUnavailable)
	}
	return r.source, nil
}

// requireDest ensures the destination catalog was initialized from config.
func (r *Runner) requireDest() (services.Destination, error) {
	if r.dest == nil {
		return nil, fmt.Errorf("%w: Tidal client not initialized, set credentials.tidal.access_token", shared.ErrServiceUnavailable)
	}
	return r.dest, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
