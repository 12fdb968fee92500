// Package main provides the tapedeck control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/joho/godotenv"
	"github.com/samber/lo"

	apiconnect "github.com/osa030/tapedeck/internal/api/connect"
	"github.com/osa030/tapedeck/internal/domain/playlist"
	"github.com/osa030/tapedeck/internal/domain/track"
)

var (
	app    = kingpin.New("tapedeckctl", "tapedeck control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Control token (or set TAPEDECK_TOKEN env)").Envar("TAPEDECK_TOKEN").String()
	wait   = app.Flag("wait", "Return once the new track URL resolved").Bool()

	// status command
	statusCmd = app.Command("status", "Show transport status")

	// queue command
	queueCmd = app.Command("queue", "Show the queue")

	// transport commands
	playCmd  = app.Command("play", "Resume playback")
	pauseCmd = app.Command("pause", "Pause playback")
	stopCmd  = app.Command("stop", "Clear the queue and stop")
	nextCmd  = app.Command("next", "Skip to the next track").Alias("skip")
	prevCmd  = app.Command("prev", "Go back to the previous track")

	// jump command
	jumpCmd   = app.Command("jump", "Play the queue entry at index")
	jumpIndex = jumpCmd.Arg("index", "Queue index (0-based)").Required().Int()

	// remove command
	removeCmd   = app.Command("remove", "Remove the queue entry at index").Alias("rm")
	removeIndex = removeCmd.Arg("index", "Queue index (0-based)").Required().Int()

	// seek command
	seekCmd     = app.Command("seek", "Seek to a position")
	seekSeconds = seekCmd.Arg("seconds", "Position in seconds").Required().Float64()

	// volume command
	volumeCmd      = app.Command("volume", "Set the output volume")
	volumeFraction = volumeCmd.Arg("fraction", "Volume between 0 and 1").Required().Float64()

	// push command
	pushCmd         = app.Command("push", "Append a track to the queue")
	pushID          = pushCmd.Arg("id", "Track ID").Required().String()
	pushName        = pushCmd.Arg("name", "Track name").Required().String()
	pushDuration    = pushCmd.Flag("duration", "Track duration (e.g. 3m05s)").Duration()
	pushArt         = pushCmd.Flag("art", "Artwork URL").String()
	pushAlbumID     = pushCmd.Flag("album-id", "Album ID").String()
	pushAlbumName   = pushCmd.Flag("album-name", "Album name").String()
	pushAlbumArtist = pushCmd.Flag("album-artist", "Album artist").String()

	// set command
	setCmd     = app.Command("set", "Replace the queue with a playlist file")
	setFile    = setCmd.Arg("playlist", "Playlist YAML file").Required().ExistingFile()
	setStartAt = setCmd.Flag("start", "Index of the first track to play").Default("0").Int()
	setArt     = setCmd.Flag("art", "Artwork URL for tracks without one").String()

	// watch command
	watchCmd = app.Command("watch", "Stream status changes until interrupted")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		status *apiconnect.Status
		err    error
	)

	// Execute command
	switch command {
	case statusCmd.FullCommand():
		status, err = client.GetStatus(ctx)
	case queueCmd.FullCommand():
		status, err = client.GetStatus(ctx)
		if err == nil {
			printQueue(status)
			return
		}
	case playCmd.FullCommand():
		status, err = client.Play(ctx)
	case pauseCmd.FullCommand():
		status, err = client.Pause(ctx)
	case stopCmd.FullCommand():
		if err = client.Stop(ctx); err == nil {
			fmt.Println("Stopped")
			return
		}
	case nextCmd.FullCommand():
		status, err = client.QueueSkip(ctx, *wait)
	case prevCmd.FullCommand():
		status, err = client.QueuePrev(ctx, *wait)
	case jumpCmd.FullCommand():
		status, err = client.QueueJump(ctx, *jumpIndex, *wait)
	case removeCmd.FullCommand():
		status, err = client.QueueRemove(ctx, *removeIndex, *wait)
	case seekCmd.FullCommand():
		status, err = client.Seek(ctx, *seekSeconds)
	case volumeCmd.FullCommand():
		status, err = client.SetVolume(ctx, *volumeFraction)
	case pushCmd.FullCommand():
		status, err = client.QueuePush(ctx, &apiconnect.QueuePushRequest{
			Track: apiconnect.FromTrack(pushedTrack()),
			Wait:  *wait,
		})
	case setCmd.FullCommand():
		status, err = setQueue(ctx, client)
	case watchCmd.FullCommand():
		err = client.Watch(ctx, func(s *apiconnect.Status) error {
			printStatusLine(s)
			return nil
		})
		if err == nil {
			return
		}
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	printStatus(status)
}

func pushedTrack() track.Track {
	t := track.Track{
		ID:       *pushID,
		Name:     *pushName,
		Duration: *pushDuration,
		ArtURL:   *pushArt,
	}
	if *pushAlbumID != "" || *pushAlbumName != "" || *pushAlbumArtist != "" {
		t.Album = &track.AlbumRef{
			ID:     *pushAlbumID,
			Name:   *pushAlbumName,
			Artist: *pushAlbumArtist,
		}
	}
	return t
}

func setQueue(ctx context.Context, client *apiconnect.Client) (*apiconnect.Status, error) {
	pl, err := playlist.LoadFile(*setFile)
	if err != nil {
		return nil, err
	}
	tracks := track.WithArtFallback(pl.Tracks, *setArt)
	fmt.Printf("Loading %q: %d tracks, %s\n", pl.Name, len(tracks), formatDuration(pl.TotalDuration().Seconds()))

	return client.QueueSet(ctx, &apiconnect.QueueSetRequest{
		Tracks:  lo.Map(tracks, func(t track.Track, _ int) apiconnect.Track { return apiconnect.FromTrack(t) }),
		StartAt: *setStartAt,
		Wait:    *wait,
	})
}

func printStatus(s *apiconnect.Status) {
	if s == nil {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendRow(table.Row{"Phase", phaseColor(s.Phase)(s.Phase)})

	if entry, ok := s.Current(); ok {
		t.AppendRow(table.Row{"Track", entry.Track.Name})
		if entry.Track.Album != nil {
			t.AppendRow(table.Row{"Album", albumLine(entry.Track.Album)})
		}
		t.AppendRow(table.Row{"Position", fmt.Sprintf("%s / %s", formatDuration(s.CurrentTime), formatDuration(s.Duration))})
		t.AppendRow(table.Row{"Index", fmt.Sprintf("%d of %d", s.CurrentIndex+1, len(s.Queue))})
	} else {
		t.AppendRow(table.Row{"Track", "-"})
	}

	t.AppendRow(table.Row{"Requested", s.RequestedState})
	t.AppendRow(table.Row{"Reported", s.ReportedState})
	t.AppendRow(table.Row{"Volume", fmt.Sprintf("%.0f%%", s.Volume*100)})
	if s.Error != nil {
		t.AppendRow(table.Row{"Error", text.FgRed.Sprintf("%s: %s", s.Error.Kind, s.Error.Message)})
	}
	t.Render()
}

func printQueue(s *apiconnect.Status) {
	if len(s.Queue) == 0 {
		fmt.Println("Queue is empty")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "#", "Track", "Album", "Duration", "Added"})
	for i, entry := range s.Queue {
		marker := ""
		if i == s.CurrentIndex {
			marker = ">"
		}
		album := ""
		if entry.Track.Album != nil {
			album = albumLine(entry.Track.Album)
		}
		t.AppendRow(table.Row{
			marker,
			i,
			entry.Track.Name,
			album,
			formatDuration(float64(entry.Track.DurationMs) / 1000),
			entry.AddedAt.Local().Format(time.TimeOnly),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", formatDuration(totalSeconds(s.Queue)), ""})
	t.Render()
}

func printStatusLine(s *apiconnect.Status) {
	name := "-"
	if entry, ok := s.Current(); ok {
		name = entry.Track.Name
	}
	line := fmt.Sprintf("[%d] %-8s %s %s/%s vol=%.2f",
		s.SequenceNo, s.Phase, name, formatDuration(s.CurrentTime), formatDuration(s.Duration), s.Volume)
	if s.Error != nil {
		line += " error=" + s.Error.Message
	}
	fmt.Println(phaseColor(s.Phase)(line))
}

func totalSeconds(entries []apiconnect.QueueEntry) float64 {
	return lo.SumBy(entries, func(e apiconnect.QueueEntry) float64 {
		return float64(e.Track.DurationMs) / 1000
	})
}

func albumLine(a *apiconnect.Album) string {
	if a.Artist == "" {
		return a.Name
	}
	return a.Artist + " - " + a.Name
}

func phaseColor(phase string) func(a ...any) string {
	switch phase {
	case "playing":
		return text.FgGreen.Sprint
	case "loading", "ready":
		return text.FgYellow.Sprint
	case "error":
		return text.FgRed.Sprint
	default:
		return text.FgHiBlack.Sprint
	}
}

// formatDuration formats seconds as m:ss (h:mm:ss past an hour).
func formatDuration(seconds float64) string {
	total := int(max(seconds, 0))
	h, m, s := total/3600, total/60%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
