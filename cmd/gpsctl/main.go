// Command gpsctl is the operator tool for recorded GPS data: it can
// record live traffic, inspect and prune CSV track files, and send or
// validate NMEA sentences.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/vaultecki/py-positioning-stuff/internal/config"
	"github.com/vaultecki/py-positioning-stuff/internal/nmea"
	"github.com/vaultecki/py-positioning-stuff/internal/storage"
	"github.com/vaultecki/py-positioning-stuff/internal/track"
	"github.com/vaultecki/py-positioning-stuff/internal/udp"
)

type globals struct {
	Config string `help:"Path to YAML config." default:"./gpsnode.yaml"`

	cfg config.Config
}

var cli struct {
	globals

	Record   recordCmd   `cmd:"" help:"Record live UDP traffic into a CSV file."`
	Stats    statsCmd    `cmd:"" help:"Print statistics of a recorded CSV file."`
	Filter   filterCmd   `cmd:"" help:"Extract fixes from a CSV file by date range."`
	Cleanup  cleanupCmd  `cmd:"" help:"Delete fixes older than a given age from a CSV file."`
	List     listCmd     `cmd:"" help:"List recorded CSV files."`
	Send     sendCmd     `cmd:"" help:"Send NMEA sentences over UDP."`
	Validate validateCmd `cmd:"" help:"Check NMEA sentences for format and checksum errors."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("gpsctl"),
		kong.Description("Operator tool for GPS track data."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	ctx.FatalIfErrorf(err)
	cli.cfg = cfg

	ctx.FatalIfErrorf(ctx.Run(&cli.globals))
}

type recordCmd struct {
	File     string        `help:"Output CSV filename." default:"recording.csv"`
	Duration time.Duration `help:"Stop after this long; 0 records until interrupted." default:"0"`
}

func (c *recordCmd) Run(g *globals) error {
	db, err := storage.New(g.cfg.Storage.Dir)
	if err != nil {
		return err
	}

	receiver, err := udp.NewReceiver(udp.ReceiverConfig{
		Host:         "0.0.0.0",
		Port:         g.cfg.Network.ReceivePort,
		BufferSize:   g.cfg.Network.BufferSize,
		PollInterval: g.cfg.Network.PollInterval,
	})
	if err != nil {
		return err
	}
	defer receiver.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if c.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Duration)
		defer cancel()
	}

	var recorded int
	receiver.Register(func(line string, _ *net.UDPAddr) {
		sentence, err := nmea.SafeParse(strings.TrimSpace(line), true)
		if err != nil {
			return
		}
		info, ok := nmea.ExtractPositionInfo(sentence)
		if !ok {
			return
		}
		fix := track.Fix{
			Latitude:   info.Latitude,
			Longitude:  info.Longitude,
			Timestamp:  time.Now().UTC(),
			Satellites: info.Satellites,
			Quality:    info.Quality,
		}
		if info.Altitude != nil {
			fix.Altitude = *info.Altitude
		}
		if _, err := db.Append([]track.Fix{fix}, c.File); err != nil {
			fmt.Fprintf(os.Stderr, "append: %v\n", err)
			return
		}
		recorded++
	})

	fmt.Printf("recording to %s/%s, port %d\n", g.cfg.Storage.Dir, c.File, g.cfg.Network.ReceivePort)
	if err := receiver.Run(ctx); err != nil {
		return err
	}
	fmt.Printf("recorded %d fixes\n", recorded)
	return nil
}

type statsCmd struct {
	File string `arg:"" help:"CSV filename inside the storage directory."`
}

func (c *statsCmd) Run(g *globals) error {
	db, err := storage.New(g.cfg.Storage.Dir)
	if err != nil {
		return err
	}
	stats, err := db.Statistics(c.File)
	if err != nil {
		return err
	}

	fmt.Printf("file:     %s\n", c.File)
	fmt.Printf("records:  %d\n", stats.RecordCount)
	if stats.AvgLatitude != nil && stats.AvgLongitude != nil {
		fmt.Printf("center:   %.6f %.6f\n", *stats.AvgLatitude, *stats.AvgLongitude)
	}
	if stats.MinLatitude != nil && stats.MaxLatitude != nil {
		fmt.Printf("lat span: %.6f .. %.6f\n", *stats.MinLatitude, *stats.MaxLatitude)
	}
	if stats.MinLongitude != nil && stats.MaxLongitude != nil {
		fmt.Printf("lon span: %.6f .. %.6f\n", *stats.MinLongitude, *stats.MaxLongitude)
	}
	if stats.AvgAltitude != nil {
		fmt.Printf("avg alt:  %.1f m\n", *stats.AvgAltitude)
	}
	if stats.TimeSpanSeconds != nil {
		fmt.Printf("span:     %.1f s\n", *stats.TimeSpanSeconds)
	}
	return nil
}

type filterCmd struct {
	File  string    `arg:"" help:"CSV filename inside the storage directory."`
	Start time.Time `help:"Range start (RFC 3339)." required:"" format:"2006-01-02T15:04:05Z07:00"`
	End   time.Time `help:"Range end (RFC 3339)." required:"" format:"2006-01-02T15:04:05Z07:00"`
	Out   string    `help:"Write matches to this CSV file instead of printing."`
}

func (c *filterCmd) Run(g *globals) error {
	db, err := storage.New(g.cfg.Storage.Dir)
	if err != nil {
		return err
	}
	fixes, err := db.FilterByDate(c.File, c.Start, c.End)
	if err != nil {
		return err
	}

	if c.Out != "" {
		path, err := db.Save(fixes, c.Out, false)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d fixes to %s\n", len(fixes), path)
		return nil
	}
	for _, fix := range fixes {
		fmt.Printf("%s  %.6f %.6f  alt=%.1f\n",
			fix.Timestamp.Format(time.RFC3339), fix.Latitude, fix.Longitude, fix.Altitude)
	}
	fmt.Printf("%d fixes\n", len(fixes))
	return nil
}

type cleanupCmd struct {
	File   string        `arg:"" help:"CSV filename inside the storage directory."`
	MaxAge time.Duration `help:"Delete fixes older than this." default:"720h"`
}

func (c *cleanupCmd) Run(g *globals) error {
	db, err := storage.New(g.cfg.Storage.Dir)
	if err != nil {
		return err
	}
	removed, err := db.DeleteOlderThan(c.File, c.MaxAge)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d fixes older than %s\n", removed, c.MaxAge)
	return nil
}

type listCmd struct{}

func (c *listCmd) Run(g *globals) error {
	db, err := storage.New(g.cfg.Storage.Dir)
	if err != nil {
		return err
	}
	files, err := db.ListFiles()
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Println(f)
	}
	return nil
}

type sendCmd struct {
	Dest      string        `help:"Destination host:port; defaults to the configured one."`
	File      string        `help:"Read sentences from this file instead of generating one."`
	Lat       float64       `help:"Latitude in decimal degrees for a generated RMC sentence." default:"48.1234"`
	Lon       float64       `help:"Longitude in decimal degrees for a generated RMC sentence." default:"11.5678"`
	Speed     float64       `help:"Speed in knots for a generated RMC sentence." default:"0"`
	Course    float64       `help:"Course in degrees for a generated RMC sentence." default:"0"`
	Repeat    int           `help:"Number of times to send." default:"1"`
	Interval  time.Duration `help:"Delay between sends." default:"1s"`
	Resilient bool          `help:"Send through the retrying circuit-breaker path." default:"true"`
}

func (c *sendCmd) Run(g *globals) error {
	dest := c.Dest
	if dest == "" {
		dest = g.cfg.SendDest()
	}

	var messages []string
	if c.File != "" {
		lines, err := readLines(c.File)
		if err != nil {
			return err
		}
		messages = lines
	} else {
		messages = []string{nmea.GenerateRMC(c.Lat, c.Lon, time.Now().UTC(), c.Speed, c.Course)}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if c.Resilient {
		sender, err := udp.NewResilientSender(dest,
			g.cfg.Resilience.Retry, g.cfg.Resilience.Breaker)
		if err != nil {
			return err
		}
		defer sender.Close()

		for i := 0; i < c.Repeat; i++ {
			for _, msg := range messages {
				if err := sender.Send(ctx, msg); err != nil {
					return err
				}
				fmt.Printf("sent: %s\n", msg)
			}
			if i < c.Repeat-1 {
				if err := sleepCtx(ctx, c.Interval); err != nil {
					return err
				}
			}
		}
		stats := sender.Stats()
		fmt.Printf("attempts=%d retries=%d circuit=%s\n",
			stats.TotalAttempts, stats.RetriesTriggered, sender.CircuitState())
		return nil
	}

	sender, err := udp.NewSender(dest)
	if err != nil {
		return err
	}
	defer sender.Close()

	for i := 0; i < c.Repeat; i++ {
		sent, err := sender.SendBurst(ctx, messages, 0)
		if err != nil {
			return err
		}
		fmt.Printf("sent %d sentences to %s\n", sent, dest)
		if i < c.Repeat-1 {
			if err := sleepCtx(ctx, c.Interval); err != nil {
				return err
			}
		}
	}
	return nil
}

type validateCmd struct {
	File      string   `help:"Read sentences from this file."`
	Sentences []string `arg:"" optional:"" help:"Sentences to check."`
}

func (c *validateCmd) Run(g *globals) error {
	lines := c.Sentences
	if c.File != "" {
		fromFile, err := readLines(c.File)
		if err != nil {
			return err
		}
		lines = append(lines, fromFile...)
	}
	if len(lines) == 0 {
		return fmt.Errorf("nothing to validate; pass sentences or --file")
	}

	var bad int
	for _, line := range lines {
		if _, err := nmea.SafeParse(line, true); err != nil {
			bad++
			fmt.Printf("FAIL %s\n     %v\n", line, err)
			continue
		}
		fmt.Printf("OK   %s\n", line)
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d sentences invalid", bad, len(lines))
	}
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
