package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vaultecki/py-positioning-stuff/internal/config"
	"github.com/vaultecki/py-positioning-stuff/internal/metrics"
	"github.com/vaultecki/py-positioning-stuff/internal/mqttpub"
	"github.com/vaultecki/py-positioning-stuff/internal/nmea"
	"github.com/vaultecki/py-positioning-stuff/internal/sched"
	"github.com/vaultecki/py-positioning-stuff/internal/storage"
	"github.com/vaultecki/py-positioning-stuff/internal/track"
	"github.com/vaultecki/py-positioning-stuff/internal/udp"
	"github.com/vaultecki/py-positioning-stuff/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./gpsnode.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store := track.NewStore(cfg.GPS.MaxStoredPositions)
	collector := metrics.NewCollector()

	store.Register(sinkFunc(func(fix track.Fix) {
		collector.Inc("fixes_stored", 1)
		if fix.Speed != nil {
			collector.Record("speed_mps", *fix.Speed)
		}
	}))

	if cfg.Storage.Dir != "" {
		db, err := storage.New(cfg.Storage.Dir)
		if err != nil {
			log.Fatalf("storage init failed: %v", err)
		}
		filename := time.Now().UTC().Format("track-20060102-150405.csv")
		store.Register(sinkFunc(func(fix track.Fix) {
			if _, err := db.Append([]track.Fix{fix}, filename); err != nil {
				log.Printf("[storage] append: %v", err)
				collector.Inc("storage_errors", 1)
			}
		}))
		log.Printf("[storage] appending fixes to %s/%s", cfg.Storage.Dir, filename)
	}

	var feed *web.Broadcaster
	if cfg.Web.Enable {
		feed = web.NewBroadcaster()
		store.Register(feed)
		go func() {
			if err := web.Serve(ctx, cfg.Web.Addr, web.Handler(store, feed, collector)); err != nil {
				log.Printf("[web] server stopped: %v", err)
				cancel()
			}
		}()
	}

	if cfg.MQTT.Enable {
		pub, err := mqttpub.New(mqttpub.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
		})
		if err != nil {
			log.Fatalf("mqtt init failed: %v", err)
		}
		defer pub.Close()
		store.Register(pub)
	}

	receiver, err := udp.NewReceiver(udp.ReceiverConfig{
		Host:         "0.0.0.0",
		Port:         cfg.Network.ReceivePort,
		BufferSize:   cfg.Network.BufferSize,
		PollInterval: cfg.Network.PollInterval,
	})
	if err != nil {
		log.Fatalf("udp receiver init failed: %v", err)
	}
	defer receiver.Close()

	receiver.Register(func(line string, addr *net.UDPAddr) {
		handleSentence(store, collector, line, addr)
	})

	log.Printf("gpsnode starting")
	log.Printf("udp listen=:%d web=%v mqtt=%v", cfg.Network.ReceivePort, cfg.Web.Enable, cfg.MQTT.Enable)

	statsTask := sched.Every(ctx, time.Minute, func() {
		stats := store.Statistics()
		rx := receiver.Stats()
		log.Printf("[stats] received=%d stored=%d distance=%.1fm packets=%d dropped=%d",
			stats.TotalReceived, stats.StoredPositions, stats.TotalDistance,
			rx.PacketsReceived, rx.PacketsDropped)
	})
	defer statsTask.Cancel()

	go func() {
		if err := receiver.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[udp] receiver stopped: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Printf("gpsnode stopping")
}

// handleSentence turns one received line into a stored fix. Sentences
// that fail validation or carry no position are counted and dropped.
func handleSentence(store *track.Store, collector *metrics.Collector, line string, addr *net.UDPAddr) {
	// One datagram can carry several newline-separated sentences.
	for _, raw := range strings.Split(line, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		collector.Inc("sentences_received", 1)

		sentence, err := nmea.SafeParse(raw, true)
		if err != nil {
			collector.Inc("sentences_rejected", 1)
			log.Printf("[nmea] drop from %s: %v", addr, err)
			continue
		}

		info, ok := nmea.ExtractPositionInfo(sentence)
		if !ok {
			// GSA/GSV/VTG carry no position; valid but not stored.
			collector.Inc("sentences_no_position", 1)
			continue
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
		store.Add(fix)
	}
}

// sinkFunc adapts a function to the track.Sink interface.
type sinkFunc func(track.Fix)

func (f sinkFunc) OnFix(fix track.Fix) { f(fix) }
