// Report Viewer - live script adherence reports
// Consumes the report topic from Kafka and pushes each report to browsers over WebSocket
package main

import (
	"context"
	"embed"
	"encoding/json"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

//go:embed static/*
var staticFiles embed.FS

// TopicResult is one checklist verdict inside a report.
type TopicResult struct {
	Topic        string `json:"topic"`
	Title        string `json:"title"`
	FullyCovered bool   `json:"fully_covered"`
	Feedback     string `json:"feedback"`
}

// ReportEvent represents an adherence report message from Kafka
type ReportEvent struct {
	EventType         string        `json:"eventType"`
	ReportID          string        `json:"reportId"`
	InteractionID     string        `json:"interactionId"`
	TenantID          string        `json:"tenantId,omitempty"`
	CleanedTranscript string        `json:"cleanedTranscript"`
	Results           []TopicResult `json:"results"`
	FullyCompliant    bool          `json:"fullyCompliant"`
	Timestamp         int64         `json:"timestamp"`
}

// Covered counts the checklists that were fully covered.
func (e ReportEvent) Covered() int {
	n := 0
	for _, r := range e.Results {
		if r.FullyCovered {
			n++
		}
	}
	return n
}

// Hub manages WebSocket connections and keeps the latest reports for new clients
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan ReportEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	recent     []ReportEvent
	maxRecent  int
	mu         sync.RWMutex
}

func newHub(maxRecent int) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan ReportEvent, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		maxRecent:  maxRecent,
	}
}

// remember appends a report to the replay buffer, evicting the oldest.
func (h *Hub) remember(event ReportEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recent = append(h.recent, event)
	if len(h.recent) > h.maxRecent {
		h.recent = h.recent[len(h.recent)-h.maxRecent:]
	}
}

// Recent returns a copy of the replay buffer, oldest first.
func (h *Hub) Recent() []ReportEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ReportEvent, len(h.recent))
	copy(out, h.recent)
	return out
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			if err := replay(conn, h.Recent()); err != nil {
				log.Warn().Err(err).Msg("Replay failed")
				conn.Close()
				continue
			}
			h.mu.Lock()
			h.clients[conn] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("clients", total).Msg("Client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("clients", total).Msg("Client disconnected")

		case event := <-h.broadcast:
			h.remember(event)
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteJSON(event); err != nil {
					log.Warn().Err(err).Msg("Write error")
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

func replay(conn *websocket.Conn, events []ReportEvent) error {
	for _, event := range events {
		if err := conn.WriteJSON(event); err != nil {
			return err
		}
	}
	return nil
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local dev only
	},
}

func wsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("WebSocket upgrade error")
			return
		}
		hub.register <- conn

		// Reads only detect disconnects
		go func() {
			defer func() {
				hub.unregister <- conn
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

func recentHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(hub.Recent())
	}
}

// decodeReport parses a report message, skipping other event types on a shared topic.
func decodeReport(value []byte) (ReportEvent, bool, error) {
	var event ReportEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return ReportEvent{}, false, err
	}
	if event.EventType != "" && event.EventType != "interaction.adherence.report" {
		return ReportEvent{}, false, nil
	}
	return event, true, nil
}

func consumeKafka(ctx context.Context, hub *Hub, brokers, topic string, partition int, lookback time.Duration) {
	// Partition reader without consumer group works better through port-forward
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   strings.Split(brokers, ","),
		Topic:     topic,
		Partition: partition,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-lookback)); err != nil {
		log.Warn().Err(err).Msg("Failed to seek, reading from the committed offset")
	}

	log.Info().
		Str("topic", topic).
		Int("partition", partition).
		Dur("lookback", lookback).
		Msg("Consuming reports")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("topic", topic).Msg("Kafka read error")
			time.Sleep(time.Second)
			continue
		}

		event, ok, err := decodeReport(msg.Value)
		if err != nil {
			log.Warn().Err(err).Int64("offset", msg.Offset).Msg("JSON unmarshal error")
			continue
		}
		if !ok {
			continue
		}

		log.Info().
			Str("interactionId", event.InteractionID).
			Bool("fullyCompliant", event.FullyCompliant).
			Int("covered", event.Covered()).
			Int("checklists", len(event.Results)).
			Msg("Received report")

		select {
		case hub.broadcast <- event:
		case <-ctx.Done():
			return
		}
	}
}

func main() {
	port := flag.String("port", "8082", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "interaction.adherence.report", "Adherence report topic")
	partition := flag.Int("partition", 0, "Topic partition to read")
	lookback := flag.Duration("lookback", time.Hour, "Replay reports newer than this")
	keep := flag.Int("keep", 50, "Reports replayed to newly connected browsers")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hub := newHub(*keep)
	go hub.run(ctx)
	go consumeKafka(ctx, hub, *brokers, *topic, *partition, *lookback)

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatal().Err(err).Msg("Static assets missing")
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/ws", wsHandler(hub))
	mux.HandleFunc("/reports", recentHandler(hub))

	server := &http.Server{Addr: ":" + *port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("url", "http://localhost:"+*port).
		Str("brokers", *brokers).
		Str("topic", *topic).
		Msg("Report Viewer starting")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server error")
	}
}
