package main

import (
	"flag"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/cinerank/internal/logging"
)

type streamingEntry struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

type metadataEntry struct {
	Genre            string           `json:"genre"`
	IMDbRating       float64          `json:"imdbRating"`
	Year             int              `json:"year"`
	RottenTomatoes   *string          `json:"rottenTomatoes,omitempty"`
	TotalSeasons     *int             `json:"totalSeasons,omitempty"`
	Description      string           `json:"description"`
	PosterURL        *string          `json:"posterUrl,omitempty"`
	RunPeriod        string           `json:"runPeriod"`
	StreamingOptions []streamingEntry `json:"streamingOptions"`
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// builtinEntries is served when no data file is given.
var builtinEntries = map[string]metadataEntry{
	"dark": {
		Genre: "Thriller", IMDbRating: 8.7, Year: 2017, RottenTomatoes: strPtr("95%"),
		Description: "A missing child sets four families on a hunt through time.",
		RunPeriod:   "2017-2020",
		StreamingOptions: []streamingEntry{
			{Platform: "Netflix", URL: "https://www.netflix.com/title/80100172"},
		},
	},
	"shutter island": {
		Genre: "Thriller/Mystery", IMDbRating: 8.2, Year: 2010, RottenTomatoes: strPtr("69%"),
		Description: "A marshal investigates a disappearance at an island asylum.",
		RunPeriod:   "2010",
		StreamingOptions: []streamingEntry{
			{Platform: "Prime Video", URL: "https://www.primevideo.com"},
		},
	},
	"one piece": {
		Genre: "Adventure", IMDbRating: 9.0, Year: 1999, TotalSeasons: intPtr(20),
		Description: "A rubber-bodied pirate sails for the greatest treasure.",
		RunPeriod:   "1999-Present",
		StreamingOptions: []streamingEntry{
			{Platform: "Crunchyroll", URL: "https://www.crunchyroll.com/series/GRMG8ZQZR/one-piece"},
		},
	},
}

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "", "path to mock data file (JSON object keyed by lower-cased name)")
		apiKey  = flag.String("api-key", "", "required X-API-Key value; empty accepts any key")
		verbose = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	logger := logging.Init(logging.Config{Level: "info", Format: "console"})
	logger = logging.Component(logger, "metadata-mock")

	entries := builtinEntries
	if *data != "" {
		file, err := os.ReadFile(*data)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *data).Msg("read mock data")
		}
		var loaded map[string]metadataEntry
		if err := json.Unmarshal(file, &loaded); err != nil {
			logger.Fatal().Err(err).Str("path", *data).Msg("parse mock data")
		}
		entries = make(map[string]metadataEntry, len(loaded))
		for name, entry := range loaded {
			entries[strings.ToLower(strings.TrimSpace(name))] = entry
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if *verbose {
		r.Use(requestLog(logger))
	}
	r.Get("/metadata", func(w http.ResponseWriter, r *http.Request) {
		if *apiKey != "" && r.Header.Get("X-API-Key") != *apiKey {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		name := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("name")))
		entry, ok := entries[name]
		if !ok {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entry); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	addr := ":" + *port
	logger.Info().Str("addr", addr).Int("entries", len(entries)).Msg("mock metadata provider listening")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func requestLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info().
				Str("method", r.Method).
				Str("query", r.URL.RawQuery).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
