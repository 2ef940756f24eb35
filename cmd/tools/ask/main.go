// cmd/tools/ask/main.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"venue-recommender/internal/catalog"
	"venue-recommender/internal/common/config"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/embedding"
	"venue-recommender/internal/models"
	"venue-recommender/internal/recommender"
	"venue-recommender/internal/resultcache"
	"venue-recommender/internal/retrieval"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	sessionFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "User id the turns are attributed to",
			Value:   "cli",
		},
		&cli.StringFlag{
			Name:    "session",
			Aliases: []string{"s"},
			Usage:   "Session id",
			Value:   "local",
		},
		&cli.StringFlag{
			Name:  "embedding",
			Usage: "Embedding provider for semantic matching (hashing, none)",
			Value: config.EmbeddingHashing,
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the full turn result as JSON",
		},
	}

	return &cli.App{
		Name:  "ask",
		Usage: "Run conversation turns against the bundled sample catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "error",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "query",
				Usage:     "Process a single query and print the reply",
				ArgsUsage: "<text>",
				Flags:     sessionFlags,
				Action:    queryCommand,
			},
			{
				Name:   "chat",
				Usage:  "Read queries from stdin, one per line, keeping the session between turns",
				Flags:  sessionFlags,
				Action: chatCommand,
			},
		},
	}
}

// buildEngine wires an offline engine over the static sample catalog.
func buildEngine(c *cli.Context) (*recommender.Engine, error) {
	log := logger.NewStructured(c.String("log-level"), "console")

	embedder, err := embedding.Open(config.EmbeddingConfig{
		Provider:   c.String("embedding"),
		Dimensions: 256,
	})
	if err != nil {
		return nil, err
	}

	store := catalog.NewStore()
	retriever := retrieval.New(store, embedder, nil, nil, retrieval.Config{}, log)
	refresher := catalog.NewRefresher(store, catalog.DefaultStaticSource(), nil, catalog.RefresherConfig{}, log)
	refresher.OnSwap(retriever.OnSnapshot)
	if _, err := refresher.RefreshNow(c.Context); err != nil {
		return nil, fmt.Errorf("load sample catalog: %w", err)
	}

	return recommender.New(recommender.Deps{
		Store:     store,
		Retriever: retriever,
		Cache:     resultcache.New(resultcache.NewMemoryBackend(), resultcache.Config{}, log),
		Refresher: refresher,
	}, recommender.Config{}, log), nil
}

func queryCommand(c *cli.Context) error {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return cli.Exit("a query is required", 2)
	}

	engine, err := buildEngine(c)
	if err != nil {
		return err
	}
	res := engine.ProcessTurn(c.Context, text, c.String("user"), c.String("session"))
	return printTurn(c.App.Writer, res, c.Bool("json"))
}

func chatCommand(c *cli.Context) error {
	engine, err := buildEngine(c)
	if err != nil {
		return err
	}

	in := bufio.NewScanner(c.App.Reader)
	for in.Scan() {
		text := strings.TrimSpace(in.Text())
		switch text {
		case "":
			continue
		case "/reset":
			engine.ResetSession(c.String("user"), c.String("session"))
			fmt.Fprintln(c.App.Writer, "(session reset)")
			continue
		case "/summary":
			if err := writeJSON(c.App.Writer, engine.ContextSummary(c.String("user"), c.String("session"))); err != nil {
				return err
			}
			continue
		}

		ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
		res := engine.ProcessTurn(ctx, text, c.String("user"), c.String("session"))
		cancel()
		if err := printTurn(c.App.Writer, res, c.Bool("json")); err != nil {
			return err
		}
	}
	return in.Err()
}

func printTurn(w io.Writer, res models.TurnResult, asJSON bool) error {
	if asJSON {
		return writeJSON(w, res)
	}

	fmt.Fprintf(w, "%s\n", res.Text)
	for i, r := range res.Recommendations {
		fmt.Fprintf(w, "  %d. %s [%s] %.1f★ (%s, %.2f)\n", i+1, r.Title, r.Kind, r.Rating, r.MatchReason, r.Score)
	}
	for _, h := range res.FollowUpHints {
		fmt.Fprintf(w, "  > %s\n", h)
	}
	fmt.Fprintf(w, "  intent=%s confidence=%.2f cache=%t\n", res.Intent, res.Confidence, res.CacheHit)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
