package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/connctd/mdshow"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var (
	httpAddr  string
	mdPath    string
	uploadDir string
)

const (
	documentMaxAge = 24 * time.Hour
	sweepInterval  = time.Hour
)

var serveCommand = cli.Command{
	Name:        "serve",
	Aliases:     []string{"s"},
	Description: "Serve uploaded and watched markdown presentations with live sync",
	Usage:       "serve [--addr :8080] [--md-path slides.md]",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:        "addr",
			Usage:       "Specify the address to listen on",
			Value:       ":8080",
			Destination: &httpAddr,
		},
		cli.StringFlag{
			Name:        "md-path, m",
			Usage:       "Path to a markdown file to watch for live updates",
			Destination: &mdPath,
		},
		cli.StringFlag{
			Name:        "uploads",
			Usage:       "Directory for uploaded presentations",
			Value:       "uploads",
			Destination: &uploadDir,
		},
	},
	Action: func(ctx *cli.Context) error {
		logger := logrus.New()
		if lvl, err := logrus.ParseLevel(logLevel); err == nil {
			logger.SetLevel(lvl)
		}

		if err := os.MkdirAll(uploadDir, 0755); err != nil {
			return err
		}

		store := mdshow.NewDocumentStore(logger)
		hub := mdshow.NewHub(store, logger)

		server, err := mdshow.NewPresentationServer(store, hub, httpAddr, uploadDir, logger)
		if err != nil {
			return err
		}

		cctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if mdPath != "" {
			id, err := loadWatchedFile(cctx, store, hub, logger)
			if err != nil {
				return err
			}
			fmt.Printf("\n  Watching: %s\n", mdPath)
			fmt.Printf("  Presentation URL: http://localhost%s/present/%s\n", httpAddr, id)
			fmt.Printf("  Editor URL: http://localhost%s/edit/%s\n\n", httpAddr, id)
		}

		go func() {
			ticker := time.NewTicker(sweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-cctx.Done():
					return
				case <-ticker.C:
					store.SweepExpired(documentMaxAge)
				}
			}
		}()

		server.Run()
		logger.WithField("addr", httpAddr).Info("serving presentations")

		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c

		return server.Close()
	},
}

func loadWatchedFile(ctx context.Context, store *mdshow.DocumentStore, hub *mdshow.Hub, logger *logrus.Logger) (string, error) {
	abs, err := filepath.Abs(mdPath)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(abs))
	if ext != ".md" && ext != ".markdown" {
		return "", fmt.Errorf("file must be a markdown file (.md or .markdown): %s", abs)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}

	id := mdshow.WatchedDocumentID(abs)
	store.Create(id, filepath.Base(abs), string(content), abs, true)

	watcher, err := mdshow.NewFileWatcher(abs, id, store, hub, logger)
	if err != nil {
		return "", err
	}
	go watcher.Run(ctx)

	return id, nil
}
