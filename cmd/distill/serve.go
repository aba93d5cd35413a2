package main

import (
	"fmt"

	"github.com/quarrylab/distill/internal/embed"
	"github.com/quarrylab/distill/internal/mcp"
	"github.com/quarrylab/distill/internal/store"
)

func runServe(args []string) error {
	var dbPath, embedSpec string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--db", "--embed":
			if i+1 >= len(args) {
				return fmt.Errorf("%s requires a value", args[i])
			}
			if args[i] == "--db" {
				dbPath = args[i+1]
			} else {
				embedSpec = args[i+1]
			}
			i++
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	if dbPath == "" {
		return fmt.Errorf("usage: distill serve --db <path> [--embed provider/model]")
	}
	if store.IsSQLitePath(dbPath) {
		dbPath = store.SQLitePath(dbPath)
	}

	var embedder embed.Embedder
	if embedSpec != "" {
		cfg, err := embed.ParseEmbedFlag(embedSpec)
		if err != nil {
			return err
		}
		client, err := embed.NewClient(cfg)
		if err != nil {
			return err
		}
		embedder = client
	}

	vs, err := store.OpenVector(dbPath, embedder)
	if err != nil {
		return err
	}
	defer vs.Close()

	srv := mcp.NewServer(mcp.ServerConfig{Store: vs, Version: version})
	return mcp.Serve(srv)
}
