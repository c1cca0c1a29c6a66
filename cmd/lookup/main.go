// Command lookup resolves one or more DIDs through the Bluesky API and
// prints how the tracker would classify each profile. Useful for checking
// the classifier vocabulary against real accounts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/oshiwatch/oshiwatch/internal/bluesky"
	"github.com/oshiwatch/oshiwatch/internal/domain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		username string
		password string
		pds      string
	)

	flag.StringVar(&username, "username", envOrDefault("BSKY_USERNAME", ""), "Bluesky handle to log in as")
	flag.StringVar(&password, "password", envOrDefault("BSKY_PASSWORD", ""), "Bluesky app password")
	flag.StringVar(&pds, "pds", envOrDefault("BLUESKY_PDS", "https://bsky.social"), "PDS service URL")
	flag.Parse()

	if username == "" || password == "" {
		return fmt.Errorf("--username and --password are required (or set BSKY_USERNAME and BSKY_PASSWORD)")
	}

	dids := flag.Args()
	if len(dids) == 0 {
		return fmt.Errorf("usage: lookup [flags] DID [DID...]")
	}

	ctx := context.Background()
	client := bluesky.NewClient(pds)

	if err := client.Login(ctx, username, password); err != nil {
		return err
	}

	for start := 0; start < len(dids); start += domain.MaxProfileBatch {
		batch := dids[start:min(start+domain.MaxProfileBatch, len(dids))]
		profiles, err := client.GetProfiles(ctx, batch)
		if err != nil {
			return err
		}

		for _, p := range profiles {
			vtuber := domain.IsVtuberProfile(p.Handle, p.DisplayName, p.Description)
			name := ""
			if p.DisplayName != nil {
				name = *p.DisplayName
			}
			fmt.Printf("%s\t%s\t%q\tvtuber=%v\n", p.DID, p.Handle, name, vtuber)
		}
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
