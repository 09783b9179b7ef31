package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync/atomic"

	"cloud.google.com/go/storage"
	"github.com/carbocation/dmsatlas"
	"github.com/carbocation/dmsatlas/datacard"
	"golang.org/x/sync/errgroup"
)

// writeCards writes each card to its own file, at most concurrency at a
// time. The first failure cancels the writes that have not started.
func writeCards(ctx context.Context, client *storage.Client, output string, cards []datacard.Card, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var written int64
	for _, card := range cards {
		card := card

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			path := dmsatlas.JoinPath(output, card.Key()+".json")
			err := dmsatlas.WriteToPathOrGoogleStorage(ctx, path, "application/json", client, func(w io.Writer) error {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(card)
			})
			if err != nil {
				return err
			}

			if n := atomic.AddInt64(&written, 1); n%1000 == 0 {
				log.Printf("Wrote %d of %d datacards\n", n, len(cards))
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Printf("Wrote %d datacards to %s\n", written, output)

	return nil
}
