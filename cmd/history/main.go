package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"pricerange/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dataPath = flag.String("data", "./data", "Data directory path")
		since    = flag.Duration("since", 24*time.Hour, "How far back to look")
		verbose  = flag.Bool("v", false, "Print every record")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	fmt.Printf("Inspecting prediction history in: %s\n", *dataPath)

	store, err := storage.OpenReadOnly(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	total, err := store.Count()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to count predictions")
	}
	fmt.Printf("Stored predictions: %d\n", total)

	end := time.Now()
	records, err := store.GetPredictionsInRange(end.Add(-*since), end)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to fetch predictions")
	}
	fmt.Printf("Predictions in the last %v: %d\n", *since, len(records))

	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Label]++
		if *verbose {
			fmt.Printf("%s  %-36s  %-10s  model=%s\n",
				r.Timestamp.Format(time.RFC3339), r.RequestID, r.Label, r.ModelVersion)
		}
	}

	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	fmt.Println("\nLabel distribution:")
	for _, l := range labels {
		fmt.Printf("  %-10s %d\n", l, counts[l])
	}
}
