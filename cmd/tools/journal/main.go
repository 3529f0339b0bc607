package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"hftexec/internal/journal"
)

var errLimit = errors.New("limit reached")

func main() {
	dir := flag.String("dir", "data/journal", "Journal directory")
	prefix := flag.String("prefix", "", "Segment file prefix (default: journal)")
	topics := flag.String("topics", "", "Comma separated topic patterns, e.g. events.order.*")
	noChecksum := flag.Bool("no-checksum", false, "Skip checksum validation")
	payload := flag.Bool("payload", false, "Print the JSON payload of each record")
	limit := flag.Int("limit", 0, "Stop after this many records (0=all)")
	flag.Parse()

	pb := journal.Playback{
		Dir:          *dir,
		FilePrefix:   *prefix,
		SkipChecksum: *noChecksum,
	}
	if *topics != "" {
		pb.Topics = strings.Split(*topics, ",")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var index int
	err := pb.Run(ctx, func(r journal.Record) error {
		index++
		ts := time.Unix(0, r.TsPub).UTC().Format(time.RFC3339Nano)
		fmt.Printf("%06d seq=%d ts=%s topic=%s len=%d\n", index, r.Seq, ts, r.Topic, len(r.Payload))
		if *payload {
			var out bytes.Buffer
			if err := json.Indent(&out, r.Payload, "  ", "  "); err != nil {
				fmt.Printf("  %s\n", r.Payload)
			} else {
				fmt.Printf("  %s\n", out.String())
			}
		}
		if *limit > 0 && index >= *limit {
			return errLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		log.Fatalf("journal playback failed: %v", err)
	}
}
