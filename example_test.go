package postops_test

import (
	"context"
	"fmt"
	"log"

	"github.com/curately/postops"
	"github.com/curately/postops/config"
	"github.com/curately/postops/publish"
)

// Example demonstrates assembling the stack from the environment and
// publishing one image.
func Example() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	sys, err := postops.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer sys.Close()

	caption := publish.PrepareCaption("sunset over the bay", []string{"sunset", "nofilter"})

	res := sys.Publisher.Publish(context.Background(), "https://cdn.example.com/sunset.jpg", caption, "")
	if !res.Success {
		log.Printf("publish failed (retryable=%v): %s", res.Retryable, res.ErrorMessage)
		return
	}
	fmt.Println("published media", res.MediaID)
}

// Example_replay drains operations that exhausted their retries earlier.
func Example_replay() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	sys, err := postops.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer sys.Close()

	stats, err := sys.Replayer.Drain(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("replayed %d, dropped %d\n", stats.Replayed, stats.Dropped)
}
