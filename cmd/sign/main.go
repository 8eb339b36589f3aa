// Command sign computes request signature headers for a body, for testing
// the gateway with curl without a real Slack workspace.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/zzstoatzz/slackbot/internal/crypto"
)

func main() {
	secret := flag.String("secret", "", "Signing secret")
	bodyFile := flag.String("body", "", "File containing request body (or use stdin)")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "Usage: sign -secret <signing-secret> [-body <file>]")
		fmt.Fprintln(os.Stderr, "  Reads body from stdin if -body not specified")
		os.Exit(1)
	}

	var body []byte
	var err error
	if *bodyFile != "" {
		body, err = os.ReadFile(*bodyFile)
	} else {
		body, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		os.Exit(1)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := crypto.Sign([]byte(*secret), timestamp, body)

	fmt.Printf("X-Slack-Request-Timestamp: %s\n", timestamp)
	fmt.Printf("X-Slack-Signature: %s\n", signature)
}
