// Command modelkit generates text with the model catalog from the shell and
// serves it over HTTP.
//
//	modelkit generate --model groq-qwen "What is the capital of France?"
//	modelkit serve --config config.yml
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}
