package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	if os.Args[1] == "-h" || os.Args[1] == "--help" || os.Args[1] == "help" {
		printUsage()
		os.Exit(0)
	}
	if os.Args[1] == "--version" {
		fmt.Println(versionLine())
		os.Exit(0)
	}

	switch os.Args[1] {
	case "serve":
		os.Exit(serveCmd(os.Args[2:]))
	case "status":
		os.Exit(statusCmd(os.Args[2:]))
	case "version":
		fmt.Println(versionLine())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`switchboard ☎️

Bridges voice-call webhooks to an agent gateway, with run tracking and
status notifications.

Usage:
  switchboard <command> [flags]

Commands:
  serve        Run the bridge server
  status       Show recent runs from the state file
  version      Show the version number
  help         Show this message

Examples:
  switchboard serve --config switchboard.json
  switchboard status --limit 5

Run 'switchboard <command> -h' for details.`)
}
