// grader is the command-line front end for grading answers, probing
// construct detection, and running snippets in the sandbox.
package main

import (
	"fmt"
	"io"
	"os"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "grade":
		err = cmdGrade(os.Args[2:])
	case "detect":
		err = cmdDetect(os.Args[2:])
	case "execute":
		err = cmdExecute(os.Args[2:])
	case "exercises":
		err = cmdExercises(os.Args[2:])
	case "mcp":
		err = cmdMCP()
	case "doctor":
		err = cmdDoctor()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("grader %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Grader - answer grading for programming exercises

Usage:
  grader <command> [arguments]

Grading Commands:
  grade <exercise-id> [answer]   Grade an answer (reads stdin when omitted)
  detect [code]                  List constructs a snippet uses
  execute [code]                 Run a snippet in the sandbox

Content Commands:
  exercises                      List loaded exercise IDs

Integration Commands:
  mcp                            Start MCP server on stdio

Other:
  doctor                         Check interpreters and Docker
  help                           Show this help message
  version                        Show version information

Examples:
  grader grade py-slice-001 "first_three = items[:3]"
  echo "total = sum(xs)" | grader grade py-sum-002
  grader detect "[p[0] for p in pairs]"
  grader execute "print(2 ** 10)"`)
}

// readArgOrStdin returns args joined, or all of stdin when no args given.
func readArgOrStdin(args []string) (string, error) {
	if len(args) > 0 {
		out := args[0]
		for _, a := range args[1:] {
			out += " " + a
		}
		return out, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
