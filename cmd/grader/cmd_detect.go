package main

import (
	"fmt"

	"github.com/practalearn/grader/internal/construct"
)

func cmdDetect(args []string) error {
	code, err := readArgOrStdin(args)
	if err != nil {
		return err
	}

	kinds := construct.NewDetector().DetectAll(code)
	if len(kinds) == 0 {
		fmt.Println("no constructs detected")
		return nil
	}
	for _, k := range kinds {
		fmt.Println(string(k))
	}
	return nil
}
