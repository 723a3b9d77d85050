// Command contract-check validates normalized analysis documents.
//
// Usage:
//
//	contract-check [-strict] [-normalize] file.json [file.json ...]
//
// With -normalize each file is run through the normalizer first, which is how
// raw classifier fixtures are checked. A file argument of "-" reads stdin.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"go-scankey/internal/normalizer"
	"go-scankey/pkg/validation"
)

func main() {
	strict := flag.Bool("strict", false, "require confidence flags to match the thresholds")
	normalize := flag.Bool("normalize", false, "normalize raw classifier responses before checking")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: contract-check [-strict] [-normalize] file.json [file.json ...]")
		os.Exit(2)
	}

	validator := validation.NewContractValidator(validation.ContractOptions{StrictFlags: *strict})
	nz := normalizer.New()

	failed := 0
	for _, path := range flag.Args() {
		doc, err := readInput(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		if *normalize {
			doc, err = json.Marshal(nz.NormalizeJSON(doc))
			if err != nil {
				fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
				failed++
				continue
			}
		}

		report := validator.Validate(doc)
		if report.Valid() {
			fmt.Printf("OK   %s\n", path)
			continue
		}
		failed++
		fmt.Printf("FAIL %s (%d violations)\n", path, len(report.Violations))
		for _, v := range report.Violations {
			fmt.Printf("     - %s\n", v)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
