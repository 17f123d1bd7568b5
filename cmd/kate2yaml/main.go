// Command kate2yaml converts Kate XML syntax definitions into the YAML
// form the registry also reads, optionally reporting definitions that
// would load broken.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

func main() {
	input := flag.String("input", "", "definition file (.xml or .xml.xz)")
	output := flag.String("output", "", "output YAML file, or output directory with -dir (default: stdout)")
	dir := flag.String("dir", "", "convert every XML definition below this directory")
	check := flag.Bool("check", false, "build each definition and report its problems")
	flag.Parse()

	if (*input == "") == (*dir == "") || (*dir != "" && *output == "") {
		fmt.Fprintln(os.Stderr, "usage: kate2yaml -input c.xml [-output c.yaml] [-check]")
		fmt.Fprintln(os.Stderr, "       kate2yaml -dir syntax/ -output yaml/ [-check]")
		os.Exit(1)
	}

	if *dir != "" {
		results, err := ConvertDir(*dir, *output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "convert %s: %v\n", *dir, err)
			os.Exit(1)
		}
		failed := 0
		for _, r := range results {
			switch {
			case r.Err != nil:
				failed++
				fmt.Fprintf(os.Stderr, "%s: %v\n", r.Rel, r.Err)
			case *check && len(r.Problems) > 0:
				reportProblems(os.Stderr, r.Rel, r.Problems)
			}
		}
		fmt.Printf("Converted %d of %d definitions into %s\n", len(results)-failed, len(results), *output)
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	w := io.Writer(os.Stdout)
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", *output, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	doc, err := ConvertFile(w, *input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *check {
		reportProblems(os.Stderr, *input, Check(doc))
	}
}

func reportProblems(w io.Writer, name string, problems []error) {
	for _, p := range problems {
		fmt.Fprintf(w, "%s: %v\n", name, p)
	}
}
