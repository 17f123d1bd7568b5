package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/odvcencio/genhl/config"
	"github.com/odvcencio/genhl/web"
)

func main() {
	configPath := flag.String("config", "", "config file (default: genhl.yaml in the working directory)")
	lang := flag.String("lang", "", "language name, overriding detection from the file name")
	style := flag.String("style", "", "chroma style name")
	format := flag.String("format", "auto", "output format: auto, states, or a chroma formatter (html, terminal256, terminal16m, noop, ...)")
	webAddr := flag.String("web", "", "serve the websocket highlighter on this address (e.g. :8080)")
	defs := flag.String("defs", "", "directory with extra definition files")
	jobs := flag.Int("j", 4, "files highlighted concurrently")
	list := flag.Bool("list", false, "list known languages and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "genhl: %v\n", err)
		os.Exit(1)
	}
	if *style != "" {
		cfg.Style = *style
	}
	if *defs != "" {
		cfg.Definitions = append(cfg.Definitions, *defs)
	}

	if err := run(ctx, cfg, options{
		lang:    *lang,
		format:  *format,
		webAddr: *webAddr,
		jobs:    *jobs,
		list:    *list,
		files:   flag.Args(),
	}, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "genhl: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	lang    string
	format  string
	webAddr string
	jobs    int
	list    bool
	files   []string
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load(".")
}

func run(ctx context.Context, cfg config.Config, opts options, stdin io.Reader, stdout *os.File) error {
	log, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}
	reg, err := cfg.Registry(log)
	if err != nil {
		return err
	}
	th, err := cfg.Theme()
	if err != nil {
		return err
	}
	hlOpts, err := cfg.HighlightOptions(log)
	if err != nil {
		return err
	}

	if opts.list {
		for _, e := range reg.AllLanguages() {
			fmt.Fprintf(stdout, "%-20s %s\n", e.Name, strings.Join(e.Extensions, " "))
		}
		return nil
	}

	if opts.webAddr != "" {
		root := "."
		if len(opts.files) > 0 {
			root = opts.files[0]
		}
		root, err = filepath.Abs(root)
		if err != nil {
			return err
		}
		srv := web.NewServer(reg, th, root,
			web.WithLogger(log),
			web.WithHighlightOptions(hlOpts...),
			web.WithRateLimit(cfg.Web.RateLimit, cfg.Web.Burst),
			web.WithMaxDocuments(cfg.Web.MaxDocuments),
			web.WithReadLimit(cfg.Web.ReadLimit),
			web.WithWriteTimeout(cfg.Web.WriteTimeout),
		)
		return srv.Run(ctx, opts.webAddr)
	}

	format := opts.format
	if format == "auto" {
		format = autoFormat(stdout)
	}
	r := &renderer{
		reg:    reg,
		theme:  th,
		hlOpts: hlOpts,
		format: format,
		lang:   opts.lang,
		log:    log,
	}
	if len(opts.files) == 0 {
		text, err := io.ReadAll(stdin)
		if err != nil {
			return err
		}
		return r.render(stdout, "stdin", string(text))
	}
	return r.renderFiles(ctx, stdout, opts.files, opts.jobs)
}

// autoFormat picks true colour output for terminals and plain text
// otherwise.
func autoFormat(f *os.File) string {
	if term.IsTerminal(int(f.Fd())) {
		return "terminal16m"
	}
	return "noop"
}
