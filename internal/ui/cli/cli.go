package cli

import (
	"easierless/internal/core/config"
	"flag"
)

const versionString = "0.4.0"

type cliOptions struct {
	configPath string
	ui         bool
	init       bool
	importDoc  string
	hover      string
	definition string
	complete   bool
	query      string
	limit      int
	stress     int
	report     string
	history    bool
	watch      bool
	metrics    string
	verbose    bool
	version    bool
	args       []string
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("easierless", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", config.DefaultFileName, "Path to config file")
	fs.BoolVar(&opts.ui, "ui", false, "Open the terminal symbol explorer")
	fs.BoolVar(&opts.init, "init", false, "Pick root stylesheets interactively and save them to the config")
	fs.StringVar(&opts.importDoc, "import", "", "Insert the import for a symbol into this document (symbol is the first argument)")
	fs.StringVar(&opts.hover, "hover", "", "Print the hover text for a symbol (e.g. @primary or .btn)")
	fs.StringVar(&opts.definition, "definition", "", "Print the files and lines mentioning a symbol")
	fs.BoolVar(&opts.complete, "complete", false, "List completion items and exit; with <document> <offset> arguments, only those fitting the cursor")
	fs.StringVar(&opts.query, "query", "", "Run a symbol query, e.g. \"SELECT variables WHERE kind = 'color'\"")
	fs.IntVar(&opts.limit, "limit", 0, "Maximum rows printed by --query (0 = all)")
	fs.IntVar(&opts.stress, "stress", 0, "Run N reload cycles and evaluate diagnostics thresholds")
	fs.StringVar(&opts.report, "report", "", "Write the stress result to this file (.md, .tsv or .json)")
	fs.BoolVar(&opts.history, "history", false, "Print the stored runtime snapshots as TSV and exit")
	fs.BoolVar(&opts.watch, "watch", false, "Keep running and reload when loaded files change")
	fs.StringVar(&opts.metrics, "metrics", "", "Serve Prometheus metrics on this address (overrides config)")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}
