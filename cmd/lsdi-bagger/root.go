package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ndlib/baggins/bagger"
	"github.com/ndlib/baggins/collections"
	"github.com/ndlib/baggins/config"
	"github.com/ndlib/baggins/digwf"
	"github.com/ndlib/baggins/fedora"
	"github.com/ndlib/baggins/lsdi"
	"github.com/ndlib/baggins/store"
)

// errExit stops the program with a failing status. The reason has already
// been printed.
var errExit = errors.New("exit")

var (
	flagConfigFile     string
	flagOutput         string
	flagDigwfURL       string
	flagFedoraURL      string
	flagIDFile         string
	flagGenerateConfig string
	flagWorkers        int
	flagStopOnError    bool
	flagArchive        string
	flagLogLevel       string
	flagLogFile        string
)

// defaultConfigFile is read when no config file is given, if it exists.
const defaultConfigFile = ".lsdi-bagger.toml"

var rootCmd = &cobra.Command{
	Use:   "lsdi-bagger [flags] ID...",
	Short: "Generate BagIt bags from LSDI digitized book content",
	Long: `Generate BagIt bags from LSDI digitized book content.

Each ID is a Digitization Workflow item id. The item's page images, OCR
files, and PDF are gathered along with its MARC record, and a bag is made
for it in the output directory.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runBagger,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&flagConfigFile, "config", "c", "", "config file (default is $HOME/"+defaultConfigFile+")")
	flags.StringVarP(&flagOutput, "output", "o", "", "directory to make bags in")
	flags.StringVar(&flagDigwfURL, "digwf-url", "", "Digitization Workflow API URL")
	flags.StringVar(&flagFedoraURL, "fedora-url", "", "repository URL, for relationship lookups")
	flags.StringVarP(&flagIDFile, "file", "f", "", "file of item ids, one per line")
	flags.StringVar(&flagGenerateConfig, "generate-config", "", "write a config file to `PATH` and exit")
	flags.IntVar(&flagWorkers, "workers", 0, "number of items to bag at once")
	flags.BoolVar(&flagStopOnError, "stop-on-error", false, "stop after the first item which fails")
	flags.StringVar(&flagArchive, "archive", "", "also store zipped bags at `LOCATION` (a directory or s3:/bucket/prefix)")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level (debug|info|warn|error)")
	flags.StringVar(&flagLogFile, "log-file", "", "log output file (default is the console)")

	rootCmd.AddCommand(validateCmd)
}

// Execute runs the command line and exits with a failing status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if err != errExit {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func runBagger(cmd *cobra.Command, args []string) error {
	if flagGenerateConfig != "" {
		return generateConfig(flagGenerateConfig, flagOutput)
	}

	ids := args
	if flagIDFile != "" {
		f, err := os.Open(flagIDFile)
		if err != nil {
			return err
		}
		fileids, err := lsdi.LoadItemIDs(f)
		f.Close()
		if errors.Is(err, lsdi.ErrNonNumericID) {
			fmt.Println("All item ids should be numeric values. Check your file.")
			return errExit
		} else if err != nil {
			return err
		}
		ids = append(ids, fileids...)
	}
	if len(ids) == 0 {
		fmt.Println("Please specify one or more item ids for items to process")
		_ = cmd.Help()
		return errExit
	}

	conf, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closer, err := createLogger(conf.Log)
	if err != nil {
		return err
	}
	defer closer.Close()
	if conf.Sentry.DSN != "" {
		if err := raven.SetDSN(conf.Sentry.DSN); err != nil {
			logger.Warn().Err(err).Msg("setting sentry DSN")
		}
	}

	p, err := newProcessor(conf, logger)
	if err != nil {
		logger.Error().Stack().Err(err).Msg("setting up")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	results := p.ProcessItems(ctx, ids)
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logger.Info().Int("items", len(results)).Int("failed", failed).Msg("batch finished")
	if failed > 0 {
		return errExit
	}
	return nil
}

func generateConfig(path, output string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = config.Generate(f, output)
	err2 := f.Close()
	if err == nil {
		err = err2
	}
	if err != nil {
		return err
	}
	fmt.Printf("Config file created at %s\n", path)
	return nil
}

// loadConfig reads the config file, applies the command line flags over it,
// and validates the result. Problems are printed.
func loadConfig() (*config.Config, error) {
	path := flagConfigFile
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			p := filepath.Join(home, defaultConfigFile)
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	conf := config.Default()
	if path != "" {
		var err error
		conf, err = config.Load(path)
		if err != nil {
			fmt.Println(err)
			fmt.Println("Please generate or specify a config file.")
			return nil, errExit
		}
	}

	if flagOutput != "" {
		conf.Filepaths.Output = flagOutput
	}
	if flagDigwfURL != "" {
		conf.DigWF.URL = flagDigwfURL
	}
	if flagFedoraURL != "" {
		conf.Fedora.URL = flagFedoraURL
	}
	if flagWorkers > 0 {
		conf.Bagging.Workers = flagWorkers
	}
	if flagStopOnError {
		conf.Bagging.StopOnError = true
	}
	if flagArchive != "" {
		conf.Archive.Location = flagArchive
	}
	if flagLogLevel != "" {
		conf.Log.Level = flagLogLevel
	}
	if flagLogFile != "" {
		conf.Log.File = flagLogFile
	}

	err := conf.Validate()
	switch err {
	case nil:
		return conf, nil
	case config.ErrNoDigwfURL:
		fmt.Println("Error:", err)
	default:
		fmt.Println(err)
	}
	return nil, errExit
}

// newProcessor wires up everything needed to process items.
func newProcessor(conf *config.Config, logger zerolog.Logger) (*lsdi.Processor, error) {
	sources, err := collections.Default()
	if conf.Filepaths.Collections != "" {
		var f *os.File
		f, err = os.Open(conf.Filepaths.Collections)
		if err != nil {
			return nil, err
		}
		sources, err = collections.Load(f)
		f.Close()
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading collection sources")
	}

	policy, err := conf.Bagging.Policy()
	if err != nil {
		return nil, err
	}
	payloadMode, metadataMode, err := conf.Bagging.Modes()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(conf.Filepaths.Output, 0775); err != nil {
		return nil, err
	}

	opts := lsdi.Options{
		Sources:   sources,
		Namespace: conf.Fedora.Namespace,
		Policy:    policy,
		Logger:    logger,
	}
	if conf.Fedora.URL != "" {
		opts.Repository = fedora.NewRepository(fedora.New(conf.Fedora.URL))
	}

	bg := bagger.New()
	bg.TitleLength = conf.Bagging.TitleLength
	bg.Algorithms = conf.Bagging.Checksums
	bg.PayloadMode = payloadMode
	bg.MetadataMode = metadataMode
	bg.Cleanup = conf.Bagging.Cleanup
	bg.Logger = logger

	p := &lsdi.Processor{
		DigWF:       digwf.New(conf.DigWF.URL),
		Options:     opts,
		Bagger:      bg,
		Output:      conf.Filepaths.Output,
		Workers:     conf.Bagging.Workers,
		StopOnError: conf.Bagging.StopOnError,
		Out:         os.Stdout,
		Logger:      logger,
	}
	if conf.Archive.Location != "" {
		p.Archive, err = store.ParseLocation(conf.Archive.Location)
		if err != nil {
			return nil, errors.Wrap(err, "archive location")
		}
		if s3, ok := p.Archive.(*store.S3); ok {
			s3.Logger = logger
		}
	}
	return p, nil
}
