package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	shuttle "github.com/heroku/syslog-shuttle"
	"github.com/pebbe/util"
)

var (
	detectKinesis        = regexp.MustCompile(`\Akinesis\.([[:alpha:]]{2}-[[:alpha:]]{2,}-[[:digit:]])\.amazonaws\.com\z`)
	detectCloudWatchLogs = regexp.MustCompile(`\Alogs\.([[:alpha:]]{2}-[[:alpha:]]{2,}-[[:digit:]])\.amazonaws\.com\z`)
)

// Default loggers to stdout and stderr
var (
	logger    = log.New(os.Stdout, "syslog-shuttle: ", log.LstdFlags)
	errLogger = log.New(os.Stderr, "syslog-shuttle: ", log.LstdFlags)

	logToSyslog   bool
	skipConnCheck bool
)

var version = "" // syslog-shuttle version, set with linker

// useStdin determines if we're using the terminal's stdin or not
func useStdin() bool {
	return !util.IsTerminal(os.Stdin)
}

func mapInputFormat(i string) (int, error) {
	switch i {
	case "raw":
		return shuttle.InputFormatRaw, nil
	case "json":
		return shuttle.InputFormatJSON, nil
	}
	return 0, fmt.Errorf("Unknown input format: %s", i)
}

// determineEndpoint from the env var and the command line option, favoring
// the command line option.
func determineEndpoint(envURL, cmdLineURL string) string {
	if len(cmdLineURL) > 0 {
		if len(envURL) > 0 {
			log.Println("Warning: Use of both $SYSLOG_URL and -endpoint, using -endpoint option")
		}
		return cmdLineURL
	}
	return envURL
}

// splitFields splits a comma separated flag value into a field name list.
func splitFields(s string) []string {
	if s == "" {
		return nil
	}
	fields := strings.Split(s, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// parseFlags overrides the properties of the given config using the provided
// command-line flags. Any option not overridden by a flag will be untouched.
func parseFlags(c shuttle.Config) (shuttle.Config, error) {
	var printVersion bool
	var noTLS, skipVerify bool
	var caFile, certFile, keyFile string
	var codec, onlyFields, exceptFields string
	var inputFormat string

	flag.BoolVar(&c.Verbose, "verbose", c.Verbose, "Enable verbose debug info.")
	flag.BoolVar(&logToSyslog, "log-to-syslog", logToSyslog, "Log to syslog instead of stderr.")
	flag.BoolVar(&printVersion, "version", printVersion, "Print syslog-shuttle version & exit.")
	flag.BoolVar(&skipConnCheck, "skip-conn-check", skipConnCheck, "Skip the startup connection check of the endpoint.")

	flag.BoolVar(&noTLS, "no-tls", noTLS, "Deliver over plain TCP. TLS is on by default.")
	flag.BoolVar(&skipVerify, "skip-verify", skipVerify, "Skip the verification of the endpoint's TLS certificate.")
	flag.StringVar(&caFile, "tls-ca", caFile, "PEM file with the CA certificates to trust.")
	flag.StringVar(&certFile, "tls-cert", certFile, "PEM file with the client certificate.")
	flag.StringVar(&keyFile, "tls-key", keyFile, "PEM file with the client key.")

	flag.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "The receiver of the log data, host:port.")
	flag.StringVar(&codec, "codec", "json", "Body codec: json or text.")
	flag.StringVar(&onlyFields, "only-fields", "", "Comma separated fields to keep, dropping the rest.")
	flag.StringVar(&exceptFields, "except-fields", "", "Comma separated fields to drop.")
	flag.StringVar(&inputFormat, "input-format", "raw", "raw (default) or json.")
	flag.StringVar(&c.StatsSource, "stats-source", c.StatsSource, "When emitting stats, add source=<stats-source> to the stats.")

	flag.DurationVar(&c.StatsInterval, "stats-interval", c.StatsInterval, "How often to emit/reset stats.")
	flag.DurationVar(&c.WaitDuration, "wait", c.WaitDuration, "Duration to wait before flushing a partial batch (AWS outlets).")
	flag.DurationVar(&c.Timeout, "timeout", c.Timeout, "Duration to wait for a write/request to the endpoint.")

	flag.IntVar(&c.MaxAttempts, "max-attempts", c.MaxAttempts, "Max number of write attempts.")
	flag.IntVar(&c.NumOutlets, "num-outlets", c.NumOutlets, "The number of outlets to run.")
	flag.IntVar(&c.BatchSize, "batch-size", c.BatchSize, "Number of records to pack into an AWS outlet request.")
	flag.IntVar(&c.FrontBuff, "front-buff", c.FrontBuff, "Number of events to buffer in syslog-shuttle's input channel.")

	flag.Parse()

	if printVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var err error
	c.InputFormat, err = mapInputFormat(inputFormat)
	if err != nil {
		return c, err
	}

	c.Encoding.Codec, err = shuttle.ParseCodec(codec)
	if err != nil {
		return c, err
	}
	c.Encoding.OnlyFields = splitFields(onlyFields)
	c.Encoding.ExceptFields = splitFields(exceptFields)

	if noTLS || skipVerify || caFile != "" || certFile != "" || keyFile != "" {
		c.TLS = &shuttle.TLSConfig{
			Enabled:    !noTLS,
			SkipVerify: skipVerify,
			CAFile:     caFile,
			CertFile:   certFile,
			KeyFile:    keyFile,
		}
	}

	return c, nil
}

// determineOutlet picks the delivery target from the endpoint host the same
// way log-shuttle picks its formatter: AWS hosts get their service outlet,
// everything else is a syslog TCP endpoint. The second return reports
// whether the endpoint is direct TCP (and so connection checkable).
func determineOutlet(c shuttle.Config) (shuttle.NewOutletFunc, bool, error) {
	parts := strings.SplitN(c.Endpoint, "/", 2)
	host := parts[0]

	if m := detectKinesis.FindStringSubmatch(host); m != nil {
		if len(parts) < 2 || parts[1] == "" {
			return nil, false, fmt.Errorf("No stream name in provided endpoint: %s", c.Endpoint)
		}
		of, err := shuttle.NewKinesisOutletFunc(m[1], parts[1])
		return of, false, err
	}

	if m := detectCloudWatchLogs.FindStringSubmatch(host); m != nil {
		var group, stream string
		if len(parts) == 2 {
			gs := strings.SplitN(parts[1], "/", 2)
			group = gs[0]
			if len(gs) == 2 {
				stream = gs[1]
			}
		}
		if group == "" || stream == "" {
			return nil, false, fmt.Errorf("No log group/stream in provided endpoint: %s", c.Endpoint)
		}
		of, err := shuttle.NewCloudWatchLogsOutletFunc(m[1], group, stream)
		return of, false, err
	}

	of, err := shuttle.NewTCPOutletFunc(c.Endpoint, c.TLS)
	return of, true, err
}

func getConfig() (shuttle.Config, bool, error) {
	c, err := parseFlags(shuttle.NewConfig())
	if err != nil {
		return c, false, err
	}

	if c.MaxAttempts < 1 {
		return c, false, fmt.Errorf("-max-attempts must be >= 1")
	}

	c.Endpoint = determineEndpoint(os.Getenv("SYSLOG_URL"), c.Endpoint)

	of, tcp, err := determineOutlet(c)
	if err != nil {
		return c, false, err
	}
	c.OutletFunc = of

	return c, tcp, nil
}

func main() {
	config, tcp, err := getConfig()
	if err != nil {
		errLogger.Fatalf("error=%q\n", err)
	}

	config.ID = version

	if !useStdin() {
		errLogger.Fatalln(`error="No stdin detected."`)
	}

	if tcp && !skipConnCheck {
		if err := shuttle.CheckEndpoint(config.Endpoint, config.TLS, config.Timeout); err != nil {
			errLogger.Fatalf(`at=conn-check error=%q`+"\n", err)
		}
	}

	s, err := shuttle.NewShuttle(config)
	if err != nil {
		errLogger.Fatalf("error=%q\n", err)
	}

	// Setup the loggers before doing anything else
	if err := setupLogging(logToSyslog, s, logger, errLogger); err != nil {
		errLogger.Fatal(err)
	}

	s.Launch()

	reporter := shuttle.NewMetricsReporter(s.MetricsRegistry, config.StatsSource, s.Logger)
	go reporter.Emit(config.StatsInterval)

	// Blocks until os.Stdin is closed
	s.ReadLogLines(os.Stdin)

	// Shutdown the shuttle.
	s.Land()
	reporter.Stop()
}
