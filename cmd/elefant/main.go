// Command elefant moves schema and data between PostgreSQL databases,
// or between a database and a flat SQL file, driving the same copy
// pipeline in every mode (spec.md §1, §6.1). Flag parsing only; the
// actual work lives in introspect, orchestrator, datapipe and sqlfile.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/elefant-sync/elefant/datapipe"
	"github.com/elefant-sync/elefant/elefantconfig"
	"github.com/elefant-sync/elefant/elefanterrors"
	"github.com/elefant-sync/elefant/introspect"
	"github.com/elefant-sync/elefant/orchestrator"
	"github.com/elefant-sync/elefant/pgwire"
	"github.com/elefant-sync/elefant/sqlfile"
)

// Exit codes per spec.md §6.1.
const (
	exitOK                 = 0
	exitUsage              = 1
	exitConnectFailure     = 2
	exitIntrospectFailure  = 3
	exitDDLFailure         = 4
	exitDataPhaseFailure   = 5
	exitCancelled          = 6
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: elefant <export|import|copy> [flags]")
		return exitUsage
	}

	switch args[0] {
	case "copy":
		return runCopy(logger, args[1:])
	case "export":
		return runExport(logger, args[1:])
	case "import":
		return runImport(logger, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", args[0])
		return exitUsage
	}
}

// commonFlags binds the --source-db-*/--target-db-* family and the
// shared run options every subcommand accepts (spec.md §6.1).
type commonFlags struct {
	sourceHost, sourceUser, sourcePassword, sourceDB string
	sourcePort                                       int
	targetHost, targetUser, targetPassword, targetDB string
	targetPort                                       int
	maxParallelism                                   int
	differential                                     bool
}

func bindCommon(fs *flag.FlagSet, c *commonFlags, needTarget bool) {
	fs.StringVar(&c.sourceHost, "source-db-host", envOr("SOURCE_DB_HOST", "localhost"), "source database host")
	fs.IntVar(&c.sourcePort, "source-db-port", envOrInt("SOURCE_DB_PORT", 5432), "source database port")
	fs.StringVar(&c.sourceUser, "source-db-user", envOr("SOURCE_DB_USER", ""), "source database user")
	fs.StringVar(&c.sourcePassword, "source-db-password", envOr("SOURCE_DB_PASSWORD", ""), "source database password")
	fs.StringVar(&c.sourceDB, "source-db-name", envOr("SOURCE_DB_NAME", ""), "source database name")

	if needTarget {
		fs.StringVar(&c.targetHost, "target-db-host", envOr("TARGET_DB_HOST", "localhost"), "target database host")
		fs.IntVar(&c.targetPort, "target-db-port", envOrInt("TARGET_DB_PORT", 5432), "target database port")
		fs.StringVar(&c.targetUser, "target-db-user", envOr("TARGET_DB_USER", ""), "target database user")
		fs.StringVar(&c.targetPassword, "target-db-password", envOr("TARGET_DB_PASSWORD", ""), "target database password")
		fs.StringVar(&c.targetDB, "target-db-name", envOr("TARGET_DB_NAME", ""), "target database name")
	}

	fs.IntVar(&c.maxParallelism, "max-parallelism", envOrInt("MAX_PARALLELISM", 1), "data-phase worker count")
	fs.BoolVar(&c.differential, "differential", envOrBool("DIFFERENTIAL", false), "skip tables already marked complete from a prior run")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}

func envOrBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	default:
		return def
	}
}

func (c *commonFlags) sourceEndpoint() pgwire.Endpoint {
	return pgwire.Endpoint{Host: c.sourceHost, Port: uint16(c.sourcePort), Database: c.sourceDB}
}

func (c *commonFlags) targetEndpoint() pgwire.Endpoint {
	return pgwire.Endpoint{Host: c.targetHost, Port: uint16(c.targetPort), Database: c.targetDB}
}

func connectSource(ctx context.Context, c *commonFlags, logger zerolog.Logger) (*pgwire.Conn, error) {
	return pgwire.Connect(ctx, c.sourceEndpoint(), pgwire.Credentials{User: c.sourceUser, Password: c.sourcePassword}, pgwire.Options{Logger: logger, ConnectTimeout: 30 * time.Second})
}

func connectTarget(ctx context.Context, c *commonFlags, logger zerolog.Logger) (*pgwire.Conn, error) {
	return pgwire.Connect(ctx, c.targetEndpoint(), pgwire.Credentials{User: c.targetUser, Password: c.targetPassword}, pgwire.Options{Logger: logger, ConnectTimeout: 30 * time.Second})
}

func runOptionsFrom(c *commonFlags) elefantconfig.RunOptions {
	opts := elefantconfig.DefaultRunOptions()
	opts.MaxParallelism = c.maxParallelism
	opts.Differential = c.differential
	return opts
}

// classifyExit maps an error's elefanterrors.Kind to the spec.md §6.1
// exit code family; an error that never passed through elefanterrors
// (should not happen at a component boundary) falls back to the
// data-phase code as the most common failure mode.
func classifyExit(err error) int {
	var wrapped *elefanterrors.Error
	if !errors.As(err, &wrapped) {
		return exitDataPhaseFailure
	}
	switch wrapped.Kind {
	case elefanterrors.Network, elefanterrors.Tls, elefanterrors.AuthFailed:
		return exitConnectFailure
	case elefanterrors.IntrospectionMissing:
		return exitIntrospectFailure
	case elefanterrors.PlanError:
		return exitDDLFailure
	case elefanterrors.Cancelled:
		return exitCancelled
	default:
		return exitDataPhaseFailure
	}
}

// runCopy implements `elefant copy`: live database-to-database transfer
// (spec.md §6.1).
func runCopy(logger zerolog.Logger, args []string) int {
	fs := flag.NewFlagSet("copy", flag.ContinueOnError)
	var c commonFlags
	bindCommon(fs, &c, true)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	ctx := context.Background()

	srcConn, err := connectSource(ctx, &c, logger)
	if err != nil {
		logger.Error().Err(err).Msg("connect to source failed")
		return exitConnectFailure
	}
	defer srcConn.Close()

	forest, err := introspect.Introspect(ctx, srcConn, introspect.Options{Logger: logger})
	if err != nil {
		logger.Error().Err(err).Msg("introspection failed")
		return exitIntrospectFailure
	}

	ddlConn, err := connectTarget(ctx, &c, logger)
	if err != nil {
		logger.Error().Err(err).Msg("connect to target failed")
		return exitConnectFailure
	}
	defer ddlConn.Close()

	opts := runOptionsFrom(&c)
	o, err := orchestrator.New(opts, logger,
		func(ctx context.Context) (datapipe.Source, error) {
			conn, err := connectSource(ctx, &c, logger)
			if err != nil {
				return nil, err
			}
			return datapipe.NewPgSource(conn), nil
		},
		func(ctx context.Context) (datapipe.Sink, error) {
			conn, err := connectTarget(ctx, &c, logger)
			if err != nil {
				return nil, err
			}
			return datapipe.NewPgSink(conn), nil
		},
		datapipe.NewPgSink(ddlConn),
		ddlConn,
	)
	if err != nil {
		logger.Error().Err(err).Msg("orchestrator setup failed")
		return exitUsage
	}

	if err := o.Run(ctx, forest); err != nil {
		logger.Error().Err(err).Msg("copy failed")
		return classifyExit(err)
	}
	return exitOK
}

// runExport implements `elefant export sql-file` (spec.md §6.1).
func runExport(logger zerolog.Logger, args []string) int {
	if len(args) == 0 || args[0] != "sql-file" {
		fmt.Fprintln(os.Stderr, "usage: elefant export sql-file --path P [flags]")
		return exitUsage
	}
	fs := flag.NewFlagSet("export sql-file", flag.ContinueOnError)
	var c commonFlags
	bindCommon(fs, &c, false)
	path := fs.String("path", "", "output file path")
	format := fs.String("format", "CopyStatements", "InsertStatements or CopyStatements")
	maxRows := fs.Int("max-rows-per-insert", 1000, "rows per INSERT statement batch")
	if err := fs.Parse(args[1:]); err != nil {
		return exitUsage
	}
	if *path == "" {
		fmt.Fprintln(os.Stderr, "--path is required")
		return exitUsage
	}

	ctx := context.Background()
	srcConn, err := connectSource(ctx, &c, logger)
	if err != nil {
		logger.Error().Err(err).Msg("connect to source failed")
		return exitConnectFailure
	}
	defer srcConn.Close()

	forest, err := introspect.Introspect(ctx, srcConn, introspect.Options{Logger: logger})
	if err != nil {
		logger.Error().Err(err).Msg("introspection failed")
		return exitIntrospectFailure
	}

	f, err := os.Create(*path)
	if err != nil {
		logger.Error().Err(err).Msg("create output file failed")
		return exitUsage
	}
	defer f.Close()

	sink := sqlfile.NewWriter(f, sqlfile.Format(*format), *maxRows)
	opts := runOptionsFrom(&c)
	opts.Differential = false // differential resume has no meaning against a file sink
	opts.MaxParallelism = 1   // every worker would share this one Writer; it isn't safe for concurrent WriteChunk calls

	o, err := orchestrator.New(opts, logger,
		func(ctx context.Context) (datapipe.Source, error) {
			conn, err := connectSource(ctx, &c, logger)
			if err != nil {
				return nil, err
			}
			return datapipe.NewPgSource(conn), nil
		},
		func(ctx context.Context) (datapipe.Sink, error) { return sink, nil },
		sink, nil,
	)
	if err != nil {
		logger.Error().Err(err).Msg("orchestrator setup failed")
		return exitUsage
	}

	if err := o.Run(ctx, forest); err != nil {
		logger.Error().Err(err).Msg("export failed")
		return classifyExit(err)
	}
	return exitOK
}

// runImport implements `elefant import sql-file` (spec.md §6.1): replay
// a previously exported file against a live target.
func runImport(logger zerolog.Logger, args []string) int {
	if len(args) == 0 || args[0] != "sql-file" {
		fmt.Fprintln(os.Stderr, "usage: elefant import sql-file --path P [flags]")
		return exitUsage
	}
	fs := flag.NewFlagSet("import sql-file", flag.ContinueOnError)
	var c commonFlags
	bindCommon(fs, &c, true)
	path := fs.String("path", "", "input file path")
	if err := fs.Parse(args[1:]); err != nil {
		return exitUsage
	}
	if *path == "" {
		fmt.Fprintln(os.Stderr, "--path is required")
		return exitUsage
	}

	ctx := context.Background()

	f, err := os.Open(*path)
	if err != nil {
		logger.Error().Err(err).Msg("open input file failed")
		return exitUsage
	}
	defer f.Close()

	rd, err := sqlfile.NewReader(f)
	if err != nil {
		logger.Error().Err(err).Msg("parse sql-file header failed")
		return exitUsage
	}

	targetConn, err := connectTarget(ctx, &c, logger)
	if err != nil {
		logger.Error().Err(err).Msg("connect to target failed")
		return exitConnectFailure
	}
	defer targetConn.Close()

	sink := datapipe.NewPgSink(targetConn)
	execDDL := func(ctx context.Context, statement string) error {
		_, err := targetConn.QuerySimple(ctx, statement)
		return err
	}

	if err := rd.Replay(ctx, sink, execDDL); err != nil {
		logger.Error().Err(err).Msg("import failed")
		return classifyExit(err)
	}
	return exitOK
}
