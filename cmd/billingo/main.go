// Command billingo calls the Billingo API from the command line.
//
// Usage:
//
//	billingo [global flags] call [-method GET] [-data '{"page":1}'] [-H 'K: V'] PATH
//	billingo [global flags] download [-out FILE] INVOICE_ID
//	billingo [global flags] exchange
//	billingo [global flags] token-request
//	billingo [global flags] bench [-concurrency 16] [-ops 1000] PATH
//
// Credentials come from -config (YAML) and the BILLINGO_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	billingo "github.com/billingo/billingo-go"
	"github.com/billingo/billingo-go/internal/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const usage = `usage: billingo [global flags] <call|download|exchange|token-request|bench> [flags] [args]`

type env struct {
	stdout io.Writer
	stderr io.Writer
	lookup func(string) (string, bool)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], env{stdout: os.Stdout, stderr: os.Stderr, lookup: os.LookupEnv})
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, e env) int {
	global := flag.NewFlagSet("billingo", flag.ContinueOnError)
	global.SetOutput(e.stderr)
	var (
		configPath = global.String("config", "", "path to a YAML config file")
		host       = global.String("host", "", "API base URL (overrides config and environment)")
		transport  = global.String("transport", "", "http or fasthttp")
		logLevel   = global.String("log-level", "warn", "log level (debug, info, warn, error)")
		logFormat  = global.String("log-format", "console", "log format (console, json)")
	)
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprintln(e.stderr, usage)
		return 2
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = *logLevel
	logCfg.Format = logging.Format(*logFormat)
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		fmt.Fprintln(e.stderr, err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(*configPath, *host, *transport, e.lookup)
	if err != nil {
		logger.Error("load config", zap.Error(err))
		return 1
	}

	cmd, cmdArgs := rest[0], rest[1:]
	var runCmd func(context.Context, *billingo.Client, []string, env) error
	switch cmd {
	case "call":
		runCmd = runCall
	case "download":
		runCmd = runDownload
	case "exchange":
		runCmd = runExchange
	case "token-request":
		runCmd = runTokenRequest
	case "bench":
		runCmd = runBench
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true
	default:
		fmt.Fprintf(e.stderr, "unknown command %q\n%s\n", cmd, usage)
		return 2
	}

	cfg.Audit = billingo.AuditConfig{Enabled: true, BufferSize: 256, DropIfFull: true}
	client, err := billingo.New().
		WithConfig(cfg).
		WithAuditSink(billingo.NewZapSink(logger)).
		Build()
	if err != nil {
		logger.Error("build client", zap.Error(err))
		return 1
	}
	defer client.Close()

	logger.Debug("client ready",
		zap.String("host", client.Host()),
		zap.String("version", client.Version()),
		zap.Stringer("auth_mode", client.AuthMode()),
	)

	if err := runCmd(ctx, client, cmdArgs, e); err != nil {
		var usageErr usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(e.stderr, usageErr.Error())
			return 2
		}
		logger.Error(cmd+" failed", zap.Error(err))
		return 1
	}
	return 0
}

type usageError string

func (u usageError) Error() string { return string(u) }

func loadConfig(path, host, transport string, lookup func(string) (string, bool)) (billingo.Config, error) {
	cfg := billingo.DefaultConfig()
	if path != "" {
		loaded, err := billingo.LoadConfigFile(path)
		if err != nil {
			return billingo.Config{}, err
		}
		cfg = loaded
	}
	cfg = billingo.ApplyEnv(cfg, lookup)
	if host != "" {
		cfg.Host = host
	}
	if transport != "" {
		cfg.Transport = billingo.TransportKind(transport)
	}
	return cfg, nil
}

type headerFlag []string

func (h *headerFlag) String() string { return strings.Join(*h, ", ") }

func (h *headerFlag) Set(v string) error {
	if !strings.Contains(v, ":") {
		return fmt.Errorf("header %q must look like Name: value", v)
	}
	*h = append(*h, v)
	return nil
}

func runCall(ctx context.Context, client *billingo.Client, args []string, e env) error {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	method := fs.String("method", http.MethodGet, "HTTP method")
	data := fs.String("data", "", "JSON object payload")
	var headers headerFlag
	fs.Var(&headers, "H", "extra header, repeatable")
	if err := fs.Parse(args); err != nil {
		return usageError("call: " + err.Error())
	}
	if fs.NArg() != 1 {
		return usageError("call: exactly one PATH argument is required")
	}

	var params billingo.Params
	if *data != "" {
		if err := json.Unmarshal([]byte(*data), &params); err != nil {
			return usageError("call: -data must be a JSON object: " + err.Error())
		}
	}
	h := http.Header{}
	for _, kv := range headers {
		name, value, _ := strings.Cut(kv, ":")
		h.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	res, err := client.Request(ctx, *method, fs.Arg(0), params, h)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.stdout, res.String())
	return err
}

func runDownload(ctx context.Context, client *billingo.Client, args []string, e env) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	out := fs.String("out", "-", "output file, - for stdout")
	if err := fs.Parse(args); err != nil {
		return usageError("download: " + err.Error())
	}
	if fs.NArg() != 1 {
		return usageError("download: exactly one INVOICE_ID argument is required")
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return usageError("download: INVOICE_ID must be an integer")
	}

	var sink io.Writer = e.stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		sink = f
	}

	_, err = client.DownloadInvoice(ctx, id, sink)
	return err
}

func runExchange(ctx context.Context, client *billingo.Client, _ []string, e env) error {
	token, err := client.ExchangeToken(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.stdout, token)
	return err
}

func runTokenRequest(_ context.Context, client *billingo.Client, _ []string, e env) error {
	s, err := client.TokenRequestString()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.stdout, s)
	return err
}
