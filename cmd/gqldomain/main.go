package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/neoscript99/go-gql-domain/internal/config"
	"github.com/neoscript99/go-gql-domain/pkg/criteria"
	"github.com/neoscript99/go-gql-domain/pkg/store"
)

const rootUsage = `gqldomain: schema-driven GraphQL domain client

USAGE:
  gqldomain <command> [flags]

COMMANDS:
  fields     Resolve and print the field sets of one or more domains
  list       List a domain, optionally paged and ordered
  get        Fetch one entity by id
  create     Create an entity from a JSON object
  update     Update an entity from a JSON object
  delete     Delete an entity by id
  help       Show help for any command
`

const commonUsage = `COMMON FLAGS:
  -config <file>          YAML configuration file
  -endpoint <url>         GraphQL endpoint (overrides config)
  -timeout <duration>     Per-request timeout (overrides config)
  -debug                  Attach request/response bodies to errors, debug logging
  -metrics                Print operation counters to stderr on exit
`

const fieldsUsage = `fields FLAGS:
  -domain <name>          Domain to resolve. Repeatable
` + commonUsage

const listUsage = `list FLAGS:
  -domain <name>          Domain to list (required)
  -criteria <json>        Criteria object
  -order "<path> [asc|desc]"  Order, dotted paths order a relation. Repeatable
  -pages <n>              Fetch n pages and accumulate them (default: 0, no paging)
  -page-size <n>          Page size (overrides config)
` + commonUsage

const getUsage = `get FLAGS:
  -domain <name>          Domain (required)
  -id <id>                Entity id (required)
` + commonUsage

const createUsage = `create FLAGS:
  -domain <name>          Domain (required)
  -value <json>           Entity object (required)
` + commonUsage

const updateUsage = `update FLAGS:
  -domain <name>          Domain (required)
  -id <id>                Entity id (required)
  -value <json>           Entity object (required)
` + commonUsage

const deleteUsage = `delete FLAGS:
  -domain <name>          Domain (required)
  -id <id>                Entity id (required)
` + commonUsage

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd, cmdArgs := args[0], args[1:]
	switch cmd {
	case "fields":
		return cmdFields(ctx, cmdArgs, stdout, stderr)
	case "list":
		return cmdList(ctx, cmdArgs, stdout, stderr)
	case "get":
		return cmdGet(ctx, cmdArgs, stdout, stderr)
	case "create":
		return cmdCreate(ctx, cmdArgs, stdout, stderr)
	case "update":
		return cmdUpdate(ctx, cmdArgs, stdout, stderr)
	case "delete":
		return cmdDelete(ctx, cmdArgs, stdout, stderr)
	case "help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	usages := map[string]string{
		"fields": fieldsUsage,
		"list":   listUsage,
		"get":    getUsage,
		"create": createUsage,
		"update": updateUsage,
		"delete": deleteUsage,
	}
	usage, ok := usages[args[0]]
	if !ok {
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	fmt.Fprint(stdout, usage)
	return nil
}

// stringList collects repeatable string flags.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

// commonFlags are shared by every command.
type commonFlags struct {
	configPath string
	endpoint   string
	timeout    time.Duration
	debug      bool
	metrics    bool
}

func newFlagSet(name string, common *commonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer)) // silence automatic output
	fs.StringVar(&common.configPath, "config", "", "")
	fs.StringVar(&common.endpoint, "endpoint", "", "")
	fs.DurationVar(&common.timeout, "timeout", 0, "")
	fs.BoolVar(&common.debug, "debug", false, "")
	fs.BoolVar(&common.metrics, "metrics", false, "")
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string, usage string, stderr io.Writer) error {
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, usage)
		return err
	}
	return nil
}

// loadConfig applies command line overrides to the configuration file.
func (c *commonFlags) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return cfg, err
		}
	}
	if c.endpoint != "" {
		cfg.Endpoint = c.endpoint
	}
	if c.timeout > 0 {
		cfg.Timeout = c.timeout
	}
	if c.debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func (c *commonFlags) open(ctx context.Context, stderr io.Writer, mutate func(*config.Config)) (*app, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return newApp(ctx, cfg, stderr)
}

func (c *commonFlags) finish(ctx context.Context, a *app, stderr io.Writer) {
	if c.metrics {
		a.printMetrics(stderr)
	}
	a.close(ctx)
}

func cmdFields(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var domains stringList
	fs := newFlagSet("fields", &common)
	fs.Var(&domains, "domain", "")
	if err := parseFlags(fs, args, fieldsUsage, stderr); err != nil {
		return err
	}
	if len(domains) == 0 {
		fmt.Fprint(stderr, fieldsUsage)
		return fmt.Errorf("-domain is required")
	}

	a, err := common.open(ctx, stderr, nil)
	if err != nil {
		return err
	}
	defer common.finish(ctx, a, stderr)

	if err := a.registry.Warm(ctx, domains...); err != nil {
		return err
	}
	for _, d := range domains {
		fields, err := a.domainClient(d).Fields(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: %s\n", d, fields)
	}
	return nil
}

func cmdList(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		common   commonFlags
		domain   string
		critJSON string
		orders   stringList
		pages    int
		pageSize int
	)
	fs := newFlagSet("list", &common)
	fs.StringVar(&domain, "domain", "", "")
	fs.StringVar(&critJSON, "criteria", "", "")
	fs.Var(&orders, "order", "")
	fs.IntVar(&pages, "pages", 0, "")
	fs.IntVar(&pageSize, "page-size", 0, "")
	if err := parseFlags(fs, args, listUsage, stderr); err != nil {
		return err
	}
	if domain == "" {
		fmt.Fprint(stderr, listUsage)
		return fmt.Errorf("-domain is required")
	}

	crit := criteria.Criteria{}
	if critJSON != "" {
		if err := json.Unmarshal([]byte(critJSON), &crit); err != nil {
			return fmt.Errorf("invalid -criteria: %w", err)
		}
	}
	parsed := make([]criteria.Order, 0, len(orders))
	for _, o := range orders {
		order, err := criteria.ParseOrder(o)
		if err != nil {
			return err
		}
		parsed = append(parsed, order)
	}

	a, err := common.open(ctx, stderr, func(cfg *config.Config) {
		if pageSize > 0 {
			cfg.PageSize = pageSize
		}
	})
	if err != nil {
		return err
	}
	defer common.finish(ctx, a, stderr)

	s := a.store(domain)
	if pages <= 0 {
		if err := s.List(ctx, store.ListOptions{Criteria: crit, Orders: parsed}); err != nil {
			return err
		}
		return writeJSON(stdout, map[string]any{"results": s.AllList()})
	}

	opts := store.PageOptions{Criteria: crit, Orders: parsed, Append: true}
	if err := s.ListFirstPage(ctx, opts); err != nil {
		return err
	}
	for i := 1; i < pages && !s.PageInfo().IsLastPage; i++ {
		if err := s.ListNextPage(ctx, opts); err != nil {
			return err
		}
	}
	info := s.PageInfo()
	return writeJSON(stdout, map[string]any{
		"results":     s.AllList(),
		"currentPage": info.CurrentPage,
		"pageSize":    info.PageSize,
		"totalCount":  info.TotalCount,
		"isLastPage":  info.IsLastPage,
	})
}

func cmdGet(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var domain, id string
	fs := newFlagSet("get", &common)
	fs.StringVar(&domain, "domain", "", "")
	fs.StringVar(&id, "id", "", "")
	if err := parseFlags(fs, args, getUsage, stderr); err != nil {
		return err
	}
	if domain == "" || id == "" {
		fmt.Fprint(stderr, getUsage)
		return fmt.Errorf("-domain and -id are required")
	}

	a, err := common.open(ctx, stderr, nil)
	if err != nil {
		return err
	}
	defer common.finish(ctx, a, stderr)

	item, err := a.store(domain).Get(ctx, id)
	if err != nil {
		return err
	}
	return writeJSON(stdout, item)
}

func cmdCreate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var domain, value string
	fs := newFlagSet("create", &common)
	fs.StringVar(&domain, "domain", "", "")
	fs.StringVar(&value, "value", "", "")
	if err := parseFlags(fs, args, createUsage, stderr); err != nil {
		return err
	}
	if domain == "" || value == "" {
		fmt.Fprint(stderr, createUsage)
		return fmt.Errorf("-domain and -value are required")
	}
	item, err := parseObject(value)
	if err != nil {
		return err
	}

	a, err := common.open(ctx, stderr, nil)
	if err != nil {
		return err
	}
	defer common.finish(ctx, a, stderr)

	created, err := a.store(domain).Create(ctx, item)
	if err != nil {
		return err
	}
	return writeJSON(stdout, created)
}

func cmdUpdate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var domain, id, value string
	fs := newFlagSet("update", &common)
	fs.StringVar(&domain, "domain", "", "")
	fs.StringVar(&id, "id", "", "")
	fs.StringVar(&value, "value", "", "")
	if err := parseFlags(fs, args, updateUsage, stderr); err != nil {
		return err
	}
	if domain == "" || id == "" || value == "" {
		fmt.Fprint(stderr, updateUsage)
		return fmt.Errorf("-domain, -id and -value are required")
	}
	item, err := parseObject(value)
	if err != nil {
		return err
	}

	a, err := common.open(ctx, stderr, nil)
	if err != nil {
		return err
	}
	defer common.finish(ctx, a, stderr)

	updated, err := a.store(domain).Update(ctx, id, item)
	if err != nil {
		return err
	}
	return writeJSON(stdout, updated)
}

func cmdDelete(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var domain, id string
	fs := newFlagSet("delete", &common)
	fs.StringVar(&domain, "domain", "", "")
	fs.StringVar(&id, "id", "", "")
	if err := parseFlags(fs, args, deleteUsage, stderr); err != nil {
		return err
	}
	if domain == "" || id == "" {
		fmt.Fprint(stderr, deleteUsage)
		return fmt.Errorf("-domain and -id are required")
	}

	a, err := common.open(ctx, stderr, nil)
	if err != nil {
		return err
	}
	defer common.finish(ctx, a, stderr)

	result, err := a.domainClient(domain).Delete(ctx, id)
	if err != nil {
		return err
	}
	return writeJSON(stdout, result)
}

func parseObject(s string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("invalid -value: %w", err)
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
