// Command gridstack manages persisted temporal filters.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/gridstack/internal/config"
	"github.com/banshee-data/gridstack/internal/grid"
	"github.com/banshee-data/gridstack/internal/gridpb"
	"github.com/banshee-data/gridstack/internal/monitoring"
	"github.com/banshee-data/gridstack/internal/store"
	"github.com/banshee-data/gridstack/internal/temporal"
	"github.com/banshee-data/gridstack/internal/timeutil"
	"github.com/banshee-data/gridstack/internal/validation"
	"github.com/banshee-data/gridstack/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to a JSON settings file")
	dbPath     = flag.String("db", "", "Filter store path (overrides store_path)")
	listen     = flag.String("listen", ":9090", "Listen address for serve")
	strict     = flag.Bool("strict", false, "Fail loads on the first recoverable problem")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: gridstack [flags] <command> [args]

Commands:
  list                   list stored filters
  show <name>            print a stored filter
  import <name> <file>   validate an envelope file and store it
  export <name> <file>   write a stored filter as an envelope file
  delete <name>          remove a stored filter
  migrate up|down|version
  serve                  expose /metrics and /filters over HTTP

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if *showVer {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	path := cfg.GetStorePath()
	if *dbPath != "" {
		path = *dbPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{cfg: cfg, dbPath: path, strict: *strict, listen: *listen, out: os.Stdout}
	if err := c.run(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			usage()
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	cfg := &config.Config{}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

var errUsage = errors.New("usage")

type cli struct {
	cfg    *config.Config
	dbPath string
	strict bool
	listen string
	out    io.Writer
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	need := map[string]int{"list": 0, "show": 1, "import": 2, "export": 2, "delete": 1, "migrate": 1, "serve": 0}
	n, ok := need[cmd]
	if !ok || len(args) != n {
		return fmt.Errorf("%w: %s", errUsage, cmd)
	}

	filterOpts, err := c.cfg.FilterOptions(grid.NewRegistry(), timeutil.RealClock{})
	if err != nil {
		return err
	}
	s, err := store.Open(c.dbPath, store.Options{Filter: filterOpts})
	if err != nil {
		return err
	}
	defer s.Close()

	switch cmd {
	case "list":
		return c.list(ctx, s)
	case "show":
		return c.show(ctx, s, args[0])
	case "import":
		return c.importFile(ctx, s, filterOpts, args[0], args[1])
	case "export":
		return c.exportFile(ctx, s, args[0], args[1])
	case "delete":
		return s.Delete(ctx, args[0])
	case "migrate":
		return c.migrate(s, args[0])
	default:
		return c.serve(ctx, s)
	}
}

// node returns nil in strict mode so loads fail on the first problem.
func (c *cli) node(name string) *validation.Node {
	if c.strict {
		return nil
	}
	return validation.NewRoot("gridstack.grid.TemporalCondition", name)
}

func (c *cli) printProblems(v *validation.Node) {
	if v == nil {
		return
	}
	for _, r := range v.All() {
		fmt.Fprintf(c.out, "%s\n", r)
	}
}

func (c *cli) list(ctx context.Context, s *store.Store) error {
	recs, err := s.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tBYTES\tSAVED\tWARNING")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", r.Name, r.SchemaVersion, r.Size, r.SavedAt.Format(time.RFC3339), r.LoadWarning)
	}
	return w.Flush()
}

func (c *cli) show(ctx context.Context, s *store.Store, name string) error {
	v := c.node(name)
	f, rec, err := s.Load(ctx, name, v)
	c.printProblems(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s (v%d, saved %s)\n", rec.Name, rec.SchemaVersion, rec.SavedAt.Format(time.RFC3339))

	tm := f.TimeManager()
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tMIN_RH\tMAX_WS\tMIN_FWI\tMIN_ISI\tSTART\tEND")
	for _, a := range f.Daily() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tm.Local(a.Day).Format(time.DateOnly),
			field(a.Has(temporal.RHEffective), a.MinRH),
			field(a.Has(temporal.WindEffective), a.MaxWS),
			field(a.Has(temporal.FWIEffective), a.MinFWI),
			field(a.Has(temporal.ISIEffective), a.MinISI),
			span(a.Has(temporal.StartEffective), a.Start, a.StartRelative),
			span(a.Has(temporal.EndEffective), a.End, a.EndRelative))
	}
	fmt.Fprintln(w, "\nDAY_OF_YEAR\tGREENUP\tGRASS_PHENOLOGY\tCURING")
	for _, e := range f.Seasonal() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.Day,
			flagField(e, temporal.Greenup),
			flagField(e, temporal.GrassPhenology),
			field(e.CuringSet, e.Curing))
	}
	return w.Flush()
}

func field(ok bool, v float64) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%g", v)
}

func span(ok bool, d time.Duration, r temporal.Relative) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%v from %v", d, r)
}

func flagField(e temporal.SeasonalAttribute, fl temporal.Flag) string {
	if e.FlagsSet&fl == 0 {
		return "-"
	}
	return fmt.Sprintf("%t", e.Flags&fl != 0)
}

func (c *cli) importFile(ctx context.Context, s *store.Store, opts temporal.Options, name, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	msg, err := gridpb.UnmarshalEnvelope(b)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	v := c.node(name)
	f, err := temporal.Deserialize(msg, opts, v, name)
	c.printProblems(v)
	if err != nil {
		return err
	}
	rec, err := s.Save(ctx, name, f, c.cfg.SerializeOptions())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "imported %s as v%d (%d bytes)\n", rec.Name, rec.SchemaVersion, rec.Size)
	return nil
}

func (c *cli) exportFile(ctx context.Context, s *store.Store, name, path string) error {
	v := c.node(name)
	f, _, err := s.Load(ctx, name, v)
	c.printProblems(v)
	if err != nil {
		return err
	}
	b, err := f.Marshal(c.cfg.SerializeOptions())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(c.out, "exported %s to %s\n", name, path)
	return nil
}

func (c *cli) migrate(s *store.Store, action string) error {
	switch action {
	case "up":
		if err := s.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := s.MigrateDown(); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("%w: migrate %s", errUsage, action)
	}
	version, dirty, err := s.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "schema version %d (dirty=%v)\n", version, dirty)
	return nil
}

func (c *cli) handler(s *store.Store) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(monitoring.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /filters", func(w http.ResponseWriter, r *http.Request) {
		recs, err := s.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		type entry struct {
			ID            string    `json:"id"`
			Name          string    `json:"name"`
			SchemaVersion int32     `json:"schema_version"`
			Size          int       `json:"size"`
			LoadWarning   string    `json:"load_warning,omitempty"`
			SavedAt       time.Time `json:"saved_at"`
		}
		out := make([]entry, 0, len(recs))
		for _, r := range recs {
			out = append(out, entry{r.ID, r.Name, r.SchemaVersion, r.Size, r.LoadWarning, r.SavedAt})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			log.Printf("encode filters: %v", err)
		}
	})
	return mux
}

func (c *cli) serve(ctx context.Context, s *store.Store) error {
	srv := &http.Server{Addr: c.listen, Handler: c.handler(s), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()
	log.Printf("%s listening on %s", version.String(), c.listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
