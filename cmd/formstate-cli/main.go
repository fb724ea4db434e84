package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/untillpro/goutils/logger"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/internal/store/sqlite"
	"github.com/goliatone/go-formstate/pkg/contextdata"
	"github.com/goliatone/go-formstate/pkg/schema"
	"github.com/goliatone/go-formstate/pkg/templates"
)

var rootCmd = &cobra.Command{
	Use:   "formstate",
	Short: "Fill, validate and lint form templates",
	Long: `formstate evaluates form templates: conditional visibility, field validation,
wizard steps, repeatable sections, drafts and submissions.

Templates are YAML or JSON files. Lookup fields (worker, jobsite, equipment,
hazard, task) draw their options from a context data file keyed by tenant.
Drafts and submissions are kept in a SQLite database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("verbose") {
			logger.SetLogLevel(logger.LogLevelVerbose)
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("FORMSTATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().Bool("lenient", false, "load templates with lint errors")
	rootCmd.PersistentFlags().String("db", sqlite.DefaultPath, "SQLite database for drafts and submissions")
	rootCmd.PersistentFlags().String("context", "", "context data file (YAML) with per-tenant lists")
	rootCmd.PersistentFlags().String("tenant", "", "tenant whose context data is used")
	rootCmd.PersistentFlags().String("templates", "", "directory of templates addressable by id")
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("lenient", rootCmd.PersistentFlags().Lookup("lenient"))
	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("context", rootCmd.PersistentFlags().Lookup("context"))
	_ = viper.BindPFlag("tenant", rootCmd.PersistentFlags().Lookup("tenant"))
	_ = viper.BindPFlag("templates", rootCmd.PersistentFlags().Lookup("templates"))
}

func registerCommands() {
	rootCmd.AddCommand(lintCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(fillCmd())
	rootCmd.AddCommand(draftsCmd())
	rootCmd.AddCommand(templatesCmd())
	rootCmd.AddCommand(submissionCmd())
}

// --- helpers ---

func newLoader() *templates.Loader {
	var opts []templates.Option
	if viper.GetBool("lenient") {
		opts = append(opts, templates.WithLenient())
	}
	return templates.NewLoader(opts...)
}

func loadTemplate(ctx context.Context, ref string) (schema.FormTemplate, []schema.Issue, error) {
	return resolveTemplate(ctx, newLoader(), viper.GetString("templates"), ref)
}

// resolveTemplate loads ref as a file when one exists at that path, and
// otherwise looks it up by id among the templates in dir.
func resolveTemplate(ctx context.Context, loader *templates.Loader, dir, ref string) (schema.FormTemplate, []schema.Issue, error) {
	if _, err := os.Stat(ref); err == nil || dir == "" {
		return loader.Load(ctx, templates.SourceFromFile(ref))
	}
	reg, err := openRegistry(ctx, loader, dir)
	if err != nil {
		return schema.FormTemplate{}, nil, err
	}
	tpl, err := reg.Get(ctx, ref)
	return tpl, nil, err
}

func openRegistry(ctx context.Context, loader *templates.Loader, dir string) (*templates.Registry, error) {
	reg := templates.NewRegistry(loader)
	ids, err := reg.RegisterDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	logger.Verbose("templates:", len(ids), "registered from", dir)
	return reg, nil
}

// loadCatalog snapshots the context data for the configured tenant. Without a
// context file every lookup check is skipped.
func loadCatalog(ctx context.Context, tpl schema.FormTemplate) (*contextdata.Catalog, error) {
	path := viper.GetString("context")
	if path == "" {
		return nil, nil
	}
	static, err := contextdata.LoadStaticFile(path)
	if err != nil {
		return nil, err
	}
	tenant := viper.GetString("tenant")
	if tenant == "" {
		tenants := static.Tenants()
		if len(tenants) != 1 {
			return nil, fmt.Errorf("--tenant is required; %s lists %d tenants", path, len(tenants))
		}
		tenant = tenants[0]
	}
	return contextdata.Snapshot(ctx, static, tenant, tpl)
}

func withStore(fn func(sqlite.Store) error) error {
	conn, err := sqlite.Open(viper.GetString("db"))
	if err != nil {
		return err
	}
	defer closeDB(conn)
	return fn(sqlite.New(conn))
}

func closeDB(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logger.Warning("formstate: close database:", err)
	}
}

// valuesFile is the on-disk shape accepted by validate. A file without a
// values key is read as a flat map of field codes.
type valuesFile struct {
	Values    schema.Values            `yaml:"values"`
	Instances []schema.SectionInstance `yaml:"instances"`
}

func readValues(path string) (valuesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return valuesFile{}, fmt.Errorf("read values: %w", err)
	}
	var out valuesFile
	if err := yaml.Unmarshal(data, &out); err != nil {
		return valuesFile{}, fmt.Errorf("decode values %s: %w", path, err)
	}
	if out.Values == nil && out.Instances == nil {
		if err := yaml.Unmarshal(data, &out.Values); err != nil {
			return valuesFile{}, fmt.Errorf("decode values %s: %w", path, err)
		}
	}
	if out.Values == nil {
		out.Values = schema.Values{}
	}
	return out, nil
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	return tw
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
