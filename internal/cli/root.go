// Package cli implements the nexuslearn CLI commands.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rcliao/nexuslearn/internal/gemini"
	"github.com/rcliao/nexuslearn/internal/identity"
	"github.com/rcliao/nexuslearn/internal/store"
	"github.com/rcliao/nexuslearn/internal/workspace"
)

const (
	defaultSQLitePath = "~/.nexuslearn/nexuslearn.db"
	defaultDiskvPath  = "~/.nexuslearn/data"
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "nexuslearn",
	Short: "Study planner for students",
	Long:  "Track subjects and goals, generate study and budget plans, keep a calendar and reminders, and chat with Study Buddy. Data stays in a local store, per account.",
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringP("db", "d", "", "Store path (default: $NEXUSLEARN_DB or "+defaultSQLitePath+")")
	flags.String("backend", "", "Storage backend: sqlite or diskv (default: sqlite)")
	flags.StringP("format", "f", "", "Output format: json or text (default: json)")

	viper.BindPFlag("db", flags.Lookup("db"))
	viper.BindPFlag("backend", flags.Lookup("backend"))
	viper.BindPFlag("format", flags.Lookup("format"))
}

// initConfig reads .nexuslearn.yaml and NEXUSLEARN_* variables.
func initConfig() {
	viper.SetDefault("backend", string(store.BackendSQLite))
	viper.SetDefault("format", "json")
	viper.SetDefault("gemini.model", gemini.DefaultModel)
	viper.SetConfigName(".nexuslearn") // .yaml is implicit
	viper.SetEnvPrefix("NEXUSLEARN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if override := os.Getenv("NEXUSLEARN_CONFIG_PATH"); override != "" {
		viper.AddConfigPath(override)
	}
	viper.AddConfigPath("./")
	if home, err := homedir.Dir(); err == nil {
		viper.AddConfigPath(home)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			exitErr("read config", err)
		}
	}
}

func getBackend() store.Backend {
	return store.Backend(viper.GetString("backend"))
}

func getDBPath() string {
	p := viper.GetString("db")
	if p == "" {
		p = defaultSQLitePath
		if getBackend() == store.BackendDiskv {
			p = defaultDiskvPath
		}
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return expanded
}

func openStore() (store.KV, error) {
	return store.Open(getBackend(), getDBPath())
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "nexuslearn: ", 0)
}

// app is the per-invocation wiring of store, identity and workspace.
type app struct {
	kv  store.KV
	ids *identity.Store
	ws  *workspace.Workspace
	log *log.Logger
}

func openApp(cmd *cobra.Command) (*app, error) {
	kv, err := openStore()
	if err != nil {
		return nil, err
	}
	ids := identity.New(kv)
	if err := ids.Load(cmd.Context()); err != nil {
		kv.Close()
		return nil, err
	}
	logger := newLogger()
	return &app{
		kv:  kv,
		ids: ids,
		ws:  workspace.New(kv, ids, logger),
		log: logger,
	}, nil
}

// mustOpenApp opens the app and exits when there is no active session.
func mustOpenApp(cmd *cobra.Command) *app {
	a, err := openApp(cmd)
	if err != nil {
		exitErr("open store", err)
	}
	if a.ids.Current() == nil {
		a.Close()
		exitErr(cmd.CommandPath(), fmt.Errorf("%w (run 'nexuslearn login')", identity.ErrNotAuthenticated))
	}
	return a
}

func (a *app) Close() {
	a.ws.Close()
	a.kv.Close()
}

// newGeminiClient builds a client from config. An empty gemini.api_key
// falls back to the environment.
func newGeminiClient(ctx context.Context) (*gemini.Client, error) {
	return gemini.New(ctx, gemini.Options{
		APIKey:  viper.GetString("gemini.api_key"),
		Model:   viper.GetString("gemini.model"),
		BaseURL: viper.GetString("gemini.url"),
	})
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
