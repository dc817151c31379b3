// agentmem: autonomous memory layer for coding agents
//
// Decides what is worth remembering, decomposes tasks into context
// queries, and assembles scored context from stored memories. Served to
// any MCP client over stdio, with one-shot CLI commands for scripting.
//
// Usage:
//
//	agentmem serve               # Start MCP server (stdio transport)
//	agentmem store <text>        # Offer text to memory
//	agentmem retrieve <task>     # Assemble context for a task
//	agentmem decompose <task>    # Show the task decomposition
//	agentmem analyze <text>      # Show which agents text triggers
//	agentmem status              # Agent system status
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zate/remote-agent-memory/internal/config"
	"github.com/Zate/remote-agent-memory/internal/decompose"
	"github.com/Zate/remote-agent-memory/internal/logging"
	"github.com/Zate/remote-agent-memory/internal/memtools"
	"github.com/Zate/remote-agent-memory/internal/orchestrator"
	"github.com/Zate/remote-agent-memory/internal/server"
)

var (
	// Global flags
	configPath string
	debug      bool
	jsonOutput bool
	pretty     bool

	// store flags
	storeTags    []string
	storeProject string
	forceStore   bool

	// decompose / retrieve flags
	detailLevel string

	// retrieve flags
	sectionLimit int

	// analyze flags
	execute bool

	cfg      *config.Config
	logger   *zap.Logger
	logLevel zap.AtomicLevel
)

var rootCmd = &cobra.Command{
	Use:   "agentmem",
	Short: "agentmem - autonomous memory layer for coding agents",
	Long: `agentmem decides what is worth remembering, breaks tasks into context
queries, and assembles scored context from stored memories.

Run "agentmem serve" to expose it to an MCP client over stdio.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if debug {
			cfg.Logging.Debug = true
		}
		logger, logLevel, err = logging.NewWithLevel(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cleanup, err := server.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}
		defer cleanup()

		if stop := watchConfig(cmd); stop != nil {
			defer stop()
		}

		logger.Info("serving MCP over stdio", zap.String("version", server.Version))
		return mcpserver.ServeStdio(s)
	},
}

// watchConfig applies log level changes from the config file while serving.
// Storage and retrieval settings take effect on restart.
func watchConfig(cmd *cobra.Command) func() {
	if _, err := os.Stat(configPath); err != nil {
		return nil
	}
	w, err := config.NewWatcher(configPath, logger, func(next *config.Config) {
		if debug {
			next.Logging.Debug = true
		}
		level, err := logging.Level(next.Logging)
		if err != nil {
			logger.Warn("ignoring log level", zap.Error(err))
			return
		}
		logLevel.SetLevel(level)
		if next.Storage != cfg.Storage || next.Retrieval != cfg.Retrieval {
			logger.Warn("storage and retrieval changes apply after restart")
		}
	})
	if err != nil {
		logger.Warn("config watch disabled", zap.Error(err))
		return nil
	}
	if err := w.Start(cmd.Context()); err != nil {
		logger.Warn("config watch disabled", zap.Error(err))
		_ = w.Close()
		return nil
	}
	return func() { _ = w.Close() }
}

var storeCmd = &cobra.Command{
	Use:   "store [text]",
	Short: "Offer text to memory; agent analysis decides whether to keep it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := server.Open(cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		content := strings.Join(args, " ")
		meta := map[string]any{}
		if storeProject != "" {
			meta["project"] = storeProject
		}

		res := rt.Integration.Store(cmd.Context(), content, meta)
		if !res.Stored && res.Error == "" && (len(storeTags) > 0 || forceStore) {
			res = rt.Integration.StoreDirect(cmd.Context(), content, storeTags, meta)
		}
		if jsonOutput {
			return printJSON(res)
		}
		if res.Error != "" {
			return fmt.Errorf("store failed: %s", res.Error)
		}
		if !res.Stored {
			fmt.Printf("Not stored: %s (%s)\n", res.Reason, res.Analysis)
			return nil
		}
		fmt.Printf("Stored %s: %s\nTags: %s\n", res.Hash, res.Reason, strings.Join(res.Tags, ", "))
		return nil
	},
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [task]",
	Short: "Assemble memory context for a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := server.Open(cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		res := rt.Integration.Retrieve(cmd.Context(), strings.Join(args, " "), nil)
		if jsonOutput {
			return printJSON(res)
		}
		if !res.Success {
			return fmt.Errorf("%s: %s", res.Context, res.Error)
		}
		printMarkdown(memtools.FormatContext(res.Assembled, memtools.ParseDetailLevel(detailLevel), sectionLimit))
		return nil
	},
}

var decomposeCmd = &cobra.Command{
	Use:   "decompose [task]",
	Short: "Show how a task is decomposed into context queries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := decompose.New(logger).Decompose(strings.Join(args, " "), nil)
		if jsonOutput {
			return printJSON(d)
		}
		printMarkdown(memtools.FormatDecomposition(d, memtools.ParseDetailLevel(detailLevel)))
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Show which memory agents the text triggers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch := orchestrator.New(logger)
		text := strings.Join(args, " ")

		if execute {
			op := orch.AutonomousOperation(cmd.Context(), text, nil)
			if jsonOutput {
				return printJSON(op)
			}
			fmt.Println(op.Message)
			return nil
		}

		invs := orch.Analyze(text, nil)
		if jsonOutput {
			return printJSON(invs)
		}
		if len(invs) == 0 {
			fmt.Println("No memory operations needed.")
			return nil
		}
		for _, inv := range invs {
			fmt.Printf("%-16s trigger=%s priority=%d\n", inv.Agent, inv.Trigger, inv.Priority)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent system status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := server.Open(cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		st := rt.Integration.Status()
		if jsonOutput {
			return printJSON(st)
		}
		printMarkdown(memtools.FormatStatus(st))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	// The version needs no config or logger.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agentmem v%s\n", server.Version)
	},
}

// printMarkdown prints md, rendered for the terminal with --pretty.
func printMarkdown(md string) {
	if !pretty {
		fmt.Println(md)
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	logger.Debug("markdown rendering failed", zap.Error(err))
	fmt.Println(md)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Render Markdown output for the terminal")

	storeCmd.Flags().StringSliceVar(&storeTags, "tags", nil, "Tags; store even if the analysis declines")
	storeCmd.Flags().StringVar(&storeProject, "project", "", "Project name")
	storeCmd.Flags().BoolVar(&forceStore, "force", false, "Store even if the analysis declines")

	decomposeCmd.Flags().StringVar(&detailLevel, "detail", memtools.DetailStandard, "summary, standard or full")
	retrieveCmd.Flags().StringVar(&detailLevel, "detail", memtools.DetailStandard, "summary, standard or full")
	retrieveCmd.Flags().IntVar(&sectionLimit, "limit", 5, "Max items shown per section")
	analyzeCmd.Flags().BoolVar(&execute, "execute", false, "Run the triggered agents")

	rootCmd.AddCommand(serveCmd, storeCmd, retrieveCmd, decomposeCmd, analyzeCmd, statusCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
