package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/blockmesh/blockmesh/internal/cliui/output"
	"github.com/blockmesh/blockmesh/internal/cliui/prompt"
	"github.com/blockmesh/blockmesh/internal/logger"
	"github.com/blockmesh/blockmesh/pkg/config"
	"github.com/blockmesh/blockmesh/pkg/coordinator"
	"github.com/blockmesh/blockmesh/pkg/metrics"

	// Registers the Prometheus-backed metrics constructors via init().
	_ "github.com/blockmesh/blockmesh/pkg/metrics/prometheus"
	// Registers every built-in allocation policy via init().
	_ "github.com/blockmesh/blockmesh/pkg/policy"
)

var interactive bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a blockmesh cluster in the foreground",
	Long: `Start spawns the coordinator and its worker data-nodes in this
process and blocks until interrupted (SIGINT/SIGTERM), then shuts the
cluster down gracefully. With --interactive, a prompt-driven console
replaces the signal wait so the cluster can be driven by hand.

Examples:
  blockmeshd start
  blockmeshd start --config /etc/blockmesh/blockmesh.yaml
  blockmeshd start --interactive`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&interactive, "interactive", false, "drive the cluster from an interactive console instead of waiting for a signal")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	reg := metrics.Init(cfg.Metrics.Enabled)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coordCfg := coordinator.Config{
		Nodes:         cfg.Nodes,
		CapacityBytes: cfg.CapacityBytes,
		Policy:        cfg.Policy,
		BaseDir:       cfg.BaseDir,
	}
	coord, err := coordinator.New(ctx, coordCfg, metrics.NewCoordinatorMetrics())
	if err != nil {
		return fmt.Errorf("start cluster: %w", err)
	}

	adminSrv := startAdminServer(cfg, reg, coord)

	logger.Info("cluster started", "nodes", cfg.Nodes, "policy", cfg.Policy, "capacity_bytes", cfg.CapacityBytes)

	if interactive {
		runConsole(ctx, coord)
		logger.Info("console exited, draining cluster")
	} else {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		signal.Stop(sigCh)
		logger.Info("shutdown signal received, draining cluster")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = adminSrv.Shutdown(shutdownCtx)

	if err := coord.Exit(false); err != nil {
		logger.Error("cluster shutdown reported errors", logger.KeyError, err)
		return err
	}
	logger.Info("cluster stopped")
	return nil
}

// statusResponse is the JSON body served at /status: the same
// coordinator.Stats snapshot the interactive console's "stats" command
// prints, so "blockmeshd status" (run from a separate process) can render
// identical bitmap/worker occupancy.
type statusResponse struct {
	TotalBlocks int64                   `json:"total_blocks"`
	FreeBlocks  int64                   `json:"free_blocks"`
	NumFiles    int                     `json:"num_files"`
	Nodes       []coordinator.NodeStats `json:"nodes"`
}

// startAdminServer serves /status unconditionally (so "blockmeshd status"
// always has something to query) and /metrics when cfg.Metrics.Enabled.
func startAdminServer(cfg *config.Config, reg *prometheus.Registry, coord *coordinator.Coordinator) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		s := coord.Stats()
		resp := statusResponse{
			TotalBlocks: s.TotalBlocks,
			FreeBlocks:  s.FreeBlocks,
			NumFiles:    s.NumFiles,
			Nodes:       s.Nodes,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server failed", logger.KeyError, err)
		}
	}()
	logger.Info("admin server listening", "port", cfg.Metrics.Port, "metrics_enabled", cfg.Metrics.Enabled)
	return srv
}

// nodeStatsTable adapts a cluster Stats snapshot to output.TableRenderer
// for the interactive console's "stats" command.
type nodeStatsTable coordinator.Stats

func (s nodeStatsTable) Headers() []string { return []string{"NODE", "FREE", "CAPACITY", "DEAD"} }

func (s nodeStatsTable) Rows() [][]string {
	rows := make([][]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		rows = append(rows, []string{
			fmt.Sprintf("%d", n.NodeID),
			fmt.Sprintf("%d", n.BlocksFree),
			fmt.Sprintf("%d", n.BlocksPerNode),
			fmt.Sprintf("%v", n.Dead),
		})
	}
	return rows
}

const (
	consoleCreate   = "create file"
	consoleStat     = "find file"
	consoleWrite    = "write file"
	consoleRead     = "read file"
	consoleTruncate = "truncate file"
	consoleStats    = "show cluster stats"
	consoleExit     = "exit"
)

// runConsole drives the cluster from a promptui command menu until the
// user picks "exit" or cancels. It exists for manual exercising of a
// running cluster; it is not meant to be scripted against.
func runConsole(ctx context.Context, coord *coordinator.Coordinator) {
	commands := []string{consoleCreate, consoleStat, consoleWrite, consoleRead, consoleTruncate, consoleStats, consoleExit}

	for {
		choice, err := prompt.Select("blockmesh console", commands)
		if err != nil {
			if prompt.IsAborted(err) {
				return
			}
			fmt.Println("error:", err)
			continue
		}

		switch choice {
		case consoleExit:
			return

		case consoleCreate:
			name, err := prompt.Input("file name")
			if err != nil {
				reportConsoleErr(err)
				continue
			}
			size, err := prompt.InputInt64("size (bytes)", 0)
			if err != nil {
				reportConsoleErr(err)
				continue
			}
			fid, err := coord.CreateFile(ctx, name, size)
			printFileResult(fid, err)

		case consoleStat:
			name, err := prompt.Input("file name")
			if err != nil {
				reportConsoleErr(err)
				continue
			}
			fid, err := coord.FindFile(ctx, name)
			printFileResult(fid, err)

		case consoleWrite:
			fid, err := prompt.InputInt64("file id", 0)
			if err != nil {
				reportConsoleErr(err)
				continue
			}
			text, err := prompt.Input("content")
			if err != nil {
				reportConsoleErr(err)
				continue
			}
			if err := coord.WriteFile(ctx, fid, []byte(text)); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println("ok")

		case consoleRead:
			fid, err := prompt.InputInt64("file id", 0)
			if err != nil {
				reportConsoleErr(err)
				continue
			}
			data, err := coord.ReadFile(ctx, fid)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("%q\n", data)

		case consoleTruncate:
			fid, err := prompt.InputInt64("file id", 0)
			if err != nil {
				reportConsoleErr(err)
				continue
			}
			size, err := prompt.InputInt64("new size (bytes)", 0)
			if err != nil {
				reportConsoleErr(err)
				continue
			}
			if err := coord.TruncateFile(ctx, fid, size); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println("ok")

		case consoleStats:
			s := coord.Stats()
			fmt.Printf("total=%d free=%d files=%d\n", s.TotalBlocks, s.FreeBlocks, s.NumFiles)
			_ = output.PrintTable(os.Stdout, nodeStatsTable(s))
		}
	}
}

func reportConsoleErr(err error) {
	if prompt.IsAborted(err) {
		return
	}
	fmt.Println("error:", err)
}

func printFileResult(fid int64, err error) {
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("fid:", fid)
}
