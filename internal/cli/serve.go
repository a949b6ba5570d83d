package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ishaan812/gitinsight/internal/dashboard"
	"github.com/ishaan812/gitinsight/internal/insight"
	"github.com/ishaan812/gitinsight/internal/logger"
)

// useConfigSchedule marks a bare --refresh flag.
const useConfigSchedule = "config"

var (
	servePort    int
	serveStatic  string
	serveRefresh string
	serveModels  modelFlags
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API and chat socket",
	Long: `Start the dashboard backend: insights and session endpoints under /api
and a WebSocket chat channel at /ws.

With --refresh the incremental analysis re-runs on a schedule in the same
process. A tick is skipped while the previous run is still going.

Examples:
  gitinsight serve
  gitinsight serve --port 8080 --static ./dashboard/dist
  gitinsight serve --refresh                 # schedule from config
  gitinsight serve --refresh "@every 10m"`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveStatic, "static", "", "Directory of built dashboard assets to serve at /")
	serveCmd.Flags().StringVar(&serveRefresh, "refresh", "", "Re-run analysis on a cron schedule")
	serveCmd.Flags().Lookup("refresh").NoOptDefVal = useConfigSchedule
	addModelFlags(serveCmd, &serveModels)
}

// cronLogger routes scheduler logs through the application logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

func runServe(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	m, err := ws.connect(serveModels, true)
	if err != nil {
		return err
	}

	port := servePort
	if port <= 0 {
		port = ws.cfg.DashboardPort
	}
	schedule := serveRefresh
	if schedule == useConfigSchedule {
		schedule = ws.cfg.RefreshSchedule
	}

	index := ws.openIndex(m.embedder)
	srv := dashboard.NewServer(port, dashboard.Config{
		Store:     ws.store,
		Sessions:  ws.sessions,
		Agent:     ws.agent(m, index),
		Limit:     ws.cfg.CommitLimit,
		StaticDir: serveStatic,
		Log:       appLog,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	if schedule != "" {
		svc := insight.New(ws.repo, ws.store, m.client, m.embedder, index, appLog, insight.Options{
			Limit:              ws.cfg.CommitLimit,
			SummaryBatchSize:   ws.cfg.SummaryBatchSize,
			MaxDiffLines:       ws.cfg.MaxDiffLines,
			EmbeddingBatchSize: ws.cfg.EmbeddingBatchSize,
			ChunkLines:         ws.cfg.ChunkLines,
		})
		clog := cronLogger{log: appLog}
		c := cron.New(cron.WithLogger(clog), cron.WithChain(cron.SkipIfStillRunning(clog)))
		_, err := c.AddFunc(schedule, func() {
			if _, err := svc.Refresh(gctx); err != nil && !errors.Is(err, insight.ErrRefreshInProgress) {
				appLog.Error("scheduled refresh failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid --refresh schedule %q: %w", schedule, err)
		}
		g.Go(func() error {
			c.Start()
			<-gctx.Done()
			<-c.Stop().Done()
			return nil
		})
	}

	g.Go(func() error {
		return srv.Run(gctx)
	})

	fmt.Println()
	titleColor.Printf("  gitinsight dashboard · %s\n", ws.repo.Name())
	infoColor.Printf("  API        http://localhost:%d/api/insights\n", port)
	infoColor.Printf("  Chat       ws://localhost:%d/ws\n", port)
	if schedule != "" {
		infoColor.Printf("  Refresh    %s\n", schedule)
	}
	dimColor.Println("  Press ctrl+c to stop.")
	fmt.Println()

	return g.Wait()
}
