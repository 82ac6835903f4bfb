package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/attendai/internal/constants"
	"github.com/kozaktomas/attendai/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendai web server.

The server exposes the JSON API for teachers and students and a webcam page
that streams frames into the active attendance session.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default WEB_HOST or 0.0.0.0)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session tokens (default WEB_SESSION_SECRET)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	fmt.Printf("Using %s backend, %s enrollment store\n", a.backend.Name, a.cfg.Enrollment.Backend)

	dir, err := a.loadDirectory(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d enrolled students (%d embeddings), threshold %.2f\n",
		dir.Len(), dir.VectorCount(), a.cfg.Recognition.Threshold)

	if port := mustGetInt(cmd, "port"); port > 0 {
		a.cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.cfg.Web.Host = host
	}
	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		a.cfg.Web.SessionSecret = secret
	}
	if a.cfg.Web.SessionSecret == "" {
		fmt.Println("Warning: WEB_SESSION_SECRET is not set, using the development secret")
	}

	server := web.NewServer(a.cfg, a.service())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting attendai on http://%s:%d\n", a.cfg.Web.Host, a.cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
