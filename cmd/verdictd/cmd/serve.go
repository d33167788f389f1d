package cmd

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/verdictlabs/verdict/pkg/api"
	"github.com/verdictlabs/verdict/pkg/api/config"
	"github.com/verdictlabs/verdict/pkg/api/routes"
	"github.com/verdictlabs/verdict/pkg/api/services"
	"github.com/verdictlabs/verdict/pkg/vlog"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the evaluation API server",
	Run:   serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) {
	cfg, err := config.ValidateEnv()
	if err != nil {
		log.Fatalf("❌ %v\n", err)
	}

	cfg.Print(log.Printf)

	logger := vlog.New(vlog.ParseLevel(cfg.LogLevel), os.Stderr, cfg.LogJSON)

	svcs, err := services.NewServices(cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}
	defer svcs.KV.Close()

	a := api.NewApi()
	routes.RegisterAPI(a.Api, svcs)

	addr := fmt.Sprintf(":%s", cfg.Port)

	log.Printf("🚀 Verdict starting on %s\n", addr)
	log.Printf("📚 OpenAPI docs: http://localhost%s/docs\n", addr)
	log.Printf("📄 OpenAPI spec: http://localhost%s/openapi.json\n", addr)

	if err := http.ListenAndServe(addr, a.Router); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
