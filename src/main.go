package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"FlightsDashboard/src/config"
	"FlightsDashboard/src/dashboard"
	"FlightsDashboard/src/dataset"
	"FlightsDashboard/src/datasource/file"
	"FlightsDashboard/src/storage"
)

const (
	jsonFile     = "config.json"
	dataJsonFile = "dataconfig.json"
)

var rootCmd = &cobra.Command{
	Use:   "flightsdash",
	Short: "Before/after dashboard of flights departing Israel",
	Long: `flightsdash serves charts comparing departures before and after the event date.

Examples:

  flightsdash serve --addr :9090
  flightsdash profile
  flightsdash report --out report
`,
	SilenceUsage: true,
	RunE:         runServe,
}

// app 命令共享的运行环境
type app struct {
	cfg    *config.Config
	dcfg   *config.DataConfig
	logger *storage.Logger
	cache  *file.DatasetCache
	server *dashboard.Server
}

// newApp loads the configuration and wires logger, dataset cache and server.
func newApp() (*app, error) {
	cfg, dcfg, err := config.LoadConfig(viper.GetString("config"), jsonFile, dataJsonFile)
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("addr"); v != "" {
		cfg.Server.Addr = v
	}
	if v := viper.GetString("data_dir"); v != "" {
		cfg.DataDir = v
	}
	for name, column := range viper.GetStringMapString("dimensions") {
		dcfg.SetDimension(name, column)
	}

	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.SetConsole(os.Stdout)
	if viper.GetBool("quiet") {
		logger.SetLevel(storage.WARNING)
	}

	opts := file.Options{
		TimestampColumn: dcfg.TimestampColumn,
		DropColumns:     dcfg.DropColumns,
		SheetName:       cfg.SheetName,
		Charset:         dcfg.DescriptorCharset,
		Strict:          dcfg.Strict(),
	}
	flightsPath, descriptorPath := cfg.FlightsPath(), cfg.DescriptorPath()
	cache := file.NewDatasetCache(func() (*dataset.Dataset, error) {
		return file.LoadDataset(flightsPath, descriptorPath, opts)
	}, flightsPath, descriptorPath)

	pagesFile := cfg.PagesFile
	if pagesFile != "" && !filepath.IsAbs(pagesFile) {
		pagesFile = filepath.Join(viper.GetString("config"), pagesFile)
	}
	pages, err := config.PagesOrDefault(pagesFile, dashboard.DefaultPages)
	if err != nil {
		logger.Close()
		return nil, err
	}

	server, err := dashboard.NewServer(cfg, dcfg, cache, logger, pages)
	if err != nil {
		logger.Close()
		return nil, err
	}

	return &app{cfg: cfg, dcfg: dcfg, logger: logger, cache: cache, server: server}, nil
}

func init() {
	rootCmd.PersistentFlags().String("config", "./config", "directory holding config.json, dataconfig.json and .env")
	rootCmd.PersistentFlags().String("data-dir", "", "override data_dir from config.json")
	rootCmd.PersistentFlags().Bool("quiet", false, "only log warnings and errors")
	rootCmd.PersistentFlags().StringToString("dimension", nil, "extra distribution dimension, name=column")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("dimensions", rootCmd.PersistentFlags().Lookup("dimension"))

	viper.SetEnvPrefix("FLIGHTS")
	viper.BindEnv("config", "FLIGHTS_CONFIG")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(chartsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
