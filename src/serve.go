package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"FlightsDashboard/src/datasource/file"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address, overrides server.addr")
	viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	logger := a.logger
	defer logger.Close()

	if err := writePidFile(a.cfg.PidFile); err != nil {
		logger.Warning("write pid file: " + err.Error())
	} else {
		defer os.Remove(a.cfg.PidFile)
	}

	// 启动时预加载一次, 失败时页面显示错误, 等待文件更新
	if _, err := a.server.Env(); err != nil {
		logger.Error("load dataset: " + err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor, err := file.NewFileMonitor(a.cache.Paths()...)
	if err != nil {
		logger.Warning("file monitor disabled: " + err.Error())
	} else {
		defer monitor.Close()
		go func() {
			err := monitor.Watch(ctx, func(path string) {
				a.server.Reload("file changed: " + path)
			})
			if err != nil {
				logger.Error("file monitor: " + err.Error())
			}
		}()
	}

	// 定时检查数据文件和日志大小, 兜底文件监听
	c := cron.New()
	interval := time.Duration(a.cfg.CheckInterval).String()
	cronSpec := fmt.Sprintf("@every %s", interval)
	err = c.AddFunc(cronSpec, func() {
		if a.cache.Changed() {
			a.server.Reload("periodic check")
		}
		if rotated, err := logger.CheckRotate(a.cfg.LogMaxSize); err != nil {
			logger.Errorf("rotate log: %v", err)
		} else if rotated {
			logger.Info("log rotated")
		}
	})
	if err != nil {
		return fmt.Errorf("create cron job: %w", err)
	}
	c.Start()
	defer c.Stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- a.server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Infof("dashboard started (check interval %v), Ctrl+C to stop", interval)
	for {
		select {
		case err := <-errChan:
			if err != nil {
				logger.Fatal("HTTP server: " + err.Error())
			}
			return err
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				if err := logger.Reopen(); err != nil {
					fmt.Fprintln(os.Stderr, "reopen log:", err)
				}
				a.server.Reload("SIGHUP")
				continue
			}
			logger.Info("Received signal: " + sig.String() + ", shutting down...")
			return a.server.Shutdown()
		}
	}
}

func writePidFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)
}
