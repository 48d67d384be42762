package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// 向运行中的 dashboard 发送 SIGHUP: 重新加载数据并重新打开日志文件
// 用法: go run . [pid 文件, 默认 dashboard.pid]
func main() {
	pidFile := "dashboard.pid"
	if len(os.Args) > 1 {
		pidFile = os.Args[1]
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		log.Fatal("Failed to read pid file:", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		log.Fatalf("Invalid pid in %s: %q", pidFile, strings.TrimSpace(string(data)))
	}

	if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
		log.Fatal("Failed to send SIGHUP:", err)
	}
	log.Printf("SIGHUP sent to %d", pid)
}
