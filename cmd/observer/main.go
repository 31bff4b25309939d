package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/igorvan/qrscan/pkg/config"
	"github.com/igorvan/qrscan/pkg/history"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger := slog.New(tint.NewHandler(os.Stdout, nil))
	path := cfg.Storage.Path

	var previousChecksum string
	// we will check the scan log every second to catch hand edits and half-written rewrites,
	// e.g. a payload recorded twice or a row without its date
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		n, checksum := doValidate(path, logger, previousChecksum)
		if checksum == "" || checksum == previousChecksum {
			continue
		}
		previousChecksum = checksum
		msg := fmt.Sprintf("Scan log validation iteration has completed: %d problems found", n)
		if n == 0 {
			logger.Info(msg)
		} else {
			logger.Error(msg)
		}
	}
}

// do validate - audits the scan log unless its checksum is unchanged, returns problems count and the new checksum
func doValidate(path string, logger *slog.Logger, previousChecksum string) (int, string) {
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Error(fmt.Sprintf("cannot read the scan log %s: %s", path, err))
		return 0, ""
	}
	if history.Checksum(content) == previousChecksum {
		return 0, previousChecksum
	}

	logger.Info("Scan log validation iteration has started", "path", path)
	report, err := history.AuditContent(content)
	if err != nil {
		logger.Error(fmt.Sprintf("cannot audit the scan log: %s", err))
		return 0, ""
	}
	var count = 0
	if !report.HeaderOK {
		logger.Error(fmt.Sprintf("bad news - the scan log header is not %s", strings.Join(history.Header, ",")))
		count++
	}
	for _, row := range report.Malformed {
		logger.Error(fmt.Sprintf("bad news - row %d of the scan log cannot be parsed", row))
		count++
	}
	for _, data := range report.DuplicateValues() {
		logger.Error(fmt.Sprintf("bad news - payload %q is recorded %d times", data, report.Duplicates[data]))
		count++
	}
	return count, report.Checksum
}
