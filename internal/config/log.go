package config

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ListLogFiles returns the process names that have a log file, sorted.
func ListLogFiles() ([]string, error) {
	dir, err := GlobalLogsDir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".log"))
	}
	sort.Strings(names)
	return names, nil
}

// TailLog returns the last n lines of a process log. n <= 0 returns the
// whole file.
func TailLog(process string, n int) ([]string, error) {
	path, err := LogFile(process)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("log not found: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log %s: %w", path, err)
	}
	return lines, nil
}
