package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Tail a store's episode log as new episodes are written",
		Long: `watch follows episodes.jsonl inside a store directory and prints each
new line as it's appended, for observing another process's writes
(e.g. an agent driving the store through internal/mcpserver).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			storeDir := path
			if storeDir == "" {
				storeDir = cfg.Store.Path
			}
			logPath := filepath.Join(storeDir, "episodes.jsonl")

			f, err := os.Open(logPath)
			if err != nil {
				return fmt.Errorf("open episode log: %w", err)
			}
			defer f.Close()

			offset, err := f.Seek(0, io.SeekEnd)
			if err != nil {
				return fmt.Errorf("seek episode log: %w", err)
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer watcher.Close()

			if err := watcher.Add(storeDir); err != nil {
				return fmt.Errorf("watch %s: %w", storeDir, err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (Ctrl+C to stop)\n", logPath)

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if filepath.Clean(event.Name) != filepath.Clean(logPath) {
						continue
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
						continue
					}
					offset = printNewLines(cmd, f, offset)
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					return err
				}
			}
		},
	}

	cmd.Flags().StringVar(&path, "store", "", "Store directory (defaults to the configured store path)")
	return cmd
}

// printNewLines reads and prints any lines appended to f since offset,
// returning the new offset.
func printNewLines(cmd *cobra.Command, f *os.File, offset int64) int64 {
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var read int64
	for scanner.Scan() {
		line := scanner.Text()
		read += int64(len(line)) + 1
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return offset + read
}
