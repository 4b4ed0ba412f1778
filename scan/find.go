package scan

import (
	"bufio"
	"fmt"
	"os/exec"
)

// FindTool enumerates files by shelling out to find(1) and scanning its
// output line by line. One child process per directory tree replaces one
// syscall per file, which is what keeps very large scans viable. Filtering
// happens in-process so the filter semantics match Walker exactly.
type FindTool struct {
	// Binary is the find executable. Defaults to "find" resolved on PATH.
	Binary string

	// BatchSize overrides DefaultBatchSize when positive.
	BatchSize int
}

// Available reports whether the find binary can be resolved. Callers that
// want a fallback check this and use Walker instead.
func (ft *FindTool) Available() bool {
	bin := ft.Binary
	if bin == "" {
		bin = "find"
	}
	_, err := exec.LookPath(bin)
	return err == nil
}

// Enumerate implements Enumerator.
func (ft *FindTool) Enumerate(dir string, filter Filter, emit func(batch []string) error) error {
	bin := ft.Binary
	if bin == "" {
		bin = "find"
	}
	size := ft.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	cmd := exec.Command(bin, dir, "-type", "f")
	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("scan: find stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("scan: starting %s: %w", bin, err)
	}

	batch := make([]string, 0, size)
	sc := bufio.NewScanner(out)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		path := sc.Text()
		if !filter.MatchFile(path) {
			continue
		}
		batch = append(batch, path)
		if len(batch) == size {
			if err := emit(batch); err != nil {
				cmd.Process.Kill()
				cmd.Wait()
				return err
			}
			batch = batch[:0]
		}
	}
	if err := sc.Err(); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return fmt.Errorf("scan: reading find output: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("scan: %s %s: %w", bin, dir, err)
	}
	if len(batch) > 0 {
		return emit(batch)
	}
	return nil
}
