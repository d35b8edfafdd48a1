package ocr

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

var (
	tessdataOnce sync.Once
	tessdataPath string
)

// tessdataPrefix resolves the Tesseract data directory exactly once for the
// process lifetime. TESSDATA_PREFIX wins outright; otherwise the path is
// parsed out of `tesseract --list-langs`'s banner line. An empty result is
// not an error: Tesseract falls back to its own compiled-in default.
func tessdataPrefix() string {
	tessdataOnce.Do(func() {
		if prefix := os.Getenv("TESSDATA_PREFIX"); prefix != "" {
			tessdataPath = prefix
			return
		}
		tessdataPath = probeTessdataPath()
	})
	return tessdataPath
}

func probeTessdataPath() string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "tesseract", "--list-langs")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return ""
	}
	return parseTessdataPath(string(out))
}

// parseTessdataPath extracts the directory path from tesseract --list-langs'
// banner line: `List of available languages in "/path/to/tessdata/"`.
func parseTessdataPath(output string) string {
	const marker = `List of available languages in "`
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, marker)
		if idx == -1 {
			continue
		}
		rest := line[idx+len(marker):]
		end := strings.Index(rest, `"`)
		if end == -1 {
			continue
		}
		return rest[:end]
	}
	return ""
}
