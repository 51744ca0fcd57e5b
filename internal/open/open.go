// Package open hands transcripts to external programs: the user's editor
// for raw JSONL and the system browser for generated HTML.
package open

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/Zuo-Peng/codex-transcripts/internal/index"
)

// OpenSession opens the session's JSONL file in $EDITOR (less by default),
// positioned at the line of event hitIndex when it is known.
func OpenSession(db *index.DB, sessionKey string, hitIndex int) error {
	session, err := db.GetSessionByKey(sessionKey)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	if _, err := os.Stat(session.FilePath); err != nil {
		return fmt.Errorf("file not found: %s", session.FilePath)
	}

	lineNum := 1
	if hitIndex >= 0 {
		lineNum = db.LineOf(sessionKey, hitIndex)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "less"
	}
	return openInEditor(editor, session.FilePath, lineNum)
}

// editorArgs returns the arguments that open filePath at lineNum for the
// editors that support a line jump.
func editorArgs(editor, filePath string, lineNum int) []string {
	switch base := filepath.Base(editor); {
	case strings.Contains(base, "vim"), strings.Contains(base, "less"), base == "nano", base == "emacs":
		return []string{"+" + strconv.Itoa(lineNum), filePath}
	case strings.Contains(base, "code"):
		return []string{"--goto", filePath + ":" + strconv.Itoa(lineNum)}
	default:
		return []string{filePath}
	}
}

func openInEditor(editor, filePath string, lineNum int) error {
	cmd := exec.Command(editor, editorArgs(editor, filePath, lineNum)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// browserCommand returns the launcher for goos, or "" when there is none.
func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}
	default:
		return "", nil
	}
}

// FileURL turns a local path into a file:// URL.
func FileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs)
}

// Browser opens url in the default browser. When no launcher is available
// the URL is printed to w instead.
func Browser(url string, w io.Writer) error {
	name, args := browserCommand(runtime.GOOS, url)
	if name != "" {
		if path, err := exec.LookPath(name); err == nil {
			cmd := exec.Command(path, args...)
			if err := cmd.Start(); err == nil {
				go cmd.Wait()
				return nil
			}
		}
	}
	_, err := fmt.Fprintf(w, "Open this URL in your browser:\n%s\n", url)
	return err
}
