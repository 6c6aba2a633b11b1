// Package terminal renders login flow notifications and navigation in a terminal.
package terminal

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/manifoldco/promptui"

	"github.com/signin-dev/signin/internal/flow"
)

var (
	successStyle = promptui.Styler(promptui.FGGreen, promptui.FGBold)
	errorStyle   = promptui.Styler(promptui.FGRed, promptui.FGBold)
)

// Notifier prints toast-style messages
type Notifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{w: w}
}

func (n *Notifier) Notify(message string, kind flow.Kind) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch kind {
	case flow.KindSuccess:
		fmt.Fprintln(n.w, successStyle("✓ "+message))
	default:
		fmt.Fprintln(n.w, errorStyle("✗ "+message))
	}
}

// Navigator reports the landing route and can open it in a browser
type Navigator struct {
	w       io.Writer
	baseURL string
	open    bool

	// Opener launches the browser; replaceable in tests
	Opener func(url string) error

	mu   sync.Mutex
	last string
}

// NewNavigator creates a navigator for routes under baseURL. When openBrowser is set
// the route is also opened in the default browser.
func NewNavigator(w io.Writer, baseURL string, openBrowser bool) *Navigator {
	return &Navigator{
		w:       w,
		baseURL: strings.TrimRight(baseURL, "/"),
		open:    openBrowser,
		Opener:  OpenBrowser,
	}
}

func (n *Navigator) Navigate(path string) {
	n.mu.Lock()
	n.last = path
	n.mu.Unlock()

	target := n.baseURL + path
	fmt.Fprintf(n.w, "→ %s\n", target)

	if !n.open {
		return
	}
	if err := n.Opener(target); err != nil {
		fmt.Fprintf(n.w, "⚠ Could not open browser automatically: %v\n", err)
	}
}

// Last returns the most recent route, or empty if Navigate was never called
func (n *Navigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

// OpenBrowser opens url with the platform's default handler
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
