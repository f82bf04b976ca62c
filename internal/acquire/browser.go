package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"farmacias-turno/internal/components/assert"
	"farmacias-turno/internal/components/telemetry"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	report_chrome_launch = "chrome.launch"
	report_chrome_close  = "chrome.close"
)

// Browser starts isolated browser sessions.
//
// note: fault injection point
type Browser interface {
	// Launch starts a new session, the caller owns it and must Close it.
	Launch(ctx context.Context) (Session, error)
}

// Session is a single browser instance (or remote target) with one page.
type Session interface {
	// Render navigates to url, waits for the network to settle and returns
	// the visible text of the page.
	Render(ctx context.Context, url string) (string, error)
	// Close releases the session, it is safe to call after ctx passed to
	// Launch or Render has been cancelled.
	Close() error
}

type ChromeOptions struct {
	Locate LocateOptions
	// RemoteURL attaches to a running devtools endpoint instead of launching a process.
	RemoteURL string
	// NoSandbox disables the chromium sandbox, hosted environments usually require it.
	NoSandbox bool
	// UserAgent defaults to DefaultUserAgent.
	UserAgent string
	// IdleConnections defaults to DefaultIdleConnections.
	IdleConnections int
	// IdleWindow defaults to DefaultIdleWindow.
	IdleWindow time.Duration
}

// ChromeBrowser is the chromedp implementation of Browser.
type ChromeBrowser struct {
	opts ChromeOptions
	tel  telemetry.API
}

func NewChromeBrowser(opts ChromeOptions, tel telemetry.API) ChromeBrowser {
	assert.NotNil(tel)

	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.IdleConnections <= 0 {
		opts.IdleConnections = DefaultIdleConnections
	}
	if opts.IdleWindow <= 0 {
		opts.IdleWindow = DefaultIdleWindow
	}

	return ChromeBrowser{
		opts: opts,
		tel:  telemetry.NewScopedAPI("chrome", tel),
	}
}

func (b ChromeBrowser) allocator() (context.Context, context.CancelFunc, error) {
	if b.opts.RemoteURL != "" {
		ctx, cancel := chromedp.NewRemoteAllocator(context.Background(), b.opts.RemoteURL)
		return ctx, cancel, nil
	}

	execPath, err := LocateBrowser(b.opts.Locate)
	if err != nil {
		return nil, nil, err
	}
	b.tel.ReportDebug("located browser", execPath)

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.UserAgent(b.opts.UserAgent),
		chromedp.DisableGPU,
	)
	if b.opts.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	ctx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return ctx, cancel, nil
}

func (b ChromeBrowser) Launch(ctx context.Context) (Session, error) {
	// the session is rooted in its own context so that only Close ends it,
	// ctx only bounds how long starting it may take.
	allocCtx, allocCancel, err := b.allocator()
	if err != nil {
		b.tel.ReportBroken(report_chrome_launch, err)
		return nil, fmt.Errorf("locate browser: %w", err)
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &chromeSession{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		opts:        b.opts,
		tel:         b.tel,
	}

	// running no actions starts the browser and opens the first tab. The
	// first Run owns the browser for its whole life, so it gets tabCtx itself
	// and ctx is only watched from the outside.
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(tabCtx)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		b.tel.ReportBroken(report_chrome_launch, ctx.Err())
		// aborts the pending start, the session is released once Run gives up
		s.allocCancel()
		go func() {
			<-done
			if closeErr := s.Close(); closeErr != nil {
				b.tel.ReportBroken(report_chrome_close, closeErr)
			}
		}()
		return nil, fmt.Errorf("start browser: %w", ctx.Err())
	}

	if err != nil {
		b.tel.ReportBroken(report_chrome_launch, err)
		closeErr := s.Close()
		if ctx.Err() != nil {
			return nil, errors.Join(ctx.Err(), err, closeErr)
		}
		return nil, errors.Join(fmt.Errorf("start browser: %w", err), closeErr)
	}

	c := chromedp.FromContext(tabCtx)
	if c != nil && c.Browser != nil {
		if proc := c.Browser.Process(); proc != nil {
			s.pid = proc.Pid
			b.tel.ReportDebug("browser started", s.pid)
		}
	}

	return s, nil
}

type chromeSession struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	opts        ChromeOptions
	tel         telemetry.API

	// zero when attached to a remote browser
	pid    int
	closed bool
}

func (s *chromeSession) Render(ctx context.Context, url string) (string, error) {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	tracker := newIdleTracker(nil)
	chromedp.ListenTarget(runCtx, tracker.handle)

	var text string
	err := chromedp.Run(
		runCtx,
		network.Enable(),
		emulation.SetUserAgentOverride(s.opts.UserAgent),
		chromedp.Navigate(url),
		waitNetworkIdle(tracker, s.opts.IdleConnections, s.opts.IdleWindow),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("render %s: %w", url, ctx.Err())
		}
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return text, nil
}

func (s *chromeSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	c := chromedp.FromContext(s.tabCtx)
	if c == nil || c.Browser == nil {
		// nothing was allocated, cancelling the tab would wait for a browser
		// that never comes
		s.allocCancel()
		if c != nil && c.Allocator != nil {
			c.Allocator.Wait()
		}
		return nil
	}

	var errlist []error

	// closes the tab (and the browser when it was launched by us)
	err := chromedp.Cancel(s.tabCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		errlist = append(errlist, err)
	}
	s.tabCancel()

	s.allocCancel()
	if c.Allocator != nil {
		c.Allocator.Wait()
	}

	if s.pid != 0 {
		err = ensureExited(s.pid)
		if err != nil {
			s.tel.ReportBroken(report_chrome_close, err, s.pid)
			errlist = append(errlist, err)
		}
	}

	return errors.Join(errlist...)
}

// ensureExited verifies that the browser process is gone and kills it if it is not.
func ensureExited(pid int) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	exists, err := process.PidExistsWithContext(ctx, int32(pid))
	if err != nil || !exists {
		return err
	}
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return err
	}
	status, err := proc.StatusWithContext(ctx)
	if err == nil && len(status) > 0 && status[0] == process.Zombie {
		return nil
	}

	osProc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	err = osProc.Kill()
	if err != nil {
		return fmt.Errorf("kill leaked browser %d: %w", pid, err)
	}
	return fmt.Errorf("browser %d outlived its session and was killed", pid)
}
