package testbrowser

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/sync/semaphore"
)

type Manager struct {
	baseBrowser *rod.Browser
	sem         *semaphore.Weighted

	Timeout time.Duration
}

type ManagerConfig struct {
	MaxConcurrentTests int64
	Timeout            time.Duration
}

func NewManager(config ManagerConfig) (*Manager, error) {
	browser := rod.New()
	err := browser.Connect()
	if err != nil {
		return nil, fmt.Errorf("connect to browser failed: %w", err)
	}

	maxConcurrentTests := int64(1)
	if config.MaxConcurrentTests != 0 {
		maxConcurrentTests = config.MaxConcurrentTests
	} else if n, err := strconv.ParseInt(os.Getenv("TESTBROWSER_MAX_CONCURRENT_TESTS"), 10, 32); err == nil {
		maxConcurrentTests = n
	}
	if maxConcurrentTests <= 0 {
		return nil, fmt.Errorf("invalid MaxConcurrentTests: %v", maxConcurrentTests)
	}

	timeout := 2 * time.Second
	if config.Timeout != 0 {
		timeout = config.Timeout
	}

	manager := &Manager{
		baseBrowser: browser,
		sem:         semaphore.NewWeighted(maxConcurrentTests),
		Timeout:     timeout,
	}

	return manager, nil
}

// Acquire returns a TestBrowser. Resources are automatically cleaned up at the end of the test.
func (m *Manager) Acquire(t testing.TB) *Browser {
	err := m.sem.Acquire(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { m.sem.Release(1) })

	browser := m.baseBrowser.MustIncognito()
	t.Cleanup(browser.MustClose)

	testBrowser := &Browser{
		t:       t,
		Browser: browser,
		Timeout: m.Timeout,
	}

	return testBrowser
}

// Close disconnects from the browser.
func (m *Manager) Close() error {
	return m.baseBrowser.Close()
}

type Browser struct {
	t testing.TB
	*rod.Browser
	Timeout time.Duration
}

func (b *Browser) Page() *Page {
	page, err := b.Browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.t.Fatal(err)
	}

	return &Page{
		t:       b.t,
		Page:    page,
		Timeout: b.Timeout,
	}
}

type Page struct {
	t testing.TB
	*rod.Page
	Timeout time.Duration
}

func (p *Page) ClickOn(jsRegex string) {
	p.t.Helper()

	page := p.Page.Timeout(p.Timeout)

	el, err := page.ElementR(`a, button, input[type="submit"]`, jsRegex)
	if err != nil {
		p.t.Fatalf("failed to find clickable element: %s", jsRegex)
	}

	err = el.Click(proto.InputMouseButtonLeft, 1)
	if err != nil {
		p.t.Fatalf("failed to click element")
	}
}

// input finds an input by the text of its label or, failing that, by selector.
func (p *Page) input(labelOrSelector string) *rod.Element {
	p.t.Helper()

	page := p.Page.Timeout(p.Timeout)
	var inputEl *rod.Element
	_, err := page.Race().ElementR("label", labelOrSelector).Handle(func(e *rod.Element) error {
		forAttr, err := e.Attribute("for")
		if err != nil {
			return fmt.Errorf("unable to read label's for attribute: %w", err)
		}
		if forAttr == nil {
			return fmt.Errorf("label %q has no for attribute", labelOrSelector)
		}

		inputEl, err = page.Element("#" + *forAttr)
		if err != nil {
			return fmt.Errorf("unable to find element from label's for attribute: %q %w", *forAttr, err)
		}

		return nil
	}).Element(labelOrSelector).Handle(func(e *rod.Element) error {
		inputEl = e
		return nil
	}).Do()
	if err != nil {
		p.t.Fatalf("failed to find label or selector for %q: %v", labelOrSelector, err)
	}

	return inputEl
}

func (p *Page) FillIn(labelOrSelector string, content string) {
	p.t.Helper()

	inputEl := p.input(labelOrSelector)

	err := inputEl.SelectAllText()
	if err != nil {
		p.t.Fatalf("failed to select all text for %q", labelOrSelector)
	}

	err = inputEl.Input(content)
	if err != nil {
		p.t.Fatalf("failed to input text for %q", labelOrSelector)
	}
}

// InputValue returns the current value of the input found by labelOrSelector.
func (p *Page) InputValue(labelOrSelector string) string {
	p.t.Helper()

	inputEl := p.input(labelOrSelector)

	value, err := inputEl.Property("value")
	if err != nil {
		p.t.Fatalf("failed to read value for %q: %v", labelOrSelector, err)
	}

	return value.String()
}

func (p *Page) HasContent(selector, jsRegex string) {
	p.t.Helper()

	page := p.Page.Timeout(p.Timeout)
	_, err := page.ElementR(selector, jsRegex)
	if err != nil {
		p.t.Fatalf("failed to find element by selector %q with content matching %q", selector, jsRegex)
	}
}

// HasNoContent fails if an element matching selector and jsRegex is currently
// on the page. It does not wait, so callers should first wait for the page
// state they expect with WaitFor or HasContent.
func (p *Page) HasNoContent(selector, jsRegex string) {
	p.t.Helper()

	found, _, err := p.Page.HasR(selector, jsRegex)
	if err != nil {
		p.t.Fatalf("failed to search for selector %q: %v", selector, err)
	}
	if found {
		p.t.Fatalf("found element by selector %q with content matching %q", selector, jsRegex)
	}
}

// WaitFor waits until an element matching selector is on the page.
func (p *Page) WaitFor(selector string) {
	p.t.Helper()

	page := p.Page.Timeout(p.Timeout)
	_, err := page.Element(selector)
	if err != nil {
		p.t.Fatalf("failed to find element by selector %q", selector)
	}
}
