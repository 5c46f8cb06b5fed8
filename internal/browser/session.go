package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	scriptClick = `el => el.click()`
	scriptHide  = `el => { el.style.visibility = 'hidden' }`
)

// Session is one browser page reused for every navigation of a run.
type Session struct {
	page    playwright.Page
	timeout time.Duration
	logger  *slog.Logger
}

func (s *Session) Navigate(url string) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	s.logger.Debug("navigated", "url", url)
	return nil
}

// Click performs a native click on the first element matching selector.
func (s *Session) Click(selector string) error {
	el, err := s.first(selector)
	if err != nil {
		return err
	}

	if err := el.Click(); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return nil
}

// ScriptClick dispatches a click from page script, bypassing overlays.
func (s *Session) ScriptClick(selector string) error {
	el, err := s.first(selector)
	if err != nil {
		return err
	}
	return s.evaluate(el, selector, scriptClick)
}

// ScriptClickNth script-clicks the index-th element matching selector.
func (s *Session) ScriptClickNth(selector string, index int) error {
	all := s.page.Locator(selector)
	count, err := all.Count()
	if err != nil {
		return fmt.Errorf("failed to count %q: %w", selector, err)
	}

	if index < 0 || index >= count {
		return fmt.Errorf("%w: %q has %d matches, index %d", ErrElementNotFound, selector, count, index)
	}

	return s.evaluate(all.Nth(index), selector, scriptClick)
}

// Texts returns the text content of every element matching selector.
func (s *Session) Texts(selector string) ([]string, error) {
	texts, err := s.page.Locator(selector).AllTextContents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", selector, err)
	}

	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrElementNotFound, selector)
	}
	return texts, nil
}

// WaitVisible blocks until selector is visible or timeout elapses.
func (s *Session) WaitVisible(selector string, timeout time.Duration) error {
	err := s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("waiting for %q: %w", selector, err)
	}
	return nil
}

// Hide sets visibility:hidden on the first element matching selector.
func (s *Session) Hide(selector string) error {
	el, err := s.first(selector)
	if err != nil {
		return err
	}
	return s.evaluate(el, selector, scriptHide)
}

func (s *Session) Content() (string, error) {
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	return html, nil
}

func (s *Session) Close() error {
	if err := s.page.Close(); err != nil {
		return fmt.Errorf("failed to close page: %w", err)
	}
	return nil
}

// first fails immediately when nothing matches instead of waiting for the
// default timeout.
func (s *Session) first(selector string) (playwright.Locator, error) {
	loc := s.page.Locator(selector)
	count, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count %q: %w", selector, err)
	}

	if count == 0 {
		return nil, fmt.Errorf("%w: %q", ErrElementNotFound, selector)
	}
	return loc.First(), nil
}

func (s *Session) evaluate(el playwright.Locator, selector, script string) error {
	if _, err := el.Evaluate(script, nil); err != nil {
		return fmt.Errorf("failed to run script on %q: %w", selector, err)
	}
	return nil
}
