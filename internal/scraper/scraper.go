package scraper

import (
	"context"
	"time"
)

// Session is the browsing session shared by every step of a run. It is used
// by one component at a time.
type Session interface {
	Navigate(url string) error
	Click(selector string) error
	ScriptClick(selector string) error
	ScriptClickNth(selector string, index int) error
	Texts(selector string) ([]string, error)
	WaitVisible(selector string, timeout time.Duration) error
	Hide(selector string) error
	Content() (string, error)
	Close() error
}

type SessionOpener interface {
	Open() (Session, error)
}

type SessionOpenerFunc func() (Session, error)

func (f SessionOpenerFunc) Open() (Session, error) {
	return f()
}

// Timings holds the bounded waits of the browser-driven steps.
type Timings struct {
	PriceWait    time.Duration
	DetailSettle time.Duration
	RegionSettle time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		PriceWait:    10 * time.Second,
		DetailSettle: 5 * time.Second,
		RegionSettle: 5 * time.Second,
	}
}

type DuplicatePolicy string

const (
	LastWriteWins   DuplicatePolicy = "last-write-wins"
	RejectDuplicate DuplicatePolicy = "reject"
)

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
