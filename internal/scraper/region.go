package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maltedev/catalog-scraper/internal/models"
)

// RegionSelector scopes the session to one delivery region. It runs once,
// on the already loaded category page, before any catalog data is read.
type RegionSelector struct {
	sel    Selectors
	region models.Region
	settle time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger
}

func NewRegionSelector(sel Selectors, region models.Region, settle time.Duration, logger *slog.Logger) *RegionSelector {
	return &RegionSelector{
		sel:    sel,
		region: region,
		settle: settle,
		sleep:  sleepContext,
		logger: logger.With("component", "region_selector"),
	}
}

// Select walks the region picker and confirms the region. Every failure is
// fatal; nothing is retried.
func (r *RegionSelector) Select(ctx context.Context, sess Session) error {
	r.logger.Info("selecting region", "region", r.region.Name, "index", r.region.Index)

	if err := sess.Click(r.sel.RegionPicker); err != nil {
		return r.stepErr("open region picker", err)
	}

	if err := sess.ScriptClick(r.sel.DeliveryTab); err != nil {
		return r.stepErr("switch to delivery tab", err)
	}

	if err := sess.ScriptClick(r.sel.CityListOpener); err != nil {
		return r.stepErr("open city list", err)
	}

	cities, err := sess.Texts(r.sel.CityItem)
	if err != nil {
		return r.stepErr("open region modal", err)
	}

	index, err := ResolveRegion(cities, r.region)
	if err != nil {
		return err
	}

	if err := sess.ScriptClickNth(r.sel.CityItem, index); err != nil {
		return r.stepErr("select region", err)
	}

	if err := sess.Click(r.sel.RegionApply); err != nil {
		return r.stepErr("confirm region", err)
	}

	if err := r.sleep(ctx, r.settle); err != nil {
		return err
	}

	r.logger.Info("region selected", "region", r.region.Name, "index", index)
	return nil
}

func (r *RegionSelector) stepErr(step string, err error) error {
	return fmt.Errorf("%w: region selection: %s: %w", ErrStructureMismatch, step, err)
}

// ResolveRegion returns the list position of the region. A configured name
// must match a city label (case-insensitive, surrounding space ignored);
// without a name the configured index is used.
func ResolveRegion(cities []string, region models.Region) (int, error) {
	if region.Name != "" {
		want := strings.TrimSpace(region.Name)
		for i, city := range cities {
			if strings.EqualFold(strings.TrimSpace(city), want) {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: %q among %d cities", ErrRegionNotFound, region.Name, len(cities))
	}

	if region.Index < 0 || region.Index >= len(cities) {
		return 0, fmt.Errorf("%w: index %d out of %d cities", ErrRegionNotFound, region.Index, len(cities))
	}
	return region.Index, nil
}
