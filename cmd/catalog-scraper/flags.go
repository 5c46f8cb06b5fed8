package main

import (
	"errors"
	"flag"

	"github.com/maltedev/catalog-scraper/internal/config"
)

var errLabelRequired = errors.New("-label is required when -region or -region-index is set")

type options struct {
	regionName  string
	regionLabel string
	regionIndex int
	category    string
	outputDir   string
	headful     bool
	publish     bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.regionName, "region", "", "city name as shown in the region picker")
	fs.StringVar(&o.regionLabel, "label", "", "region label used in the output file name")
	fs.IntVar(&o.regionIndex, "region-index", -1, "city list position, used when -region is empty")
	fs.StringVar(&o.category, "category", "", "category path, e.g. chaj-kofe-kakao/kofe")
	fs.StringVar(&o.outputDir, "output", "", "directory for the result file")
	fs.BoolVar(&o.headful, "headful", false, "show the browser window")
	fs.BoolVar(&o.publish, "publish", false, "store the catalog in PostgreSQL and the outbox")

	err := fs.Parse(args)
	return o, err
}

// apply overrides cfg with the flags that were set. A region chosen on the
// command line must come with its own label, otherwise the result file would
// be named after the configured region.
func (o options) apply(cfg *config.Config) error {
	regionSet := o.regionName != "" || o.regionIndex >= 0
	if regionSet && o.regionLabel == "" {
		return errLabelRequired
	}

	if o.regionName != "" {
		cfg.Catalog.RegionName = o.regionName
	}
	if o.regionIndex >= 0 {
		cfg.Catalog.RegionIndex = o.regionIndex
		if o.regionName == "" {
			cfg.Catalog.RegionName = ""
		}
	}
	if o.regionLabel != "" {
		cfg.Catalog.RegionLabel = o.regionLabel
	}
	if o.category != "" {
		cfg.Catalog.CategoryPath = o.category
	}
	if o.outputDir != "" {
		cfg.Output.Dir = o.outputDir
	}
	if o.headful {
		cfg.Browser.Headless = false
	}
	if o.publish {
		cfg.Database.Enabled = true
	}
	return nil
}
