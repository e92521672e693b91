package poller

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/thomluther/anker-solix-api/internal/api"
	"github.com/thomluther/anker-solix-api/internal/cache"
)

// Energy statistic types requested from the analysis endpoint. Which
// ones apply to a site depends on the device types it contains.
const (
	energySolarProduction = "solar_production"
	energySolarbank       = "solarbank"
	energyHomeUsage       = "home_usage"
	energyGrid            = "grid"
	energySmartPlugs      = "smartplugs"
)

// errorCollector gathers partial failures from concurrent sub calls.
type errorCollector struct {
	mu   sync.Mutex
	errs []error
}

func newErrorCollector() *errorCollector {
	return &errorCollector{}
}

func (c *errorCollector) add(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

// UpdateDeviceEnergy refreshes the energy statistics of every site,
// including virtual ones. The set of queries per site follows the
// device types it contains, four to six requests each.
func (p *Poller) UpdateDeviceEnergy(ctx context.Context) ([]error, error) {
	collect := newErrorCollector()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	for siteID := range p.cache.Sites() {
		siteID := siteID
		g.Go(func() error {
			p.fetchSiteEnergy(gctx, siteID, collect)
			return nil
		})
	}
	_ = g.Wait()
	return collect.errs, nil
}

// energyQueries picks the statistic types for a site from the device
// types bound to it. Solar production and home usage are always
// requested.
func (p *Poller) energyQueries(siteID string) []string {
	queries := []string{energySolarProduction, energyHomeUsage, energyGrid}
	for _, sn := range p.cache.SiteDevices(siteID) {
		attrs, ok := p.cache.Device(sn)
		if !ok {
			continue
		}
		switch cache.DeviceType(attrs["type"].Str()) {
		case cache.TypeSolarbank, cache.TypeSolarbankPPS:
			queries = appendUnique(queries, energySolarbank)
		case cache.TypeSmartPlug:
			queries = appendUnique(queries, energySmartPlugs)
		}
	}
	return queries
}

func (p *Poller) fetchSiteEnergy(ctx context.Context, siteID string, collect *errorCollector) {
	day := time.Now().Format("2006-01-02")
	queries := p.energyQueries(siteID)
	merged := cache.Attrs{}

	for _, statType := range queries {
		raw, err := p.client.Request(ctx, "POST", "energy_analysis", map[string]any{
			"site_id":     siteID,
			"device_sn":   "",
			"type":        "week",
			"device_type": statType,
			"start_time":  day,
			"end_time":    day,
		})
		if err != nil {
			collect.add(api.NewPartialPollError("site/"+siteID, "energy_analysis", err))
			continue
		}
		var stats map[string]any
		if err := json.Unmarshal(raw, &stats); err != nil {
			collect.add(api.NewPartialPollError("site/"+siteID, "energy_analysis",
				api.NewParseError("energy statistics", err)))
			continue
		}
		merged["energy_"+statType] = cache.FromAny(stats)
	}

	// Inverter sites also report per channel PV statistics.
	if p.siteHasType(siteID, cache.TypeInverter) {
		raw, err := p.client.Request(ctx, "POST", "get_device_pv_statistics", map[string]any{
			"site_id": siteID,
		})
		if err != nil {
			collect.add(api.NewPartialPollError("site/"+siteID, "get_device_pv_statistics", err))
		} else {
			var stats map[string]any
			if err := json.Unmarshal(raw, &stats); err == nil {
				merged["pv_statistics"] = cache.FromAny(stats)
			}
		}
	}

	if len(merged) > 0 {
		p.cache.MergeSite(siteID, merged)
	}
	p.logger.Debug("site energy updated",
		zap.String("site_id", siteID),
		zap.Int("queries", len(queries)))
}

func (p *Poller) siteHasType(siteID string, t cache.DeviceType) bool {
	for _, sn := range p.cache.SiteDevices(siteID) {
		if attrs, ok := p.cache.Device(sn); ok && cache.DeviceType(attrs["type"].Str()) == t {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}
