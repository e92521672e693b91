package poller

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/thomluther/anker-solix-api/internal/api"
	"github.com/thomluther/anker-solix-api/internal/cache"
)

// Requester issues cloud requests. Satisfied by api.Client.
type Requester interface {
	Request(ctx context.Context, method, endpoint string, payload any) (json.RawMessage, error)
}

// fanOutLimit caps concurrent per entity sub requests within one
// operation so a large account does not burst the endpoint windows.
const fanOutLimit = 4

// Poller runs the bulk refresh operations against the cloud and merges
// everything it learns into the cache. Operations are best effort:
// failures on individual entities are collected and returned alongside
// whatever succeeded.
type Poller struct {
	client Requester
	cache  *cache.Cache
	logger *zap.Logger
}

// New returns a poller writing into c. A nil logger disables logging.
func New(client Requester, c *cache.Cache, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{client: client, cache: c, logger: logger}
}

// PollAll runs the four refresh operations in their required order.
// Partial failures from all operations are merged into one slice; a
// non nil error means an operation could not run at all.
func (p *Poller) PollAll(ctx context.Context) ([]error, error) {
	var partial []error
	ops := []struct {
		name string
		run  func(context.Context) ([]error, error)
	}{
		{"device_details", p.UpdateDeviceDetails},
		{"sites", p.UpdateSites},
		{"site_details", p.UpdateSiteDetails},
		{"device_energy", p.UpdateDeviceEnergy},
	}
	for _, op := range ops {
		errs, err := op.run(ctx)
		partial = append(partial, errs...)
		if err != nil {
			return partial, fmt.Errorf("%s: %w", op.name, err)
		}
	}
	return partial, nil
}

// deviceList is the shape bind_devices and user_devices return.
type deviceList struct {
	Data []map[string]any `json:"data"`
}

type siteList struct {
	SiteList []map[string]any `json:"site_list"`
}

type vehicleList struct {
	VehicleList []map[string]any `json:"vehicle_list"`
}

// UpdateDeviceDetails refreshes the bound device inventory, pulls per
// device details, folds in the account vehicles, and creates virtual
// sites for standalone devices that keep their own energy history.
func (p *Poller) UpdateDeviceDetails(ctx context.Context) ([]error, error) {
	raw, err := p.client.Request(ctx, "POST", "bind_devices", map[string]any{})
	if err != nil {
		return nil, err
	}
	var bound deviceList
	if err := json.Unmarshal(raw, &bound); err != nil {
		return nil, api.NewParseError("bind_devices response", err)
	}

	collect := newErrorCollector()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	for _, entry := range bound.Data {
		attrs := cache.NormalizeDeviceAttrs(cache.FromAnyMap(entry))
		sn := attrs["device_sn"].Str()
		if sn == "" {
			continue
		}
		p.mergeStandalone(sn, attrs)
		p.cache.MergeDevice(sn, attrs)

		g.Go(func() error {
			p.fetchDeviceDetail(gctx, sn, collect)
			return nil
		})
	}
	g.Go(func() error {
		p.fetchVehicles(gctx, collect)
		return nil
	})
	_ = g.Wait()

	p.logger.Debug("device details updated",
		zap.Int("devices", len(bound.Data)),
		zap.Int("failures", len(collect.errs)))
	return collect.errs, nil
}

// mergeStandalone gives a device without a site a virtual one when its
// type keeps energy history, so energy polling has a site to attach to.
func (p *Poller) mergeStandalone(sn string, attrs cache.Attrs) {
	if attrs["site_id"].Str() != "" {
		return
	}
	if !standaloneEnergyTypes[cache.DeviceType(attrs["type"].Str())] {
		return
	}
	siteID := p.cache.EnsureVirtualSite(sn)
	attrs["site_id"] = cache.String(siteID)
}

// standaloneEnergyTypes lists the device types that keep their own
// energy history when not bound to a site.
var standaloneEnergyTypes = map[cache.DeviceType]bool{
	cache.TypeSolarbank:  true,
	cache.TypeInverter:   true,
	cache.TypeSmartPlug:  true,
	cache.TypePowerPanel: true,
	cache.TypeHES:        true,
}

func (p *Poller) fetchDeviceDetail(ctx context.Context, sn string, collect *errorCollector) {
	payload := map[string]any{"device_sn": sn}

	raw, err := p.client.Request(ctx, "POST", "device_info", payload)
	if err != nil {
		collect.add(api.NewPartialPollError("device/"+sn, "device_info", err))
	} else {
		p.mergeDeviceJSON(sn, raw)
	}

	raw, err = p.client.Request(ctx, "POST", "get_device_fittings", payload)
	if err != nil {
		collect.add(api.NewPartialPollError("device/"+sn, "get_device_fittings", err))
		return
	}
	var fittings struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(raw, &fittings); err == nil && len(fittings.Data) > 0 {
		p.cache.MergeDevice(sn, cache.Attrs{
			"fittings": cache.FromAny(anySlice(fittings.Data)),
		})
	}
}

func (p *Poller) fetchVehicles(ctx context.Context, collect *errorCollector) {
	raw, err := p.client.Request(ctx, "POST", "get_user_vehicles", map[string]any{})
	if err != nil {
		collect.add(api.NewPartialPollError("account", "get_user_vehicles", err))
		return
	}
	var vehicles vehicleList
	if err := json.Unmarshal(raw, &vehicles); err != nil {
		collect.add(api.NewPartialPollError("account", "get_user_vehicles",
			api.NewParseError("vehicle list", err)))
		return
	}
	for _, entry := range vehicles.VehicleList {
		attrs := cache.FromAnyMap(entry)
		id := attrs["vehicle_id"].Str()
		if id == "" {
			continue
		}
		p.cache.MergeVehicle(id, attrs)
	}
}

// UpdateSites refreshes the site list and pulls the scene info of each
// site concurrently.
func (p *Poller) UpdateSites(ctx context.Context) ([]error, error) {
	raw, err := p.client.Request(ctx, "POST", "site_list", map[string]any{})
	if err != nil {
		return nil, err
	}
	var sites siteList
	if err := json.Unmarshal(raw, &sites); err != nil {
		return nil, api.NewParseError("site_list response", err)
	}

	collect := newErrorCollector()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	for _, entry := range sites.SiteList {
		attrs := cache.FromAnyMap(entry)
		siteID := attrs["site_id"].Str()
		if siteID == "" {
			continue
		}
		if ms, ok := attrs["ms_type"]; ok {
			attrs["is_admin"] = cache.Bool(cache.SiteAdmin(ms.Int64()))
		}
		p.cache.MergeSite(siteID, attrs)

		g.Go(func() error {
			p.fetchSceneInfo(gctx, siteID, collect)
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Debug("sites updated",
		zap.Int("sites", len(sites.SiteList)),
		zap.Int("failures", len(collect.errs)))
	return collect.errs, nil
}

func (p *Poller) fetchSceneInfo(ctx context.Context, siteID string, collect *errorCollector) {
	raw, err := p.client.Request(ctx, "POST", "scene_info", map[string]any{"site_id": siteID})
	if err != nil {
		collect.add(api.NewPartialPollError("site/"+siteID, "scene_info", err))
		return
	}
	p.mergeSiteJSON(siteID, raw)
}

// UpdateSiteDetails pulls the slower site level surfaces: detail
// record, auto upgrade settings, wifi networks and pending firmware.
// Virtual sites have no cloud record and are skipped.
func (p *Poller) UpdateSiteDetails(ctx context.Context) ([]error, error) {
	collect := newErrorCollector()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	for siteID := range p.cache.Sites() {
		if cache.IsVirtualSiteID(siteID) {
			continue
		}
		siteID := siteID
		g.Go(func() error {
			p.fetchSiteDetail(gctx, siteID, collect)
			return nil
		})
	}
	g.Go(func() error {
		p.fetchOtaBatch(gctx, collect)
		return nil
	})
	_ = g.Wait()
	return collect.errs, nil
}

func (p *Poller) fetchSiteDetail(ctx context.Context, siteID string, collect *errorCollector) {
	payload := map[string]any{"site_id": siteID}
	for _, endpoint := range []string{"site_detail", "get_auto_upgrade", "wifi_list"} {
		raw, err := p.client.Request(ctx, "POST", endpoint, payload)
		if err != nil {
			collect.add(api.NewPartialPollError("site/"+siteID, endpoint, err))
			continue
		}
		p.mergeSiteJSON(siteID, raw)
	}
}

// fetchOtaBatch checks firmware updates for all cached devices in one
// request and annotates each device with its OTA state.
func (p *Poller) fetchOtaBatch(ctx context.Context, collect *errorCollector) {
	devices := p.cache.Devices()
	if len(devices) == 0 {
		return
	}
	list := make([]map[string]any, 0, len(devices))
	for sn, attrs := range devices {
		list = append(list, map[string]any{
			"device_sn": sn,
			"version":   attrs["sw_version"].Str(),
		})
	}
	raw, err := p.client.Request(ctx, "POST", "get_ota_batch", map[string]any{"device_list": list})
	if err != nil {
		collect.add(api.NewPartialPollError("account", "get_ota_batch", err))
		return
	}
	var ota struct {
		UpdateInfos []map[string]any `json:"update_infos"`
	}
	if err := json.Unmarshal(raw, &ota); err != nil {
		return
	}
	for _, info := range ota.UpdateInfos {
		attrs := cache.NormalizeDeviceAttrs(cache.FromAnyMap(info))
		sn := attrs["device_sn"].Str()
		if sn == "" {
			continue
		}
		p.cache.MergeDevice(sn, attrs)
	}
}

// mergeDeviceJSON merges a raw JSON object into a device entity.
func (p *Poller) mergeDeviceJSON(sn string, raw json.RawMessage) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		p.logger.Debug("unparseable device detail", zap.String("device_sn", sn), zap.Error(err))
		return
	}
	p.cache.MergeDevice(sn, cache.NormalizeDeviceAttrs(cache.FromAnyMap(m)))
}

// mergeSiteJSON merges a raw JSON object into a site entity.
func (p *Poller) mergeSiteJSON(siteID string, raw json.RawMessage) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		p.logger.Debug("unparseable site detail", zap.String("site_id", siteID), zap.Error(err))
		return
	}
	p.cache.MergeSite(siteID, cache.FromAnyMap(m))
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
